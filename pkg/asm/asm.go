package asm

import (
	"fmt"
	"gomarie/pkg/cpu"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var addressOps = map[string]uint16{
	"JNS":    cpu.OpJNS,
	"LOAD":   cpu.OpLOAD,
	"STORE":  cpu.OpSTORE,
	"ADD":    cpu.OpADD,
	"SUBT":   cpu.OpSUBT,
	"JUMP":   cpu.OpJUMP,
	"ADDI":   cpu.OpADDI,
	"JUMPI":  cpu.OpJUMPI,
	"LOADI":  cpu.OpLOADI,
	"STOREI": cpu.OpSTOREI,
}

var zeroOperandOps = map[string]uint16{
	"INPUT":  cpu.OpINPUT,
	"OUTPUT": cpu.OpOUTPUT,
	"HALT":   cpu.OpHALT,
	"CLEAR":  cpu.OpCLEAR,
}

// mnemonics indexed by opcode, for Disassemble.
var mnemonics = [...]string{
	cpu.OpJNS:      "JnS",
	cpu.OpLOAD:     "Load",
	cpu.OpSTORE:    "Store",
	cpu.OpADD:      "Add",
	cpu.OpSUBT:     "Subt",
	cpu.OpINPUT:    "Input",
	cpu.OpOUTPUT:   "Output",
	cpu.OpHALT:     "Halt",
	cpu.OpSKIPCOND: "Skipcond",
	cpu.OpJUMP:     "Jump",
	cpu.OpCLEAR:    "Clear",
	cpu.OpADDI:     "AddI",
	cpu.OpJUMPI:    "JumpI",
	cpu.OpLOADI:    "LoadI",
	cpu.OpSTOREI:   "StoreI",
}

// Assembler is a two-pass assembler for the accumulator machine. Source
// lines have the form
//
//	[label,] mnemonic [operand] [/ comment]
//
// Mnemonics are case-insensitive, labels are not. Operands of memory
// instructions are labels or hex addresses; DEC takes a signed decimal,
// HEX and ORG take hex, SKIPCOND takes a hex condition code.
type Assembler struct {
	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	label    string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
	}
}

// Assemble returns the memory image starting at address 0 and a map from
// word address to 1-based source line.
func Assemble(code string) ([]uint16, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]uint16, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	parsed := make([]parsedLine, 0, len(lines))
	for i, raw := range lines {
		p, err := parseLine(raw, i+1)
		if err != nil {
			return nil, nil, err
		}
		parsed = append(parsed, p)
	}

	if err := a.pass1(parsed); err != nil {
		return nil, nil, err
	}
	return a.pass2(parsed)
}

// Labels returns the symbol table built by the last Assemble.
func (a *Assembler) Labels() map[string]uint16 {
	out := make(map[string]uint16, len(a.labels))
	for k, v := range a.labels {
		out[k] = v
	}
	return out
}

// SortedLabels returns label names ordered by address, then name.
func (a *Assembler) SortedLabels() []string {
	names := make([]string, 0, len(a.labels))
	for k := range a.labels {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		ai, aj := a.labels[names[i]], a.labels[names[j]]
		if ai != aj {
			return ai < aj
		}
		return names[i] < names[j]
	})
	return names
}

func (a *Assembler) pass1(lines []parsedLine) error {
	var address uint32

	for _, p := range lines {
		if p.label != "" {
			if address >= cpu.MemoryWords {
				return fmt.Errorf("label '%s' on line %d points past addressable memory", p.label, p.lineNo)
			}
			if _, exists := a.labels[p.label]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", p.label, p.lineNo)
			}
			a.labels[p.label] = uint16(address)
		}

		switch p.mnemonic {
		case "":
			continue
		case "END":
			return nil
		case "ORG":
			target, err := parseHex(p.operands[0])
			if err != nil || target >= cpu.MemoryWords {
				return fmt.Errorf("invalid ORG value on line %d: %s", p.lineNo, p.operands[0])
			}
			if uint32(target) < address {
				return fmt.Errorf("cannot move origin backward on line %d", p.lineNo)
			}
			address = uint32(target)
			continue
		}

		if !isKnown(p.mnemonic) {
			return fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
		}
		if address+1 > cpu.MemoryWords {
			return fmt.Errorf("program too large near line %d", p.lineNo)
		}
		address++
	}

	return nil
}

func (a *Assembler) pass2(lines []parsedLine) ([]uint16, map[uint16]int, error) {
	program := make([]uint16, 0)
	sourceMap := make(map[uint16]int)

	for _, p := range lines {
		mnemonic := p.mnemonic
		ops := p.operands
		lineNo := p.lineNo

		if mnemonic == "" {
			continue
		}
		if mnemonic == "END" {
			break
		}
		if mnemonic == "ORG" {
			target, _ := parseHex(ops[0])
			if padding := int(target) - len(program); padding > 0 {
				program = append(program, make([]uint16, padding)...)
			}
			continue
		}

		sourceMap[uint16(len(program))] = lineNo

		switch mnemonic {
		case "DEC":
			if len(ops) != 1 {
				return nil, nil, fmt.Errorf("DEC expects 1 operand on line %d", lineNo)
			}
			v, err := strconv.ParseInt(ops[0], 10, 16)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid DEC value on line %d: %s", lineNo, ops[0])
			}
			program = append(program, uint16(int16(v)))
			continue
		case "HEX":
			if len(ops) != 1 {
				return nil, nil, fmt.Errorf("HEX expects 1 operand on line %d", lineNo)
			}
			v, err := parseHex(ops[0])
			if err != nil {
				return nil, nil, fmt.Errorf("invalid HEX value on line %d: %s", lineNo, ops[0])
			}
			program = append(program, v)
			continue
		case "SKIPCOND":
			if len(ops) != 1 {
				return nil, nil, fmt.Errorf("SKIPCOND expects 1 operand on line %d", lineNo)
			}
			cond, err := parseHex(ops[0])
			if err != nil || cond > cpu.AddrMask {
				return nil, nil, fmt.Errorf("invalid SKIPCOND condition on line %d: %s", lineNo, ops[0])
			}
			program = append(program, cpu.EncodeInstruction(cpu.OpSKIPCOND, cond))
			continue
		}

		if opcode, ok := zeroOperandOps[mnemonic]; ok {
			if len(ops) != 0 {
				return nil, nil, fmt.Errorf("%s expects 0 operands on line %d", mnemonic, lineNo)
			}
			program = append(program, cpu.EncodeInstruction(opcode, 0))
			continue
		}

		if opcode, ok := addressOps[mnemonic]; ok {
			if len(ops) != 1 {
				return nil, nil, fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
			}
			addr, err := a.parseAddress(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			program = append(program, cpu.EncodeInstruction(opcode, addr))
			continue
		}

		return nil, nil, fmt.Errorf("unknown instruction on line %d: %s", lineNo, mnemonic)
	}

	return program, sourceMap, nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	if comma := strings.IndexByte(line, ','); comma >= 0 {
		label := strings.TrimSpace(line[:comma])
		if !isIdentifier(label) {
			return p, fmt.Errorf("invalid label '%s' on line %d", label, lineNo)
		}
		p.label = label
		line = strings.TrimSpace(line[comma+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(line)
	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	if p.mnemonic == "ORG" && len(p.operands) != 1 {
		return p, fmt.Errorf("ORG expects exactly one operand on line %d", lineNo)
	}

	return p, nil
}

func stripComments(line string) string {
	if cut := strings.IndexByte(line, '/'); cut >= 0 {
		return line[:cut]
	}
	return line
}

// parseAddress resolves a label, falling back to a hex literal.
func (a *Assembler) parseAddress(token string, lineNo int) (uint16, error) {
	if addr, ok := a.labels[token]; ok {
		return addr, nil
	}

	if value, err := parseHex(token); err == nil {
		if value > cpu.AddrMask {
			return 0, fmt.Errorf("address out of range on line %d: %s", lineNo, token)
		}
		return value, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid address '%s' on line %d", token, lineNo)
}

func parseHex(token string) (uint16, error) {
	token = strings.TrimPrefix(strings.TrimPrefix(token, "0x"), "0X")
	v, err := strconv.ParseUint(token, 16, 16)
	return uint16(v), err
}

func isKnown(mnemonic string) bool {
	switch mnemonic {
	case "DEC", "HEX", "SKIPCOND":
		return true
	}
	if _, ok := addressOps[mnemonic]; ok {
		return true
	}
	_, ok := zeroOperandOps[mnemonic]
	return ok
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

// Disassemble renders one memory word as an instruction, e.g. "Load 012".
func Disassemble(word uint16) string {
	opcode := word >> 12
	operand := word & cpu.AddrMask
	if int(opcode) >= len(mnemonics) {
		return fmt.Sprintf("?%04X", word)
	}
	switch opcode {
	case cpu.OpINPUT, cpu.OpOUTPUT, cpu.OpHALT, cpu.OpCLEAR:
		return mnemonics[opcode]
	}
	return fmt.Sprintf("%s %03X", mnemonics[opcode], operand)
}
