package compiler

import (
	"fmt"
	"regexp"
	"strings"
)

// Keyword is the closed set of statement keywords.
type Keyword int

const (
	KwNone Keyword = iota // label-only line
	KwLet
	KwStore
	KwLoad
	KwAdd
	KwSubt
	KwClear
	KwInput
	KwOutput
	KwHalt
	KwJump
	KwJns
	KwSkipcond
)

var keywords = map[string]Keyword{
	"let":      KwLet,
	"store":    KwStore,
	"load":     KwLoad,
	"add":      KwAdd,
	"subt":     KwSubt,
	"clear":    KwClear,
	"input":    KwInput,
	"output":   KwOutput,
	"halt":     KwHalt,
	"jump":     KwJump,
	"jns":      KwJns,
	"skipcond": KwSkipcond,
}

var labelPattern = regexp.MustCompile(`^[A-Za-z]\w*$`)

// Statement is a tokenized source line: `[label:] keyword operand...`.
type Statement struct {
	Line     SourceLine
	Label    string
	Keyword  Keyword
	Word     string
	Operands []string
}

func parseStatement(line SourceLine) (Statement, error) {
	st := Statement{Line: line}
	fields := strings.Fields(line.Content)

	if len(fields) > 0 && strings.HasSuffix(fields[0], ":") {
		label := strings.TrimSuffix(fields[0], ":")
		if !labelPattern.MatchString(label) {
			return st, newError(ErrInvalidLabel, line, fields[0], "")
		}
		if isReserved(label) {
			return st, newError(ErrInvalidLabel, line, label, "name is reserved")
		}
		st.Label = label
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return st, nil
	}

	kw, ok := keywords[fields[0]]
	if !ok {
		return st, newError(ErrUnknownInstruction, line, fields[0], "")
	}
	st.Keyword = kw
	st.Word = fields[0]
	st.Operands = fields[1:]
	return st, nil
}

// checkArity validates the operand count of st. Operands beyond those a
// keyword consumes are ignored unless strict.
func (st Statement) checkArity(strict bool) error {
	n := len(st.Operands)
	var lo, hi int
	switch st.Keyword {
	case KwNone, KwLet:
		return nil
	case KwClear, KwInput, KwOutput, KwHalt:
		// trailing tokens are always ignored
		return nil
	case KwStore, KwLoad, KwJump, KwJns, KwSkipcond:
		lo, hi = 1, 1
	case KwAdd, KwSubt:
		lo, hi = 1, 3
	}
	if n < lo {
		return newError(ErrInvalidInstructionArity, st.Line, st.Word, "expects at least %d operand(s), got %d", lo, n)
	}
	if strict && n > hi {
		return newError(ErrInvalidInstructionArity, st.Line, st.Operands[hi], "%s expects at most %d operand(s), got %d", st.Word, hi, n)
	}
	return nil
}

// references returns the operand tokens st reads as variable references,
// after arity truncation.
func (st Statement) references() []string {
	switch st.Keyword {
	case KwStore, KwLoad:
		return st.Operands[:min(1, len(st.Operands))]
	case KwAdd, KwSubt:
		return st.Operands[:min(3, len(st.Operands))]
	default:
		return nil
	}
}

// ignored returns the operand tokens past those st consumes.
func (st Statement) ignored() []string {
	var n int
	switch st.Keyword {
	case KwNone, KwLet, KwClear, KwInput, KwOutput, KwHalt:
		n = 0
	case KwAdd, KwSubt:
		n = 3
	default:
		n = 1
	}
	if len(st.Operands) <= n {
		return nil
	}
	return st.Operands[n:]
}

func hasSigil(tok string) bool {
	return strings.HasPrefix(tok, "$") || strings.HasPrefix(tok, "@") || strings.HasPrefix(tok, "&")
}

// subtrahend returns the operand that a subt statement subtracts through
// the accumulator.
func (st Statement) subtrahend() string {
	switch len(st.Operands) {
	case 0:
		return ""
	case 1, 2:
		return st.Operands[0]
	default:
		return st.Operands[2]
	}
}

type Op int

const (
	OpAdd Op = iota
	OpSubt
	OpStore
	OpLoad
	OpJns
	OpSkipcond
	OpJump
	OpClear
	OpInput
	OpOutput
	OpHalt
)

var opNames = [...]string{
	OpAdd:      "add",
	OpSubt:     "subt",
	OpStore:    "store",
	OpLoad:     "load",
	OpJns:      "jns",
	OpSkipcond: "skipcond",
	OpJump:     "jump",
	OpClear:    "clear",
	OpInput:    "input",
	OpOutput:   "output",
	OpHalt:     "halt",
}

// Mnemonic is the native mnemonic of the direct form of o.
func (o Op) Mnemonic() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

func (o Op) String() string {
	m := o.Mnemonic()
	return strings.ToUpper(m[:1]) + m[1:]
}

// HasReference reports whether instructions of op carry a Reference.
func (o Op) HasReference() bool {
	return o == OpAdd || o == OpSubt || o == OpStore || o == OpLoad
}

type Mode int

const (
	ModeDirect Mode = iota
	ModePointer
	ModeAddress
	ModeOffset
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "Direct"
	case ModePointer:
		return "Pointer"
	case ModeAddress:
		return "Address"
	case ModeOffset:
		return "Offset"
	default:
		return "Unknown"
	}
}

// Reference names a table variable and how it is addressed. For ModeAddress
// Var is the `name:addr` shadow; for ModeOffset Var is the base pointer and
// Index the index variable.
type Reference struct {
	Var   VarID
	Mode  Mode
	Index VarID
}

func Direct(id VarID) Reference  { return Reference{Var: id, Mode: ModeDirect, Index: NoVar} }
func Pointer(id VarID) Reference { return Reference{Var: id, Mode: ModePointer, Index: NoVar} }
func Address(id VarID) Reference { return Reference{Var: id, Mode: ModeAddress, Index: NoVar} }
func Offset(base, index VarID) Reference {
	return Reference{Var: base, Mode: ModeOffset, Index: index}
}

// Condition is a skipcond test on the accumulator.
type Condition int

const (
	CondLessThanZero Condition = iota
	CondZero
	CondGreaterThanZero
)

// Code is the native skipcond operand.
func (c Condition) Code() uint16 {
	switch c {
	case CondZero:
		return 0x400
	case CondGreaterThanZero:
		return 0x800
	default:
		return 0x000
	}
}

func (c Condition) String() string {
	switch c {
	case CondZero:
		return "Zero"
	case CondGreaterThanZero:
		return "GreaterThanZero"
	default:
		return "LessThanZero"
	}
}

func parseCondition(s string) (Condition, bool) {
	switch strings.ToLower(s) {
	case "gt", "800":
		return CondGreaterThanZero, true
	case "lt", "000", "0":
		return CondLessThanZero, true
	case "eq", "zero", "400":
		return CondZero, true
	}
	return 0, false
}

// Instruction is one native machine instruction before addressing-mode
// expansion. Ref is set for Add, Subt, Store and Load; Target for Jump and
// Jns; Cond for Skipcond.
type Instruction struct {
	Op     Op
	Ref    Reference
	Cond   Condition
	Target string
	Label  string
	Line   int
}

// Format renders ins with variable names resolved through t, e.g.
// "Add(Direct x)" or "Load(Offset p[:4])".
func (ins Instruction) Format(t *SymbolTable) string {
	switch ins.Op {
	case OpAdd, OpSubt, OpStore, OpLoad:
		name := t.At(ins.Ref.Var).Name
		if ins.Ref.Mode == ModeOffset {
			return fmt.Sprintf("%s(Offset %s[%s])", ins.Op, name, t.At(ins.Ref.Index).Name)
		}
		return fmt.Sprintf("%s(%s %s)", ins.Op, ins.Ref.Mode, name)
	case OpJump, OpJns:
		return fmt.Sprintf("%s(%s)", ins.Op, ins.Target)
	case OpSkipcond:
		return fmt.Sprintf("%s(%s)", ins.Op, ins.Cond)
	default:
		return ins.Op.String()
	}
}
