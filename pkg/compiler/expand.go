package compiler

import (
	"fmt"
	"strings"
)

// AsmLine is one line of native assembly text.
type AsmLine struct {
	Label    string
	Mnemonic string
	Operand  string
}

func (a AsmLine) String() string {
	var sb strings.Builder
	if a.Label != "" {
		sb.WriteString(a.Label)
		sb.WriteString(",")
	}
	sb.WriteString("\t")
	sb.WriteString(a.Mnemonic)
	if a.Operand != "" {
		sb.WriteString(" ")
		sb.WriteString(a.Operand)
	}
	return sb.String()
}

// indirect maps an opcode to its indirect form. Subt and Jns have none.
var indirect = map[Op]string{
	OpAdd:   "addi",
	OpLoad:  "loadi",
	OpStore: "storei",
}

// Expand applies addressing-mode expansion to ins:
//
//	Direct, Address   op x
//	Pointer           opi p
//	Pointer Subt      store temp_acc; loadi p; jns subti
//	Offset            store temp_acc; load base; add index; store temp_addr; opi temp_addr
//
// Offset Add and Store reload temp_acc before the indirect opcode since the
// address computation clobbers the accumulator; offset Subt ends with
// loadi temp_addr; jns subti. ins.Label goes on the first line.
func Expand(ins Instruction, t *SymbolTable) []AsmLine {
	out := expand(ins, t)
	if len(out) > 0 {
		out[0].Label = ins.Label
	}
	return out
}

func expand(ins Instruction, t *SymbolTable) []AsmLine {
	switch ins.Op {
	case OpJump, OpJns:
		return []AsmLine{{Mnemonic: ins.Op.Mnemonic(), Operand: ins.Target}}
	case OpSkipcond:
		return []AsmLine{{Mnemonic: "skipcond", Operand: fmt.Sprintf("%03X", ins.Cond.Code())}}
	case OpClear, OpInput, OpOutput, OpHalt:
		return []AsmLine{{Mnemonic: ins.Op.Mnemonic()}}
	}

	target := t.At(ins.Ref.Var).Label()
	switch ins.Ref.Mode {
	case ModeDirect, ModeAddress:
		return []AsmLine{{Mnemonic: ins.Op.Mnemonic(), Operand: target}}

	case ModePointer:
		if ins.Op == OpSubt {
			return []AsmLine{
				{Mnemonic: "store", Operand: reserved(t, ReservedTempAcc)},
				{Mnemonic: "loadi", Operand: target},
				{Mnemonic: "jns", Operand: SubtractRoutine},
			}
		}
		return []AsmLine{{Mnemonic: indirect[ins.Op], Operand: target}}

	case ModeOffset:
		acc := reserved(t, ReservedTempAcc)
		addr := reserved(t, ReservedTempAddr)
		out := []AsmLine{
			{Mnemonic: "store", Operand: acc},
			{Mnemonic: "load", Operand: target},
			{Mnemonic: "add", Operand: t.At(ins.Ref.Index).Label()},
			{Mnemonic: "store", Operand: addr},
		}
		switch ins.Op {
		case OpLoad:
			return append(out, AsmLine{Mnemonic: "loadi", Operand: addr})
		case OpSubt:
			return append(out,
				AsmLine{Mnemonic: "loadi", Operand: addr},
				AsmLine{Mnemonic: "jns", Operand: SubtractRoutine},
			)
		default:
			return append(out,
				AsmLine{Mnemonic: "load", Operand: acc},
				AsmLine{Mnemonic: indirect[ins.Op], Operand: addr},
			)
		}
	}
	panic(fmt.Sprintf("expand: unhandled addressing mode %v", ins.Ref.Mode))
}

// SubtractRoutineLines is the linked helper called by indirect subtraction.
// On entry temp_acc holds the minuend and AC the subtrahend; on return
// AC = temp_acc - subtrahend. temp_addr is clobbered.
func SubtractRoutineLines() []AsmLine {
	return []AsmLine{
		{Label: SubtractRoutine, Mnemonic: "hex", Operand: "0"},
		{Mnemonic: "store", Operand: ReservedTempAddr},
		{Mnemonic: "load", Operand: ReservedTempAcc},
		{Mnemonic: "subt", Operand: ReservedTempAddr},
		{Mnemonic: "jumpi", Operand: SubtractRoutine},
	}
}

func reserved(t *SymbolTable, key string) string {
	v, ok := t.Lookup(key)
	if !ok {
		panic("expand: " + key + " was not reserved by the declaration pass")
	}
	return v.Label()
}
