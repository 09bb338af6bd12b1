package compiler

import (
	"io"
	"strconv"
	"strings"
)

// Native returns the full native program:
//
//	jump <entry>              address 0
//	<label>, dec <value>      one per table variable, addresses 1..n
//	<entry>, ...              lowered and expanded instructions
//	subti, hex 0 ...          subtraction routine, when used
func (p *Program) Native() []AsmLine {
	out := make([]AsmLine, 0, 1+p.Table.Len()+len(p.Instructions))
	out = append(out, AsmLine{Mnemonic: "jump", Operand: p.Entry})

	for _, v := range p.Table.Variables() {
		out = append(out, AsmLine{Label: v.Label(), Mnemonic: "dec", Operand: strconv.Itoa(int(v.Value))})
	}

	code := len(out)
	for _, ins := range p.Instructions {
		out = append(out, Expand(ins, p.Table)...)
	}
	if len(out) == code {
		out = append(out, AsmLine{Mnemonic: "halt"})
	}
	out[code].Label = p.Entry

	if p.Decl.UsesSubtract {
		out = append(out, SubtractRoutineLines()...)
	}
	return out
}

// Emit renders Native as text, one line per AsmLine.
func (p *Program) Emit() string {
	var sb strings.Builder
	for _, l := range p.Native() {
		sb.WriteString(l.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WriteTo writes Emit to w.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, p.Emit())
	return int64(n), err
}
