package compiler

import (
	"errors"
	"reflect"
	"testing"
)

// lowerAll compiles src and returns each instruction in Format notation.
func lowerAll(t *testing.T, src string, opts Options) []string {
	t.Helper()
	prog, err := CompileSource(src, opts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	out := make([]string, len(prog.Instructions))
	for i, ins := range prog.Instructions {
		out[i] = ins.Format(prog.Table)
	}
	return out
}

func TestLowerArithmetic(t *testing.T) {
	decls := "let $a\nlet $b\nlet $c\n"
	tests := []struct {
		line string
		want []string
	}{
		{"add $a", []string{"Add(Direct a)"}},
		{"subt $a", []string{"Subt(Direct a)"}},
		{"add $a $b", []string{"Load(Direct b)", "Add(Direct a)", "Store(Direct a)"}},
		{"add $a $b $c", []string{"Load(Direct b)", "Add(Direct c)", "Store(Direct a)"}},
		{"subt $a $b", []string{"Load(Direct b)", "Subt(Direct a)", "Store(Direct a)"}},
		{"subt $a $b $c", []string{"Load(Direct b)", "Subt(Direct c)", "Store(Direct a)"}},
		{"add $a $b $c $a", []string{"Load(Direct b)", "Add(Direct c)", "Store(Direct a)"}},
		{"add $a $5", []string{"Load(Direct :5)", "Add(Direct a)", "Store(Direct a)"}},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got := lowerAll(t, decls+tc.line, Options{})
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestLowerAddressingModes(t *testing.T) {
	decls := "let $x\nlet $p\nlet $i\n"
	tests := []struct {
		line string
		want []string
	}{
		{"load $x", []string{"Load(Direct x)"}},
		{"store @p", []string{"Store(Pointer p)"}},
		{"load &x", []string{"Load(Address x:addr)"}},
		{"add @p[$i]", []string{"Add(Offset p[i])"}},
		{"load @p[$3]", []string{"Load(Offset p[:3])"}},
		{"load $7", []string{"Load(Direct :7)"}},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got := lowerAll(t, decls+tc.line, Options{})
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestLowerBareAndControl(t *testing.T) {
	src := `
top: clear
input
output
skipcond gt
skipcond 400
skipcond lt
jump top
jns top
halt extra tokens
`
	got := lowerAll(t, src, Options{})
	want := []string{
		"Clear", "Input", "Output",
		"Skipcond(GreaterThanZero)", "Skipcond(Zero)", "Skipcond(LessThanZero)",
		"Jump(top)", "Jns(top)", "Halt",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLowerExampleProgram(t *testing.T) {
	// add with two operands always goes through the accumulator, including
	// when both name the same variable.
	got := lowerAll(t, "let $x = $5\nadd $x $x\nhalt", Options{})
	want := []string{"Load(Direct x)", "Add(Direct x)", "Store(Direct x)", "Halt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLowerSetsLabelAndLine(t *testing.T) {
	prog, err := CompileSource("let $a\nloop:\nadd $a $a\njump loop", Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if prog.Instructions[0].Label != "loop" {
		t.Errorf("expected the first lowered instruction to carry the label, got %q", prog.Instructions[0].Label)
	}
	if prog.Instructions[1].Label != "" {
		t.Errorf("only the first instruction of an expansion carries the label")
	}
	for _, ins := range prog.Instructions[:3] {
		if ins.Line != 3 {
			t.Errorf("expected source line 3, got %d", ins.Line)
		}
	}
}

func TestLowerDeclarationLinesEmitNothing(t *testing.T) {
	decl := mustDeclare(t, "let $a = $1")
	out, err := Lower(SourceLine{Num: 1, Content: "let $a = $1"}, decl, Options{})
	if err != nil || len(out) != 0 {
		t.Errorf("expected no instructions and no error, got %v, %v", out, err)
	}
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind error
	}{
		{"undefined jump", "jump away", ErrUndefinedLabel},
		{"undefined jns", "jns away", ErrUndefinedLabel},
		{"bad skipcond", "skipcond 123", ErrInvalidReference},
		{"jump to variable", "let $x\njump x", ErrUndefinedLabel},
		{"strict jump", "a: jump a a", ErrInvalidInstructionArity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CompileSource(tc.src, Options{StrictArity: true})
			if !errors.Is(err, tc.kind) {
				t.Errorf("expected %v, got %v", tc.kind, err)
			}
		})
	}
}
