package compiler

import (
	"reflect"
	"strings"
	"testing"
)

// expandAll compiles src and returns the expanded native lines of every
// instruction, without the prologue, variables or routine.
func expandAll(t *testing.T, src string) []string {
	t.Helper()
	prog, err := CompileSource(src, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	var out []string
	for _, ins := range prog.Instructions {
		for _, l := range Expand(ins, prog.Table) {
			out = append(out, l.String())
		}
	}
	return out
}

func TestExpandModes(t *testing.T) {
	decls := "let $x\nlet $p\nlet $i\n"
	tests := []struct {
		line string
		want []string
	}{
		{"load $x", []string{"\tload x"}},
		{"load &x", []string{"\tload _x_addr"}},
		{"load $12", []string{"\tload _12"}},
		{"load @p", []string{"\tloadi p"}},
		{"add @p", []string{"\taddi p"}},
		{"store @p", []string{"\tstorei p"}},
		{"subt @p", []string{
			"\tstore temp_acc",
			"\tloadi p",
			"\tjns subti",
		}},
		{"load @p[$i]", []string{
			"\tstore temp_acc",
			"\tload p",
			"\tadd i",
			"\tstore temp_addr",
			"\tloadi temp_addr",
		}},
		{"add @p[$i]", []string{
			"\tstore temp_acc",
			"\tload p",
			"\tadd i",
			"\tstore temp_addr",
			"\tload temp_acc",
			"\taddi temp_addr",
		}},
		{"store @p[$2]", []string{
			"\tstore temp_acc",
			"\tload p",
			"\tadd _2",
			"\tstore temp_addr",
			"\tload temp_acc",
			"\tstorei temp_addr",
		}},
		{"subt @p[$i]", []string{
			"\tstore temp_acc",
			"\tload p",
			"\tadd i",
			"\tstore temp_addr",
			"\tloadi temp_addr",
			"\tjns subti",
		}},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got := expandAll(t, decls+tc.line)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected:\n%s\ngot:\n%s", strings.Join(tc.want, "\n"), strings.Join(got, "\n"))
			}
		})
	}
}

func TestExpandControl(t *testing.T) {
	got := expandAll(t, "top: skipcond eq\nskipcond gt\nskipcond lt\njump top\nclear")
	want := []string{
		"top,\tskipcond 400",
		"\tskipcond 800",
		"\tskipcond 000",
		"\tjump top",
		"\tclear",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExpandLabelOnFirstLine(t *testing.T) {
	got := expandAll(t, "let $p\nlet $i\nhere: add @p[$i]")
	if got[0] != "here,\tstore temp_acc" {
		t.Errorf("expected label on the first expanded line, got %q", got[0])
	}
	for _, l := range got[1:] {
		if strings.Contains(l, ",") {
			t.Errorf("only the first line carries the label, got %q", l)
		}
	}
}

func TestSubtractRoutineLines(t *testing.T) {
	var got []string
	for _, l := range SubtractRoutineLines() {
		got = append(got, l.String())
	}
	want := []string{
		"subti,\thex 0",
		"\tstore temp_addr",
		"\tload temp_acc",
		"\tsubt temp_addr",
		"\tjumpi subti",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}
