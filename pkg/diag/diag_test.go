package diag

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gomarie/pkg/compiler"
)

func TestRenderCompileError(t *testing.T) {
	src := "let $x = $1\nadd $y\nhalt"
	_, err := compiler.CompileSource(src, compiler.Options{})
	if err == nil {
		t.Fatalf("expected compile error")
	}

	got := Render(err, src, false)
	want := "error at line 2: undeclared variable \"$y\": no `let $y` in this file\n\n" +
		"   1 | let $x = $1\n" +
		"   2 | add $y\n" +
		"     |     ^~\n" +
		"   3 | halt\n"
	if got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestRenderWithoutSource(t *testing.T) {
	err := &compiler.CompileError{
		Kind:  compiler.ErrInvalidReference,
		Line:  7,
		Token: "@p[",
		Text:  "load @p[",
	}
	got := Render(err, "", false)
	if !strings.HasPrefix(got, "error at line 7: invalid reference \"@p[\"") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "   7 | load @p[\n     |      ^~~\n") {
		t.Errorf("expected caret under token, got:\n%s", got)
	}
}

func TestRenderKeepsTabs(t *testing.T) {
	err := &compiler.CompileError{Kind: compiler.ErrUnknownInstruction, Line: 1, Token: "mul", Text: "mul $x"}
	got := Render(err, "\tmul $x", false)
	if !strings.Contains(got, "     | \t^~~\n") {
		t.Errorf("expected tab-aligned caret, got:\n%q", got)
	}
}

func TestRenderColor(t *testing.T) {
	err := &compiler.CompileError{Kind: compiler.ErrUndefinedLabel, Line: 1, Token: "top", Text: "jump top"}
	got := Render(err, "", true)
	if !strings.HasPrefix(got, colorRed+"error"+colorReset) {
		t.Errorf("expected red header, got %q", got)
	}
	if !strings.Contains(got, colorRed+colorBold+"^~~"+colorReset) {
		t.Errorf("expected red caret, got %q", got)
	}
}

func TestRenderPlainError(t *testing.T) {
	got := Render(errors.New("boom"), "", false)
	if got != "error: boom\n" {
		t.Errorf("expected %q, got %q", "error: boom\n", got)
	}
}

func TestTokenSpan(t *testing.T) {
	tests := []struct {
		line, token string
		col, width  int
	}{
		{"add $x $x2", "$x2", 7, 3},
		{"add $x2 $x", "$x", 8, 2},
		{"  halt", "", 2, 1},
		{"let $a=$b", "$b", 7, 2},
	}
	for _, tc := range tests {
		col, width := tokenSpan(tc.line, tc.token)
		if col != tc.col || width != tc.width {
			t.Errorf("tokenSpan(%q, %q) = (%d, %d); want (%d, %d)", tc.line, tc.token, col, width, tc.col, tc.width)
		}
	}
}

func TestColorEnabled(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if !ColorEnabled("always", f) {
		t.Errorf("always: expected true")
	}
	if ColorEnabled("never", f) {
		t.Errorf("never: expected false")
	}
	if ColorEnabled("auto", f) {
		t.Errorf("auto on a regular file: expected false")
	}
	if ColorEnabled("auto", nil) {
		t.Errorf("auto on nil file: expected false")
	}
}
