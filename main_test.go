package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gomarie/pkg/compiler"
	"gomarie/pkg/config"
)

const doubler = `
let $n = $0
input
store $n
add $n $n       // n := n + n
load $n
output
halt
`

func newTestApp(stdin string) (*app, *bytes.Buffer) {
	var out bytes.Buffer
	return &app{
		cfg:    config.Config{Workers: 1, MaxSteps: 10_000, Color: "never"},
		stdin:  strings.NewReader(stdin),
		stdout: &out,
	}, &out
}

func execute(a *app, args ...string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetErr(&bytes.Buffer{})
	return root.Execute()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLIBuildAsmRun(t *testing.T) {
	src := writeFile(t, "double.pasm", doubler)

	a, _ := newTestApp("")
	if err := execute(a, "build", src); err != nil {
		t.Fatalf("build: %v", err)
	}
	native := strings.TrimSuffix(src, ".pasm") + ".mas"
	text, err := os.ReadFile(native)
	if err != nil {
		t.Fatalf("expected %s: %v", native, err)
	}
	if !strings.HasPrefix(string(text), "\tjump main\n") {
		t.Errorf("unexpected native text:\n%s", text)
	}

	a, _ = newTestApp("")
	if err := execute(a, "asm", native); err != nil {
		t.Fatalf("asm: %v", err)
	}
	image := strings.TrimSuffix(src, ".pasm") + ".bin"
	if info, err := os.Stat(image); err != nil || info.Size()%2 != 0 {
		t.Fatalf("expected an even-sized image at %s: %v", image, err)
	}

	for _, path := range []string{src, native, image} {
		a, out := newTestApp("21\n")
		if err := execute(a, "run", path); err != nil {
			t.Fatalf("run %s: %v", filepath.Base(path), err)
		}
		if out.String() != "42\n" {
			t.Errorf("run %s: expected %q, got %q", filepath.Base(path), "42\n", out.String())
		}
	}
}

func TestCLIBuildToStdout(t *testing.T) {
	src := writeFile(t, "p.pasm", "let $x = $1\nload $x\nhalt\n")
	a, out := newTestApp("")
	if err := execute(a, "build", src, "-o", "-"); err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(out.String(), "x,\tdec 1\n") {
		t.Errorf("expected native text on stdout, got %q", out.String())
	}
}

func TestCLIInspect(t *testing.T) {
	src := writeFile(t, "p.pasm", "let $x = $1\nadd $x $x\nhalt\n")
	a, out := newTestApp("")
	if err := execute(a, "inspect", src); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"Variables:", "Load(Direct x)", "Store(Direct x)", "\tadd x\n"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in inspect output:\n%s", want, out.String())
		}
	}
}

func TestCLICompileFailure(t *testing.T) {
	src := writeFile(t, "bad.pasm", "load $missing\n")
	a, _ := newTestApp("")
	err := execute(a, "build", src)

	var f *failure
	if !errors.As(err, &f) {
		t.Fatalf("expected a failure (exit 1), got %v", err)
	}
	if !errors.Is(err, compiler.ErrUndeclaredVariable) {
		t.Errorf("expected ErrUndeclaredVariable, got %v", err)
	}
	if f.src != "load $missing\n" {
		t.Errorf("expected failure to carry the source for rendering")
	}
}

func TestCLIStrictFlag(t *testing.T) {
	src := writeFile(t, "p.pasm", "let $x = $1\nload $x $x\nhalt\n")

	a, _ := newTestApp("")
	if err := execute(a, "build", src, "-o", "-"); err != nil {
		t.Fatalf("lenient build: %v", err)
	}

	a, _ = newTestApp("")
	err := execute(a, "--strict", "build", src, "-o", "-")
	if !errors.Is(err, compiler.ErrInvalidInstructionArity) {
		t.Errorf("expected ErrInvalidInstructionArity with --strict, got %v", err)
	}
}

func TestCLIRunFailures(t *testing.T) {
	loop := writeFile(t, "loop.pasm", "top: jump top\n")
	a, _ := newTestApp("")
	err := execute(a, "run", loop, "--max-steps", "50")
	var f *failure
	if !errors.As(err, &f) {
		t.Errorf("expected step limit failure, got %v", err)
	}

	starved := writeFile(t, "in.pasm", "input\nhalt\n")
	a, _ = newTestApp("")
	if err := execute(a, "run", starved); !errors.As(err, &f) {
		t.Errorf("expected missing input failure, got %v", err)
	}

	a, _ = newTestApp("")
	if err := execute(a, "run", filepath.Join(t.TempDir(), "absent.pasm")); !errors.As(err, &f) {
		t.Errorf("expected unreadable file failure, got %v", err)
	}
}

func TestCLIUsageErrors(t *testing.T) {
	a, _ := newTestApp("")
	err := execute(a, "build")
	var f *failure
	if err == nil || errors.As(err, &f) {
		t.Errorf("expected a usage error, got %v", err)
	}
}
