package compiler

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"gomarie/pkg/asm"
)

// Options tunes a compilation.
type Options struct {
	// StrictArity rejects operands beyond those an instruction consumes
	// instead of ignoring them.
	StrictArity bool

	// Workers > 1 lowers lines concurrently. Output is identical to the
	// sequential run.
	Workers int
}

// Program is a compiled source: the frozen table and the lowered
// instructions in source order.
type Program struct {
	Decl         *Declarations
	Table        *SymbolTable
	Instructions []Instruction

	// Entry is the label the startup jump at address 0 targets.
	Entry string
}

// Compile runs the declaration pass to completion, then lowers every line
// against the frozen table. The first failure, in source order, aborts
// the compilation.
func Compile(lines []SourceLine, opts Options) (*Program, error) {
	decl, err := Declare(lines, opts)
	if err != nil {
		return nil, err
	}

	lowered := make([][]Instruction, len(lines))
	errs := make([]error, len(lines))

	if opts.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(opts.Workers)
		for i, line := range lines {
			i, line := i, line
			g.Go(func() error {
				lowered[i], errs[i] = Lower(line, decl, opts)
				return errs[i]
			})
		}
		_ = g.Wait() // errs carries per-line results; report the earliest below
	} else {
		for i, line := range lines {
			if lowered[i], errs[i] = Lower(line, decl, opts); errs[i] != nil {
				break
			}
		}
	}

	prog := &Program{Decl: decl, Table: decl.Table}
	for i := range lines {
		if errs[i] != nil {
			return nil, errs[i]
		}
		prog.Instructions = append(prog.Instructions, lowered[i]...)
	}
	prog.Entry = prog.entryLabel()
	return prog, nil
}

// CompileSource splits src into lines and compiles it.
func CompileSource(src string, opts Options) (*Program, error) {
	return Compile(SplitLines(src), opts)
}

// Build compiles src and assembles the emitted native text, the way the
// CLI and the end-to-end tests consume a program.
func Build(src string, opts Options) (string, []uint16, error) {
	prog, err := CompileSource(src, opts)
	if err != nil {
		return "", nil, err
	}

	native := prog.Emit()
	words, _, err := asm.Assemble(native)
	if err != nil {
		return native, nil, fmt.Errorf("assembly error: %w", err)
	}
	return native, words, nil
}

func (p *Program) entryLabel() string {
	if len(p.Instructions) > 0 && p.Instructions[0].Label != "" {
		return p.Instructions[0].Label
	}
	taken := func(l string) bool {
		if _, ok := p.Decl.Labels[l]; ok {
			return true
		}
		_, ok := p.Table.LookupLabel(l)
		return ok
	}
	entry := "main"
	for i := 1; taken(entry); i++ {
		entry = fmt.Sprintf("main_%d", i)
	}
	return entry
}

// Listing returns the instructions one per line in Format notation.
func (p *Program) Listing() string {
	var sb strings.Builder
	for _, ins := range p.Instructions {
		if ins.Label != "" {
			fmt.Fprintf(&sb, "%s:\n", ins.Label)
		}
		fmt.Fprintf(&sb, "  %4d  %s\n", ins.Line, ins.Format(p.Table))
	}
	return sb.String()
}
