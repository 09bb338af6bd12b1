package main

import (
	"fmt"
	"os"

	"gomarie/pkg/asm"
	"gomarie/pkg/compiler"
	"gomarie/pkg/config"
	"gomarie/pkg/diag"
)

const testSource = `let $x = $10
let $y = $20
let $p = $0
store &y
store $p
add @p $x $5
output
halt
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}
	cfg := config.Load()
	opts := cfg.CompileOptions()
	color := diag.ColorEnabled(cfg.Color, os.Stderr)

	lines := compiler.SplitLines(src)
	fmt.Printf("Source lines (%d)\n", len(lines))
	for _, l := range lines {
		fmt.Printf("  %4d  %s\n", l.Num, l.Content)
	}
	fmt.Println()

	// Declaration pass
	decl, err := compiler.Declare(lines, opts)
	if err != nil {
		fmt.Fprint(os.Stderr, diag.Render(err, src, color))
		os.Exit(1)
	}
	fmt.Print(decl.Table)
	if decl.UsesSubtract {
		fmt.Println("  (links " + compiler.SubtractRoutine + ")")
	}
	fmt.Println()

	// Lowering
	prog, err := compiler.Compile(lines, opts)
	if err != nil {
		fmt.Fprint(os.Stderr, diag.Render(err, src, color))
		os.Exit(1)
	}
	fmt.Printf("Instructions (%d), entry %s\n", len(prog.Instructions), prog.Entry)
	fmt.Print(prog.Listing())
	fmt.Println()

	// Expansion
	native := prog.Emit()
	fmt.Println("Native Assembly")
	fmt.Print(native)
	fmt.Println()

	// Assembly
	a := asm.NewAssembler()
	words, _, err := a.Assemble(native)
	if err != nil {
		fmt.Fprintln(os.Stderr, "assembly error:", err)
		os.Exit(1)
	}
	labels := a.Labels()
	byAddr := make(map[uint16]string, len(labels))
	for _, name := range a.SortedLabels() {
		if _, taken := byAddr[labels[name]]; !taken {
			byAddr[labels[name]] = name
		}
	}
	fmt.Printf("Image (%d words)\n", len(words))
	for addr, w := range words {
		fmt.Printf("  %03X  %04X  %-12s %s\n", addr, w, byAddr[uint16(addr)], asm.Disassemble(w))
	}
}
