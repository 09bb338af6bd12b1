package compiler

import (
	"fmt"
	"strings"
	"testing"
)

// simpleSource is the canonical doubling program.
const simpleSource = `
let $x = $5
add $x $x
output
halt
`

// complexSource sums an eight-word array through offset addressing and
// exercises every addressing mode.
var complexSource = func() string {
	var sb strings.Builder
	sb.WriteString("let $arr\nlet $i\nlet $sum\nlet $lim = $8\nlet $p\n")
	sb.WriteString("load &arr\nstore $p\n")
	sb.WriteString("loop: load $i\nsubt $lim\nskipcond lt\njump done\n")
	sb.WriteString("add $sum @p[$i]\nadd $i $1\njump loop\n")
	sb.WriteString("done: load $sum\nsubt @p\nsubt @p[$3]\noutput\nhalt\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "let $v%d = $%d\nadd $v%d $sum $%d\n", i, i, i, i*3)
	}
	return sb.String()
}()

// --- Declaration pass benchmarks ---

func BenchmarkDeclare_Simple(b *testing.B) {
	lines := SplitLines(simpleSource)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Declare(lines, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDeclare_Complex(b *testing.B) {
	lines := SplitLines(complexSource)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Declare(lines, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}

// --- Full pipeline benchmarks (Declare + Lower + Emit) ---

func benchmarkPipeline(b *testing.B, src string, workers int) {
	lines := SplitLines(src)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prog, err := Compile(lines, Options{Workers: workers})
		if err != nil {
			b.Fatal(err)
		}
		_ = prog.Emit()
	}
}

func BenchmarkCompilerPipeline_Simple(b *testing.B) {
	benchmarkPipeline(b, simpleSource, 1)
}

func BenchmarkCompilerPipeline_Complex(b *testing.B) {
	benchmarkPipeline(b, complexSource, 1)
}

func BenchmarkCompilerPipeline_ComplexParallel(b *testing.B) {
	benchmarkPipeline(b, complexSource, 8)
}
