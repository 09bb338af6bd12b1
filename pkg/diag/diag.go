// Package diag renders compiler failures for humans: a header line, the
// offending source line with its neighbours, and a caret under the token.
package diag

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gomarie/pkg/compiler"
)

const (
	colorReset = "\x1b[0m"
	colorRed   = "\x1b[31m"
	colorBold  = "\x1b[1m"
)

func colorize(s, c string, on bool) string {
	if !on {
		return s
	}
	return c + s + colorReset
}

// Render formats err. src is the full original source and may be empty, in
// which case the snippet falls back to the line text carried by the error.
func Render(err error, src string, color bool) string {
	var ce *compiler.CompileError
	if !errors.As(err, &ce) || ce.Line == 0 {
		return colorize("error", colorRed, color) + ": " + err.Error() + "\n"
	}

	var lines []string
	if src != "" {
		lines = strings.Split(src, "\n")
	}
	lineTxt := ce.Text
	if ce.Line <= len(lines) {
		lineTxt = strings.TrimRight(lines[ce.Line-1], "\r")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at line %d: %s\n\n", colorize("error", colorRed, color), ce.Line, detail(ce))
	if ce.Line > 1 && ce.Line-1 <= len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", ce.Line-1, lines[ce.Line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", ce.Line, lineTxt)

	col, width := tokenSpan(lineTxt, ce.Token)
	marker := "^" + strings.Repeat("~", max(width-1, 0))
	fmt.Fprintf(&b, "     | %s%s\n", caretPad(lineTxt, col), colorize(marker, colorRed+colorBold, color))
	if ce.Line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", ce.Line+1, lines[ce.Line])
	}
	return b.String()
}

func detail(ce *compiler.CompileError) string {
	msg := ce.Kind.Error()
	if ce.Token != "" {
		msg = fmt.Sprintf("%s %q", msg, ce.Token)
	}
	if ce.Msg != "" {
		msg += ": " + ce.Msg
	}
	return msg
}

// tokenSpan finds token in line as a whole word, falling back to a plain
// substring match and then to the first non-blank column.
func tokenSpan(line, token string) (col, width int) {
	if token != "" {
		for _, f := range fieldsWithOffsets(line) {
			if f.text == token {
				return f.start, len(token)
			}
		}
		if i := strings.Index(line, token); i >= 0 {
			return i, len(token)
		}
	}
	trimmed := strings.TrimLeft(line, " \t")
	return len(line) - len(trimmed), 1
}

type field struct {
	text  string
	start int
}

func fieldsWithOffsets(line string) []field {
	var out []field
	start := -1
	for i, r := range line {
		blank := r == ' ' || r == '\t'
		switch {
		case !blank && start < 0:
			start = i
		case blank && start >= 0:
			out = append(out, field{line[start:i], start})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, field{line[start:], start})
	}
	return out
}

// caretPad keeps tabs so the caret lines up with tab-indented source.
func caretPad(line string, col int) string {
	var b strings.Builder
	for i := 0; i < col && i < len(line); i++ {
		if line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// ColorEnabled resolves a color mode (auto, always, never) for f. NO_COLOR
// disables auto mode.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if f == nil {
		return false
	}
	return isTerminal(int(f.Fd()))
}
