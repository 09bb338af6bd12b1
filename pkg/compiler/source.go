package compiler

import (
	"io"
	"strings"
)

// SourceLine is one non-blank, comment-stripped line of source together
// with its position in the original file.
type SourceLine struct {
	Num     int
	Content string
}

// ReadLines reads all of r and splits it with SplitLines.
func ReadLines(r io.Reader) ([]SourceLine, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return SplitLines(string(data)), nil
}

// SplitLines drops trailing `//` comments and blank lines. Num always
// reflects the original 1-based position.
func SplitLines(src string) []SourceLine {
	var lines []SourceLine
	for i, raw := range strings.Split(src, "\n") {
		content := strings.TrimSpace(stripComment(raw))
		if content == "" {
			continue
		}
		lines = append(lines, SourceLine{Num: i + 1, Content: content})
	}
	return lines
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}
