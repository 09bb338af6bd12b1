package asm

import (
	"testing"
)

func TestAssembleSourceMap(t *testing.T) {
	code := `
/ Line 2: comment
	load x      / Line 3: word 0
                / Line 4: empty
loop,           / Line 5: label only, points at word 1
	add x       / Line 6: word 1
	org 10      / Line 7: pad to word 0x10
	halt        / Line 8: word 0x10
x,	dec 3       / Line 9: word 0x11
`
	_, sourceMap, err := Assemble(code)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	tests := []struct {
		addr uint16
		line int
	}{
		{0x0000, 3},
		{0x0001, 6},
		{0x0010, 8},
		{0x0011, 9},
	}

	for _, tc := range tests {
		if got := sourceMap[tc.addr]; got != tc.line {
			t.Errorf("sourceMap[0x%04X] = %d; want %d", tc.addr, got, tc.line)
		}
	}
	if _, ok := sourceMap[0x0002]; ok {
		t.Errorf("sourceMap[0x0002] should be empty padding")
	}
}
