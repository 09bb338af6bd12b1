package utils

import (
	"path/filepath"
	"testing"
)

func TestGetPathInfo(t *testing.T) {
	full, dir, err := GetPathInfo("a/b/../c.pasm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(full) {
		t.Errorf("expected absolute path, got %q", full)
	}
	if filepath.Base(full) != "c.pasm" || filepath.Base(dir) != "a" {
		t.Errorf("unexpected result %q, %q", full, dir)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		in, ext, want string
	}{
		{"prog.pasm", ".mas", "prog.mas"},
		{"dir/prog.mas", ".bin", "dir/prog.bin"},
		{"noext", ".mas", "noext.mas"},
	}
	for _, tc := range tests {
		if got := DefaultOutputPath(tc.in, tc.ext); got != tc.want {
			t.Errorf("DefaultOutputPath(%q, %q) = %q; want %q", tc.in, tc.ext, got, tc.want)
		}
	}
}

func TestIsNative(t *testing.T) {
	if !IsNative("x.mas") || !IsNative("x.MAS") {
		t.Errorf("expected .mas to be native")
	}
	if IsNative("x.pasm") {
		t.Errorf("expected .pasm to be source")
	}
}
