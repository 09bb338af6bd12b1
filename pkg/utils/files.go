package utils

import (
	"path/filepath"
	"strings"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// DefaultOutputPath replaces the extension of in with ext, e.g.
// "prog.pasm" + ".mas" gives "prog.mas".
func DefaultOutputPath(in, ext string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ext
}

// IsNative reports whether path names native assembly rather than source.
func IsNative(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mas")
}
