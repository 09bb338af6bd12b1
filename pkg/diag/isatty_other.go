//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package diag

func isTerminal(fd int) bool { return false }
