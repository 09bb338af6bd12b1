// Package compiler lowers the gomarie pseudo-assembly language into the
// native text assembly of a single-accumulator machine.
//
// Pipeline: source lines → Declaration pass (frozen SymbolTable) → Lower →
// Expand → native assembly text
package compiler
