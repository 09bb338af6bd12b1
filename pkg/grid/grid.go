// Package grid maps a linear memory index onto a cols-wide grid, the way
// the front panel lays out words.
package grid

func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// GetIndex is the inverse of GetGridCoords.
func GetIndex(x, y, cols int) int {
	return y*cols + x
}

// Rows returns how many rows of cols words are needed to hold n words.
func Rows(n, cols int) int {
	return (n + cols - 1) / cols
}
