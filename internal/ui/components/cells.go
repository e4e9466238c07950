package components

import "github.com/charmbracelet/x/ansi"

// truncateCells keeps the first n visible cells of a styled string.
func truncateCells(s string, n int) string {
	return ansi.Truncate(s, n, "")
}

// skipCells drops the first n visible cells of a styled string.
func skipCells(s string, n int) string {
	return ansi.TruncateLeft(s, n, "")
}
