package board

import (
	"fmt"
	"strings"
)

const headerColor = "\033[95m"
const resetColor = "\033[0m"

func (c Cell) symbol() string {
	switch c {
	case Player:
		return "X"
	case CPU:
		return "O"
	}
	return " "
}

// ToDisplayText draws the board for a terminal. The header row numbers the
// columns the way the human is asked to enter them.
func (b *Board) ToDisplayText(color bool) string {
	var sb strings.Builder
	sep := strings.Repeat("- ", b.columns*2+1) + "\n"

	if color {
		sb.WriteString(headerColor)
	}
	for c := 1; c <= b.columns; c++ {
		fmt.Fprintf(&sb, "| %d ", c)
	}
	sb.WriteString("|\n")
	if color {
		sb.WriteString(resetColor)
	}
	sb.WriteString(sep)
	for _, row := range b.cells {
		for _, cell := range row {
			sb.WriteString("| " + cell.symbol() + " ")
		}
		sb.WriteString("|\n")
		sb.WriteString(sep)
	}
	return sb.String()
}

func (b *Board) String() string {
	return b.ToDisplayText(false)
}
