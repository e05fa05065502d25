package board

import "fmt"

// Snapshot is a value copy of a board's grid and rules. It is what travels
// from the coordinator to the workers; the move stack does not.
type Snapshot struct {
	Rows         int
	Columns      int
	Cells        []Cell // row-major, row 0 on top
	VerticalWins bool
}

// Snapshot copies the current grid out of the board.
func (b *Board) Snapshot() Snapshot {
	s := Snapshot{
		Rows:         b.rows,
		Columns:      b.columns,
		Cells:        make([]Cell, 0, b.rows*b.columns),
		VerticalWins: b.verticalWins,
	}
	for _, row := range b.cells {
		s.Cells = append(s.Cells, row...)
	}
	return s
}

// FromSnapshot rebuilds an independent board with an empty move stack.
func FromSnapshot(s Snapshot) (*Board, error) {
	if len(s.Cells) != s.Rows*s.Columns {
		return nil, fmt.Errorf("%w: %d cells for %dx%d", ErrBadLayout, len(s.Cells), s.Rows, s.Columns)
	}
	b, err := NewEmpty(s.Rows, s.Columns, WithVerticalWins(s.VerticalWins))
	if err != nil {
		return nil, err
	}
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Columns; c++ {
			cell := s.Cells[r*s.Columns+c]
			if cell > CPU {
				return nil, fmt.Errorf("%w: cell value %d", ErrBadLayout, cell)
			}
			b.cells[r][c] = cell
		}
	}
	if err := b.checkGravity(); err != nil {
		return nil, err
	}
	return b, nil
}
