package board

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash"
)

// Cell is the content of a single board cell.
type Cell uint8

const (
	Empty Cell = iota
	Player
	CPU
)

// Mover is the side owning a half-move. Only Player and CPU are valid movers.
type Mover = Cell

func (c Cell) String() string {
	switch c {
	case Player:
		return "PLAYER"
	case CPU:
		return "CPU"
	}
	return "EMPTY"
}

// Opponent returns the other side.
func Opponent(m Mover) Mover {
	if m == CPU {
		return Player
	}
	return CPU
}

// Outcome values reported by Evaluate and by workers.
const (
	PlayerWins = -1.0
	CPUWins    = 1.0
)

// WinScore is the outcome attributed to the side that completed a line.
func WinScore(m Mover) float64 {
	if m == CPU {
		return CPUWins
	}
	return PlayerWins
}

const connect = 4

var (
	ErrIllegalMove   = errors.New("illegal move")
	ErrEmptyStack    = errors.New("undo called with no moves on the stack")
	ErrFloatingPiece = errors.New("piece above an empty cell")
	ErrBadLayout     = errors.New("bad board layout")
)

// Position records where a piece was placed. Both indices are 0-based;
// row 0 is the top row.
type Position struct {
	Row    int
	Column int
}

// A Board is a gravity grid plus the stack of moves applied to it since it
// was loaded or rebuilt from a snapshot. A Board is not safe for concurrent
// use; every participant owns its own.
type Board struct {
	rows    int
	columns int
	cells   [][]Cell
	moves   []Position

	verticalWins bool
}

// Option configures a Board.
type Option func(*Board)

// WithVerticalWins makes four stacked pieces in one column end the game.
// Without it only rows and the two diagonal families are checked.
func WithVerticalWins(on bool) Option {
	return func(b *Board) {
		b.verticalWins = on
	}
}

// NewEmpty creates a board with no pieces on it.
func NewEmpty(rows, columns int, opts ...Option) (*Board, error) {
	if rows < 1 || columns < 1 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrBadLayout, rows, columns)
	}
	b := &Board{rows: rows, columns: columns}
	b.cells = make([][]Cell, rows)
	for r := range b.cells {
		b.cells[r] = make([]Cell, columns)
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

func (b *Board) Rows() int    { return b.rows }
func (b *Board) Columns() int { return b.columns }

// VerticalWins reports whether the vertical four rule is on.
func (b *Board) VerticalWins() bool { return b.verticalWins }

// Cell returns the content at a 0-based row (0 is the top) and column.
func (b *Board) Cell(row, column int) Cell {
	return b.cells[row][column]
}

// MoveCount is the depth of the move stack.
func (b *Board) MoveCount() int { return len(b.moves) }

// LastMove returns the top of the move stack.
func (b *Board) LastMove() (Position, bool) {
	if len(b.moves) == 0 {
		return Position{}, false
	}
	return b.moves[len(b.moves)-1], true
}

// IsMoveLegal is true iff column (1-based) is on the board and its top cell
// is empty.
func (b *Board) IsMoveLegal(column int) bool {
	if column < 1 || column > b.columns {
		return false
	}
	return b.cells[0][column-1] == Empty
}

// LegalColumns lists the 1-based columns that still accept a piece.
func (b *Board) LegalColumns() []int {
	cols := make([]int, 0, b.columns)
	for c := 1; c <= b.columns; c++ {
		if b.IsMoveLegal(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// IsFull is true when no column accepts another piece.
func (b *Board) IsFull() bool {
	for c := 1; c <= b.columns; c++ {
		if b.IsMoveLegal(c) {
			return false
		}
	}
	return true
}

// Move drops mover's piece into column (1-based) and pushes it onto the
// move stack.
func (b *Board) Move(column int, mover Mover) error {
	if !b.IsMoveLegal(column) || (mover != Player && mover != CPU) {
		return fmt.Errorf("%w: column %d for %v", ErrIllegalMove, column, mover)
	}
	b.place(column, mover)
	return nil
}

// UndoMove pops the last move and clears its cell.
func (b *Board) UndoMove() error {
	if len(b.moves) == 0 {
		return ErrEmptyStack
	}
	b.pop()
	return nil
}

// IsGameOver checks for four identical pieces in a row or along either
// diagonal, and in a column when vertical wins are on.
func (b *Board) IsGameOver() bool {
	return b.winner() != Empty
}

// Winner returns the side owning a winning line, or Empty.
func (b *Board) Winner() Cell {
	return b.winner()
}

func (b *Board) winner() Cell {
	dirs := [][2]int{
		{0, 1},  // row
		{1, 1},  // top-left to bottom-right
		{1, -1}, // bottom-left to top-right
	}
	if b.verticalWins {
		dirs = append(dirs, [2]int{1, 0})
	}
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.columns; c++ {
			base := b.cells[r][c]
			if base == Empty {
				continue
			}
			for _, d := range dirs {
				if b.lineFrom(r, c, d[0], d[1], base) {
					return base
				}
			}
		}
	}
	return Empty
}

func (b *Board) lineFrom(r, c, dr, dc int, base Cell) bool {
	endR, endC := r+dr*(connect-1), c+dc*(connect-1)
	if endR < 0 || endR >= b.rows || endC < 0 || endC >= b.columns {
		return false
	}
	for k := 1; k < connect; k++ {
		if b.cells[r+dr*k][c+dc*k] != base {
			return false
		}
	}
	return true
}

// Copy returns a deep copy, move stack included.
func (b *Board) Copy() *Board {
	n := &Board{
		rows:         b.rows,
		columns:      b.columns,
		cells:        make([][]Cell, b.rows),
		moves:        make([]Position, len(b.moves)),
		verticalWins: b.verticalWins,
	}
	for r := range b.cells {
		n.cells[r] = make([]Cell, b.columns)
		copy(n.cells[r], b.cells[r])
	}
	copy(n.moves, b.moves)
	return n
}

// Equals compares dimensions, rules and cells. The move stack is ignored.
func (b *Board) Equals(o *Board) bool {
	if b.rows != o.rows || b.columns != o.columns || b.verticalWins != o.verticalWins {
		return false
	}
	for r := range b.cells {
		for c := range b.cells[r] {
			if b.cells[r][c] != o.cells[r][c] {
				return false
			}
		}
	}
	return true
}

// Fingerprint hashes the dimensions and cells.
func (b *Board) Fingerprint() uint64 {
	buf := make([]byte, 0, 8+b.rows*b.columns)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(b.rows))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(b.columns))
	for _, row := range b.cells {
		for _, cell := range row {
			buf = append(buf, byte(cell))
		}
	}
	return xxhash.Sum64(buf)
}

// checkGravity verifies no piece sits above an empty cell.
func (b *Board) checkGravity() error {
	for c := 0; c < b.columns; c++ {
		seen := false
		for r := 0; r < b.rows; r++ {
			if b.cells[r][c] != Empty {
				seen = true
			} else if seen {
				return fmt.Errorf("%w: column %d row %d", ErrFloatingPiece, c+1, r+1)
			}
		}
	}
	return nil
}
