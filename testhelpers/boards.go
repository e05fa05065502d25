package testhelpers

import (
	"testing"

	"github.com/fPolic/Connect4-MPI/board"
)

// MustBoard builds a board from layout rows, top row first, failing the test
// on a bad layout.
func MustBoard(t testing.TB, rows ...string) *board.Board {
	t.Helper()
	b, err := board.FromRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// EmptyBoard is the standard 6x7 board.
func EmptyBoard(t testing.TB) *board.Board {
	t.Helper()
	b, err := board.NewEmpty(6, 7)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
