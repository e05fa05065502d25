package worker

import (
	"errors"
	"fmt"

	"github.com/fPolic/Connect4-MPI/board"
	"github.com/fPolic/Connect4-MPI/task"
)

// ErrBoardDrift means a task replay did not leave the board as it found it.
var ErrBoardDrift = errors.New("board drifted during task replay")

// moverAt returns who plays the i-th move of a task. The CPU always opens.
func moverAt(i int) board.Mover {
	if i%2 == 0 {
		return board.CPU
	}
	return board.Player
}

// EvaluateTask replays t on b, scores the resulting position and restores b.
// Columns that are not legal when their turn comes are skipped, but the
// mover still follows the task index. If a move ends the game the score is
// that mover's win; otherwise the position is evaluated for the last mover
// with the depth that remains of horizon.
func EvaluateTask(b *board.Board, t task.Task, horizon int) (float64, error) {
	fp := b.Fingerprint()
	height := b.MoveCount()

	applied := 0
	last := board.CPU
	score := 0.0
	terminal := false
	for i, col := range t {
		if !b.IsMoveLegal(col) {
			continue
		}
		mover := moverAt(i)
		if err := b.Move(col, mover); err != nil {
			return 0, err
		}
		applied++
		last = mover
		if b.IsGameOver() {
			score = board.WinScore(mover)
			terminal = true
			break
		}
	}
	if !terminal {
		remaining := horizon - len(t)
		if remaining < 0 {
			remaining = 0
		}
		score = b.Evaluate(last, remaining)
	}

	for ; applied > 0; applied-- {
		if err := b.UndoMove(); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrBoardDrift, err)
		}
	}
	if b.MoveCount() != height || b.Fingerprint() != fp {
		return 0, fmt.Errorf("%w: task %v", ErrBoardDrift, t)
	}
	return score, nil
}
