package board

// Evaluate scores the position for the side that just moved (mover),
// searching depth more plies. The result lies in [-1, 1]: PlayerWins and
// CPUWins are forced outcomes, anything in between is the mean of the
// children. There is no alpha-beta window; the search only stops early when
// the side to move finds a line that wins on the spot.
//
// A full board with no line scores 0 (draw) rather than counting as a forced
// win for either side.
func (b *Board) Evaluate(mover Mover, depth int) float64 {
	if b.IsGameOver() {
		return WinScore(mover)
	}
	if depth == 0 {
		return 0
	}

	next := Opponent(mover)
	allCPU, allPlayer := true, true
	total := 0.0
	children := 0

	for column := 1; column <= b.columns; column++ {
		if !b.IsMoveLegal(column) {
			continue
		}
		children++
		b.place(column, next)
		result := b.Evaluate(next, depth-1)
		b.pop()

		if result > PlayerWins {
			allPlayer = false
		}
		if result != CPUWins {
			allCPU = false
		}
		if result == CPUWins && next == CPU {
			return CPUWins
		}
		if result == PlayerWins && next == Player {
			return PlayerWins
		}
		total += result
	}

	if children == 0 {
		return 0
	}
	if allCPU {
		return CPUWins
	}
	if allPlayer {
		return PlayerWins
	}
	return total / float64(children)
}

// place and pop are Move/UndoMove for callers that already checked
// legality and stack depth.
func (b *Board) place(column int, mover Mover) {
	c := column - 1
	row := b.rows - 1
	for r := 0; r < b.rows; r++ {
		if b.cells[r][c] != Empty {
			row = r - 1
			break
		}
	}
	b.cells[row][c] = mover
	b.moves = append(b.moves, Position{Row: row, Column: c})
}

func (b *Board) pop() {
	last := b.moves[len(b.moves)-1]
	b.moves = b.moves[:len(b.moves)-1]
	b.cells[last.Row][last.Column] = Empty
}
