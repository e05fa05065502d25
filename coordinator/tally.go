package coordinator

import (
	"slices"

	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/fPolic/Connect4-MPI/stats"
)

const confidence = 95.0

// tally collects result scores per root column (1-based).
type tally struct {
	columns []stats.Running
}

func newTally(columns int) *tally {
	return &tally{columns: make([]stats.Running, columns+1)}
}

func (t *tally) add(column int, score float64) bool {
	if column < 1 || column >= len(t.columns) {
		return false
	}
	t.columns[column].Push(score)
	return true
}

// summarize returns the mean and the confidence half width of each given
// column, skipping columns with no scores.
func (t *tally) summarize(columns []int) (means, spread map[int]float64) {
	means = make(map[int]float64, len(columns))
	spread = make(map[int]float64, len(columns))
	for _, c := range columns {
		if c < 1 || c >= len(t.columns) || t.columns[c].Count() == 0 {
			continue
		}
		means[c] = t.columns[c].Mean()
		spread[c] = t.columns[c].HalfWidth(confidence)
	}
	return means, spread
}

// best returns the column with the highest mean. Ties are broken uniformly
// at random. ok is false when means is empty.
func best(means map[int]float64) (column int, ok bool) {
	if len(means) == 0 {
		return 0, false
	}
	top := lo.Max(lo.Values(means))
	cands := lo.Filter(lo.Keys(means), func(c int, _ int) bool {
		return means[c] == top
	})
	slices.Sort(cands)
	return cands[frand.Intn(len(cands))], true
}
