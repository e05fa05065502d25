// Package coordinator owns the task bag for a CPU move. It broadcasts the
// position, hands out tasks to whichever worker asks, and picks the column
// with the best mean result once every handed out task has reported back.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fPolic/Connect4-MPI/board"
	"github.com/fPolic/Connect4-MPI/message"
	"github.com/fPolic/Connect4-MPI/task"
	"github.com/fPolic/Connect4-MPI/transport"
)

var (
	ErrNoLegalMove = errors.New("no legal move")
	ErrNoResults   = errors.New("no results for any legal column")
	ErrNoWorkers   = errors.New("no workers")
)

type State int

const (
	Idle State = iota
	Broadcasting
	Dispatching
	Aggregating
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Broadcasting:
		return "broadcasting"
	case Dispatching:
		return "dispatching"
	case Aggregating:
		return "aggregating"
	case Done:
		return "done"
	}
	return "unknown"
}

// SearchResult is the outcome of one distributed search.
type SearchResult struct {
	Column int
	Means  map[int]float64
	// Spread is the 95% confidence half width of each mean.
	Spread  map[int]float64
	Tasks   int
	Results int
	Elapsed time.Duration
}

type Coordinator struct {
	hub    transport.Hub
	config Config
	state  State
	// stale counts, per worker, task requests that were answered with
	// BoardComplete after dispatch ended and have not arrived yet.
	stale map[int]int
}

func New(hub transport.Hub, cfg Config) *Coordinator {
	return &Coordinator{hub: hub, config: cfg, stale: make(map[int]int)}
}

func (c *Coordinator) State() State { return c.state }

func (c *Coordinator) setState(s State) {
	log.Debug().Str("from", c.state.String()).Str("to", s.String()).Msg("coordinator-state")
	c.state = s
}

// Search finds the CPU's move on b. b is not modified.
func (c *Coordinator) Search(ctx context.Context, b *board.Board) (*SearchResult, error) {
	start := time.Now()
	legal := b.LegalColumns()
	if len(legal) == 0 {
		return nil, ErrNoLegalMove
	}
	if len(c.hub.Workers()) == 0 {
		return nil, ErrNoWorkers
	}
	tasks, err := task.Generate(b.Columns(), c.config.Depth)
	if err != nil {
		return nil, err
	}
	defer c.setState(Idle)

	c.setState(Broadcasting)
	err = c.hub.Broadcast(ctx, message.SendBoard{Snapshot: b.Snapshot(), Horizon: c.config.Horizon})
	if err != nil {
		return nil, fmt.Errorf("broadcasting board: %w", err)
	}

	c.setState(Dispatching)
	bag := task.NewBag(tasks, c.config.ShuffleTasks)
	t, results, released, err := c.dispatch(ctx, bag, b.Columns())
	if err != nil {
		return nil, err
	}
	if err := c.release(ctx, released); err != nil {
		return nil, err
	}

	c.setState(Aggregating)
	means, spread := t.summarize(legal)
	column, ok := best(means)
	if !ok {
		return nil, ErrNoResults
	}
	c.setState(Done)

	res := &SearchResult{
		Column:  column,
		Means:   means,
		Spread:  spread,
		Tasks:   bag.Total(),
		Results: results,
		Elapsed: time.Since(start),
	}
	log.Info().
		Int("tasks", res.Tasks).
		Int("results", res.Results).
		Dur("elapsed", res.Elapsed).
		Int("column", res.Column).
		Interface("means", res.Means).
		Msg("search-complete")
	return res, nil
}

// dispatch answers requests until the bag is empty and every handed out
// task has reported back. It returns the workers that were already told
// the board is complete.
func (c *Coordinator) dispatch(ctx context.Context, bag *task.Bag, columns int) (*tally, int, map[int]bool, error) {
	workers := len(c.hub.Workers())
	released := make(map[int]bool, workers)
	outstanding := make(map[int]int, workers)
	pending := 0
	results := 0
	t := newTally(columns)

	for bag.Len() > 0 || pending > 0 {
		env, err := c.hub.Recv(ctx)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("dispatching: %w", err)
		}
		switch m := env.Msg.(type) {
		case message.TaskRequest:
			if c.stale[env.From] > 0 {
				c.stale[env.From]--
				log.Debug().Int("worker", env.From).Msg("dropping-stale-request")
				continue
			}
			if released[env.From] {
				log.Warn().Int("worker", env.From).Msg("request-after-release")
				continue
			}
			next, ok := bag.Pop()
			if !ok {
				if err := c.hub.Send(ctx, env.From, message.BoardComplete{}); err != nil {
					return nil, 0, nil, err
				}
				released[env.From] = true
				continue
			}
			if err := c.hub.Send(ctx, env.From, message.SendTask{Task: next}); err != nil {
				return nil, 0, nil, err
			}
			outstanding[env.From]++
			pending++

		case message.SendResult:
			if outstanding[env.From] == 0 {
				log.Warn().Int("worker", env.From).Msg("unexpected-result")
				continue
			}
			outstanding[env.From]--
			pending--
			results++
			if !t.add(m.RootColumn, m.Score) {
				log.Warn().Int("worker", env.From).Int("column", m.RootColumn).Msg("result-column-out-of-range")
			}

		default:
			log.Warn().Int("worker", env.From).Str("kind", env.Msg.Kind().String()).Msg("unexpected-message")
		}
	}
	log.Debug().Int("results", results).Int("workers", workers).Msg("dispatch-finished")
	return t, results, released, nil
}

// release tells every worker that dispatch did not release that the board
// is complete. A live worker has a request in flight that the next search
// must drop; a worker that went quiet never sends one.
func (c *Coordinator) release(ctx context.Context, released map[int]bool) error {
	for _, id := range c.hub.Workers() {
		if released[id] {
			continue
		}
		if err := c.hub.Send(ctx, id, message.BoardComplete{}); err != nil {
			return fmt.Errorf("releasing worker %d: %w", id, err)
		}
		c.stale[id]++
		log.Debug().Int("worker", id).Msg("released-after-dispatch")
	}
	return nil
}

// PlayCPUMove searches b and plays the chosen column for the CPU.
func (c *Coordinator) PlayCPUMove(ctx context.Context, b *board.Board) (*SearchResult, error) {
	res, err := c.Search(ctx, b)
	if err != nil {
		return nil, err
	}
	if err := b.Move(res.Column, board.CPU); err != nil {
		return nil, err
	}
	return res, nil
}

// Close shuts down the workers.
func (c *Coordinator) Close() error {
	return c.hub.Close()
}
