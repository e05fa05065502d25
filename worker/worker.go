package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fPolic/Connect4-MPI/board"
	"github.com/fPolic/Connect4-MPI/message"
	"github.com/fPolic/Connect4-MPI/transport"
)

// Agent waits for boards from the coordinator and works through the
// coordinator's task bag until it is released.
type Agent struct {
	config *AgentConfig
	link   transport.Link

	boards int
	tasks  int
}

// NewAgent creates a new worker on link.
func NewAgent(link transport.Link, cfg *AgentConfig) *Agent {
	return &Agent{config: cfg, link: link}
}

// Run starts the worker main loop. It returns nil once the coordinator has
// shut the computation down.
func (a *Agent) Run(ctx context.Context) error {
	log.Info().
		Int("worker", a.link.ID()).
		Int("horizon", a.config.Horizon).
		Msg("starting worker")

	for {
		m, err := a.link.Recv(ctx)
		if errors.Is(err, transport.ErrShutdown) {
			log.Info().
				Int("worker", a.link.ID()).
				Int("boards", a.boards).
				Int("tasks", a.tasks).
				Msg("worker shutting down")
			return nil
		}
		if err != nil {
			return err
		}

		sb, ok := m.(message.SendBoard)
		if !ok {
			log.Warn().
				Int("worker", a.link.ID()).
				Str("kind", m.Kind().String()).
				Msg("ignoring message while idle")
			continue
		}
		err = a.work(ctx, sb)
		if errors.Is(err, transport.ErrShutdown) {
			continue
		}
		if err != nil {
			return err
		}
	}
}

// work handles one board: request, evaluate, report, until BOARD_COMPLETE.
func (a *Agent) work(ctx context.Context, sb message.SendBoard) error {
	b, err := board.FromSnapshot(sb.Snapshot)
	if err != nil {
		return fmt.Errorf("worker %d: %w", a.link.ID(), err)
	}
	horizon := sb.Horizon
	if horizon == 0 {
		horizon = a.config.Horizon
	}
	a.boards++
	log.Debug().
		Int("worker", a.link.ID()).
		Int("moves", b.MoveCount()).
		Int("horizon", horizon).
		Msg("received board")

	done := 0
	for {
		if err := a.link.Send(ctx, message.TaskRequest{}); err != nil {
			return err
		}
		reply, err := a.link.Recv(ctx)
		if err != nil {
			return err
		}
		switch r := reply.(type) {
		case message.BoardComplete:
			log.Debug().
				Int("worker", a.link.ID()).
				Int("tasks", done).
				Msg("board complete")
			return nil
		case message.SendTask:
			score, err := EvaluateTask(b, r.Task, horizon)
			if err != nil {
				return fmt.Errorf("worker %d: %w", a.link.ID(), err)
			}
			log.Debug().
				Int("worker", a.link.ID()).
				Ints("task", r.Task).
				Float64("score", score).
				Msg("task evaluated")
			res := message.SendResult{Score: score, RootColumn: r.Task.Root()}
			if err := a.link.Send(ctx, res); err != nil {
				return err
			}
			done++
			a.tasks++
		default:
			return fmt.Errorf("worker %d: unexpected %s while working", a.link.ID(), reply.Kind())
		}
	}
}
