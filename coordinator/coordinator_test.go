package coordinator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"lukechampine.com/frand"

	"github.com/fPolic/Connect4-MPI/board"
	"github.com/fPolic/Connect4-MPI/message"
	"github.com/fPolic/Connect4-MPI/task"
	"github.com/fPolic/Connect4-MPI/testhelpers"
	"github.com/fPolic/Connect4-MPI/transport"
)

var errStalled = errors.New("no scripted worker has anything to say")

type scriptedWorker struct {
	outbox   []message.Message
	released bool

	// quietAfter stops the worker asking for more work after that many
	// results. Zero never stops.
	quietAfter int
	results    int

	// requests and replies count TaskRequests sent and the SendTask or
	// BoardComplete answers received over the hub's lifetime.
	requests int
	replies  int
}

func (w *scriptedWorker) request() {
	w.outbox = append(w.outbox, message.TaskRequest{})
	w.requests++
}

// scriptedHub plays every worker itself. Recv delivers the next message of a
// randomly chosen worker, so requests and results interleave arbitrarily
// while each worker's own order is kept.
type scriptedHub struct {
	ids     []int
	workers map[int]*scriptedWorker
	score   func(task.Task) float64
	seen    map[string]int
	boards  int

	// prefer is delivered from first whenever it has something queued.
	prefer int
}

func newScriptedHub(n int, score func(task.Task) float64) *scriptedHub {
	h := &scriptedHub{workers: map[int]*scriptedWorker{}, score: score}
	for i := 1; i <= n; i++ {
		h.ids = append(h.ids, i)
		h.workers[i] = &scriptedWorker{}
	}
	return h
}

func (h *scriptedHub) Workers() []int { return h.ids }

func (h *scriptedHub) Broadcast(ctx context.Context, m message.Message) error {
	h.boards++
	h.seen = map[string]int{}
	for _, w := range h.workers {
		// a request left over from the last board stays queued ahead
		w.released = false
		w.request()
	}
	return nil
}

func (h *scriptedHub) Send(ctx context.Context, id int, m message.Message) error {
	w, ok := h.workers[id]
	if !ok {
		return transport.ErrUnknownWorker
	}
	switch msg := m.(type) {
	case message.SendTask:
		h.seen[fmt.Sprint(msg.Task)]++
		w.replies++
		w.results++
		w.outbox = append(w.outbox,
			message.SendResult{Score: h.score(msg.Task), RootColumn: msg.Task.Root()})
		if w.quietAfter == 0 || w.results < w.quietAfter {
			w.request()
		}
	case message.BoardComplete:
		w.replies++
		w.released = true
	}
	return nil
}

func (h *scriptedHub) Recv(ctx context.Context) (transport.Envelope, error) {
	var ready []int
	for _, id := range h.ids {
		if len(h.workers[id].outbox) > 0 {
			ready = append(ready, id)
		}
	}
	if len(ready) == 0 {
		return transport.Envelope{}, errStalled
	}
	id := ready[frand.Intn(len(ready))]
	if p, ok := h.workers[h.prefer]; ok && len(p.outbox) > 0 {
		id = h.prefer
	}
	w := h.workers[id]
	m := w.outbox[0]
	w.outbox = w.outbox[1:]
	return transport.Envelope{From: id, Msg: m}, nil
}

func (h *scriptedHub) Close() error { return nil }

func rootScore(best int) func(task.Task) float64 {
	return func(t task.Task) float64 {
		if t.Root() == best {
			return board.CPUWins
		}
		return -0.5
	}
}

func TestDispatchDrainsBagOverSeveralPasses(t *testing.T) {
	is := is.New(t)
	hub := newScriptedHub(5, rootScore(3))
	c := New(hub, Config{Depth: 3, Horizon: 3, ShuffleTasks: true})
	b := testhelpers.EmptyBoard(t)

	for pass := 0; pass < 3; pass++ {
		res, err := c.Search(context.Background(), b)
		is.NoErr(err)
		is.Equal(res.Column, 3)
		is.Equal(res.Tasks, 343)
		is.Equal(res.Results, 343)
		is.Equal(len(res.Means), 7)
		is.Equal(res.Means[3], 1.0)
		is.Equal(res.Means[1], -0.5)

		is.Equal(len(hub.seen), 343)
		for k, n := range hub.seen {
			if n != 1 {
				t.Fatalf("task %s handed out %d times", k, n)
			}
		}
		for id, w := range hub.workers {
			if !w.released {
				t.Fatalf("worker %d not released", id)
			}
			if w.replies != w.requests {
				t.Fatalf("worker %d sent %d requests, got %d replies", id, w.requests, w.replies)
			}
		}
		is.Equal(c.State(), Idle)
	}
	is.Equal(hub.boards, 3)
	is.Equal(b.MoveCount(), 0)
}

func TestSearchFinishesWhenAWorkerGoesQuiet(t *testing.T) {
	is := is.New(t)
	hub := newScriptedHub(2, rootScore(4))
	hub.workers[2].quietAfter = 1
	hub.prefer = 2
	c := New(hub, Config{Depth: 1, Horizon: 1})

	res, err := c.Search(context.Background(), testhelpers.EmptyBoard(t))
	is.NoErr(err)
	is.Equal(res.Column, 4)
	is.Equal(res.Results, 7)
	is.Equal(hub.workers[2].results, 1)
	is.Equal(hub.workers[1].results, 6)
	// the quiet worker is told the board is complete anyway
	is.True(hub.workers[2].released)
	is.True(hub.workers[1].released)
	is.Equal(c.State(), Idle)
}

func TestStaleRequestIsDroppedOnNextSearch(t *testing.T) {
	is := is.New(t)
	hub := newScriptedHub(1, rootScore(2))
	c := New(hub, Config{Depth: 1, Horizon: 1})
	b := testhelpers.EmptyBoard(t)

	_, err := c.Search(context.Background(), b)
	is.NoErr(err)
	w := hub.workers[1]
	// last request still queued, already answered with BoardComplete
	is.Equal(len(w.outbox), 1)
	is.Equal(w.requests, w.replies)

	res, err := c.Search(context.Background(), b)
	is.NoErr(err)
	is.Equal(res.Results, 7)
	is.Equal(w.results, 14)
	is.Equal(w.requests, w.replies)
}

func TestMoreWorkersThanTasks(t *testing.T) {
	is := is.New(t)
	hub := newScriptedHub(10, rootScore(6))
	c := New(hub, Config{Depth: 1, Horizon: 1})
	res, err := c.Search(context.Background(), testhelpers.EmptyBoard(t))
	is.NoErr(err)
	is.Equal(res.Column, 6)
	is.Equal(res.Results, 7)
}

func TestIllegalRootColumnsAreIgnored(t *testing.T) {
	is := is.New(t)
	b := testhelpers.MustBoard(t,
		".X.....",
		".O.....",
		".X.....",
		".O.....",
		".X.....",
		".O.....",
	)
	hub := newScriptedHub(2, rootScore(2))
	c := New(hub, Config{Depth: 2, Horizon: 2})
	res, err := c.Search(context.Background(), b)
	is.NoErr(err)
	is.True(res.Column != 2)
	_, ok := res.Means[2]
	is.True(!ok)
	is.Equal(len(res.Means), 6)
	is.Equal(res.Results, 49)
}

func TestNoLegalMove(t *testing.T) {
	b := testhelpers.MustBoard(t, "XOXOXOX")
	c := New(newScriptedHub(1, rootScore(1)), Config{Depth: 1})
	_, err := c.Search(context.Background(), b)
	assert.ErrorIs(t, err, ErrNoLegalMove)
}

func TestNoWorkers(t *testing.T) {
	c := New(newScriptedHub(0, rootScore(1)), Config{Depth: 1})
	_, err := c.Search(context.Background(), testhelpers.EmptyBoard(t))
	assert.ErrorIs(t, err, ErrNoWorkers)
}

func TestSearchFailsWhenSubstrateFails(t *testing.T) {
	is := is.New(t)
	hub, _ := transport.NewLocal(1)
	c := New(hub, Config{Depth: 1, Horizon: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// nobody answers
	_, err := c.Search(ctx, testhelpers.EmptyBoard(t))
	is.True(errors.Is(err, context.DeadlineExceeded))
	is.Equal(c.State(), Idle)
}

func TestPlayCPUMove(t *testing.T) {
	is := is.New(t)
	hub := newScriptedHub(3, rootScore(5))
	c := New(hub, Config{Depth: 2, Horizon: 2, ShuffleTasks: true})
	b := testhelpers.EmptyBoard(t)

	res, err := c.PlayCPUMove(context.Background(), b)
	is.NoErr(err)
	is.Equal(res.Column, 5)
	is.Equal(b.Cell(5, 4), board.CPU)
	is.Equal(b.MoveCount(), 1)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "dispatching", Dispatching.String())
	assert.Equal(t, "unknown", State(42).String())
}
