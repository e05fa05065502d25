package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/fPolic/Connect4-MPI/message"
)

const localBuffer = 64

type frame struct {
	from int
	data []byte
}

// Local is an in-process Hub. Every message is encoded on send and decoded
// on receive, so the participants never share memory even though they
// share an address space.
type Local struct {
	inbox   chan frame
	workers map[int]chan []byte
	ids     []int

	done      chan struct{}
	closeOnce sync.Once
}

// LocalLink is the worker side of a Local hub.
type LocalLink struct {
	id    int
	hub   *Local
	inbox chan []byte
}

// NewLocal creates a hub with n workers numbered 1..n.
func NewLocal(n int) (*Local, []*LocalLink) {
	h := &Local{
		inbox:   make(chan frame, localBuffer),
		workers: make(map[int]chan []byte, n),
		done:    make(chan struct{}),
	}
	links := make([]*LocalLink, n)
	for i := 0; i < n; i++ {
		id := i + 1
		ch := make(chan []byte, localBuffer)
		h.workers[id] = ch
		h.ids = append(h.ids, id)
		links[i] = &LocalLink{id: id, hub: h, inbox: ch}
	}
	return h, links
}

func (h *Local) Workers() []int {
	return append([]int(nil), h.ids...)
}

func (h *Local) Broadcast(ctx context.Context, m message.Message) error {
	for _, id := range h.ids {
		if err := h.Send(ctx, id, m); err != nil {
			return err
		}
	}
	return nil
}

func (h *Local) Send(ctx context.Context, worker int, m message.Message) error {
	ch, ok := h.workers[worker]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWorker, worker)
	}
	if h.closed() {
		return ErrShutdown
	}
	data, err := message.Marshal(m)
	if err != nil {
		return err
	}
	select {
	case ch <- data:
		return nil
	case <-h.done:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Local) Recv(ctx context.Context) (Envelope, error) {
	select {
	case f := <-h.inbox:
		m, err := message.Unmarshal(f.data)
		if err != nil {
			return Envelope{}, fmt.Errorf("from worker %d: %w", f.from, err)
		}
		return Envelope{From: f.from, Msg: m}, nil
	case <-h.done:
		return Envelope{}, ErrShutdown
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

func (h *Local) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Local) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

func (l *LocalLink) ID() int { return l.id }

func (l *LocalLink) Send(ctx context.Context, m message.Message) error {
	if l.hub.closed() {
		return ErrShutdown
	}
	data, err := message.Marshal(m)
	if err != nil {
		return err
	}
	select {
	case l.hub.inbox <- frame{from: l.id, data: data}:
		return nil
	case <-l.hub.done:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *LocalLink) Recv(ctx context.Context) (message.Message, error) {
	select {
	case data := <-l.inbox:
		return message.Unmarshal(data)
	case <-l.hub.done:
		return nil, ErrShutdown
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
