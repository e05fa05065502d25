// Package transport carries messages between the coordinator and the
// workers. The coordinator holds a Hub, each worker a Link. Messages between
// one sender and one receiver arrive in the order they were sent; nothing is
// promised across different senders.
package transport

import (
	"context"
	"errors"

	"github.com/fPolic/Connect4-MPI/message"
)

var (
	// ErrShutdown is returned once the coordinator has shut the pool down.
	ErrShutdown = errors.New("transport shut down")

	ErrUnknownWorker = errors.New("unknown worker")
)

// CoordinatorID is the rank reserved for the coordinator. Workers are
// numbered from 1.
const CoordinatorID = 0

// Envelope is a received message together with its sender.
type Envelope struct {
	From int
	Msg  message.Message
}

// Hub is the coordinator's end.
type Hub interface {
	// Workers lists the ids of every worker in the pool.
	Workers() []int
	Broadcast(ctx context.Context, m message.Message) error
	Send(ctx context.Context, worker int, m message.Message) error
	// Recv blocks until any worker sends something.
	Recv(ctx context.Context) (Envelope, error)
	// Close tells every worker to exit.
	Close() error
}

// Link is a worker's end.
type Link interface {
	ID() int
	Send(ctx context.Context, m message.Message) error
	// Recv returns broadcasts and direct messages from the coordinator in
	// the order they were sent, or ErrShutdown.
	Recv(ctx context.Context) (message.Message, error)
}
