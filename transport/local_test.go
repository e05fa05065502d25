package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/fPolic/Connect4-MPI/board"
	"github.com/fPolic/Connect4-MPI/message"
	"github.com/fPolic/Connect4-MPI/task"
)

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLocalBroadcastAndDirect(t *testing.T) {
	is := is.New(t)
	ctx := testCtx(t)
	hub, links := NewLocal(3)
	is.Equal(hub.Workers(), []int{1, 2, 3})

	b, _ := board.NewEmpty(6, 7)
	is.NoErr(hub.Broadcast(ctx, message.SendBoard{Snapshot: b.Snapshot()}))
	is.NoErr(hub.Send(ctx, 2, message.SendTask{Task: task.Task{1, 2}}))

	for _, l := range links {
		m, err := l.Recv(ctx)
		is.NoErr(err)
		is.Equal(m.Kind(), message.KindSendBoard)
	}
	m, err := links[1].Recv(ctx)
	is.NoErr(err)
	is.Equal(m, message.SendTask{Task: task.Task{1, 2}})

	is.NoErr(links[2].Send(ctx, message.TaskRequest{}))
	env, err := hub.Recv(ctx)
	is.NoErr(err)
	is.Equal(env.From, 3)
	is.Equal(env.Msg, message.TaskRequest{})

	err = hub.Send(ctx, 9, message.BoardComplete{})
	is.True(errors.Is(err, ErrUnknownWorker))
}

func TestLocalSnapshotsAreCopies(t *testing.T) {
	is := is.New(t)
	ctx := testCtx(t)
	hub, links := NewLocal(2)

	b, _ := board.NewEmpty(2, 2)
	snap := b.Snapshot()
	is.NoErr(hub.Broadcast(ctx, message.SendBoard{Snapshot: snap}))

	m1, err := links[0].Recv(ctx)
	is.NoErr(err)
	m2, err := links[1].Recv(ctx)
	is.NoErr(err)

	m1.(message.SendBoard).Snapshot.Cells[3] = board.CPU
	is.Equal(m2.(message.SendBoard).Snapshot.Cells[3], board.Empty)
	is.Equal(snap.Cells[3], board.Empty)
}

func TestLocalPerSenderOrder(t *testing.T) {
	is := is.New(t)
	ctx := testCtx(t)
	hub, links := NewLocal(1)

	for i := 1; i <= 20; i++ {
		is.NoErr(links[0].Send(ctx, message.SendResult{Score: 0, RootColumn: i}))
	}
	for i := 1; i <= 20; i++ {
		env, err := hub.Recv(ctx)
		is.NoErr(err)
		is.Equal(env.Msg.(message.SendResult).RootColumn, i)
	}
}

func TestLocalShutdown(t *testing.T) {
	is := is.New(t)
	ctx := testCtx(t)
	hub, links := NewLocal(2)

	is.NoErr(hub.Close())
	is.NoErr(hub.Close())

	_, err := links[0].Recv(ctx)
	is.True(errors.Is(err, ErrShutdown))
	err = links[1].Send(ctx, message.TaskRequest{})
	is.True(errors.Is(err, ErrShutdown))
	_, err = hub.Recv(ctx)
	is.True(errors.Is(err, ErrShutdown))
}

func TestLocalRecvHonorsContext(t *testing.T) {
	is := is.New(t)
	_, links := NewLocal(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := links[0].Recv(ctx)
	is.True(errors.Is(err, context.DeadlineExceeded))
}
