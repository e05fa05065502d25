package worker

import (
	"context"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/fPolic/Connect4-MPI/board"
	"github.com/fPolic/Connect4-MPI/message"
	"github.com/fPolic/Connect4-MPI/task"
	"github.com/fPolic/Connect4-MPI/testhelpers"
	"github.com/fPolic/Connect4-MPI/transport"
)

func TestAgentRequestsUntilReleased(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub, links := transport.NewLocal(1)
	agent := NewAgent(links[0], &AgentConfig{Horizon: 9})
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	b := testhelpers.MustBoard(t,
		".......",
		"OOO....",
	)
	is.NoErr(hub.Broadcast(ctx, message.SendBoard{Snapshot: b.Snapshot(), Horizon: 2}))

	expect := func(want message.Message) {
		env, err := hub.Recv(ctx)
		is.NoErr(err)
		is.Equal(env.From, 1)
		is.Equal(env.Msg, want)
	}

	expect(message.TaskRequest{})
	is.NoErr(hub.Send(ctx, 1, message.SendTask{Task: task.Task{4, 1}}))
	expect(message.SendResult{Score: board.CPUWins, RootColumn: 4})

	// exactly one result, then the next request
	expect(message.TaskRequest{})
	is.NoErr(hub.Send(ctx, 1, message.SendTask{Task: task.Task{7, 4}}))
	expect(message.SendResult{Score: 0, RootColumn: 7})

	expect(message.TaskRequest{})
	is.NoErr(hub.Send(ctx, 1, message.BoardComplete{}))

	// idle again: a second board starts a new round
	is.NoErr(hub.Broadcast(ctx, message.SendBoard{Snapshot: b.Snapshot()}))
	expect(message.TaskRequest{})
	is.NoErr(hub.Send(ctx, 1, message.BoardComplete{}))

	is.NoErr(hub.Close())
	is.NoErr(<-done)
	is.Equal(agent.boards, 2)
	is.Equal(agent.tasks, 2)
}

func TestAgentRejectsBadSnapshot(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub, links := transport.NewLocal(1)
	agent := NewAgent(links[0], &AgentConfig{Horizon: 1})
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	// a piece floating over an empty cell
	snap := board.Snapshot{
		Rows:    2,
		Columns: 1,
		Cells:   []board.Cell{board.CPU, board.Empty},
	}
	is.NoErr(hub.Broadcast(ctx, message.SendBoard{Snapshot: snap}))
	err := <-done
	is.True(err != nil)
	hub.Close()
}

func TestAgentStopsWithContext(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	_, links := transport.NewLocal(1)
	agent := NewAgent(links[0], &AgentConfig{Horizon: 1})
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()
	cancel()
	is.Equal(<-done, context.Canceled)
}
