// Package message defines what the coordinator and the workers say to each
// other. There are four kinds on the wire; SEND_TASK is used in both
// directions, so it has a Go type for the request and one for the reply.
package message

import (
	"github.com/fPolic/Connect4-MPI/board"
	"github.com/fPolic/Connect4-MPI/task"
)

// Kind is the wire tag of a message.
type Kind uint8

const (
	KindSendBoard Kind = iota + 1
	KindSendTask
	KindSendResult
	KindBoardComplete
)

func (k Kind) String() string {
	switch k {
	case KindSendBoard:
		return "SEND_BOARD"
	case KindSendTask:
		return "SEND_TASK"
	case KindSendResult:
		return "SEND_RESULT"
	case KindBoardComplete:
		return "BOARD_COMPLETE"
	}
	return "UNKNOWN"
}

// Message is one of SendBoard, TaskRequest, SendTask, SendResult or
// BoardComplete.
type Message interface {
	Kind() Kind
	isMessage()
}

// SendBoard starts a search on the enclosed position. Horizon is the total
// search depth counted from the snapshot; zero leaves it to the worker.
type SendBoard struct {
	Snapshot board.Snapshot
	Horizon  int
}

// TaskRequest is a worker asking for work.
type TaskRequest struct{}

// SendTask is the coordinator's answer to a TaskRequest.
type SendTask struct {
	Task task.Task
}

// SendResult is the outcome of one task, tagged with its root column.
type SendResult struct {
	Score      float64
	RootColumn int
}

// BoardComplete tells a worker there is nothing left for it this turn.
type BoardComplete struct{}

func (SendBoard) Kind() Kind     { return KindSendBoard }
func (TaskRequest) Kind() Kind   { return KindSendTask }
func (SendTask) Kind() Kind      { return KindSendTask }
func (SendResult) Kind() Kind    { return KindSendResult }
func (BoardComplete) Kind() Kind { return KindBoardComplete }

func (SendBoard) isMessage()     {}
func (TaskRequest) isMessage()   {}
func (SendTask) isMessage()      {}
func (SendResult) isMessage()    {}
func (BoardComplete) isMessage() {}
