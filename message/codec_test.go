package message

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/fPolic/Connect4-MPI/board"
	"github.com/fPolic/Connect4-MPI/task"
)

func TestRoundTrip(t *testing.T) {
	b, err := board.FromRows([]string{
		".......",
		"..OX...",
	}, board.WithVerticalWins(true))
	if err != nil {
		t.Fatal(err)
	}

	msgs := []Message{
		SendBoard{Snapshot: b.Snapshot()},
		SendBoard{Snapshot: b.Snapshot(), Horizon: 6},
		TaskRequest{},
		SendTask{Task: task.Task{4, 1, 7, 7, 2}},
		SendResult{Score: -0.375, RootColumn: 4},
		SendResult{Score: board.CPUWins, RootColumn: 1},
		BoardComplete{},
	}
	for _, m := range msgs {
		t.Run(m.Kind().String(), func(t *testing.T) {
			is := is.New(t)
			data, err := Marshal(m)
			is.NoErr(err)
			got, err := Unmarshal(data)
			is.NoErr(err)
			is.Equal(got, m)
		})
	}
}

func TestSnapshotSurvivesTransit(t *testing.T) {
	is := is.New(t)
	b, _ := board.FromRows([]string{
		"....",
		".XO.",
	})
	data, err := Marshal(SendBoard{Snapshot: b.Snapshot()})
	is.NoErr(err)
	got, err := Unmarshal(data)
	is.NoErr(err)

	w, err := board.FromSnapshot(got.(SendBoard).Snapshot)
	is.NoErr(err)
	is.True(w.Equals(b))
	is.Equal(w.Fingerprint(), b.Fingerprint())
}

func TestMarshalRejectsEmptyTask(t *testing.T) {
	_, err := Marshal(SendTask{})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestUnmarshalMalformed(t *testing.T) {
	kindOnly := func(k Kind) []byte {
		b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
		return protowire.AppendVarint(b, uint64(k))
	}
	withPayload := func(k Kind, payload []byte) []byte {
		b := kindOnly(k)
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		return protowire.AppendBytes(b, payload)
	}
	badBoard := protowire.AppendTag(nil, fieldRows, protowire.VarintType)
	badBoard = protowire.AppendVarint(badBoard, 6)

	cases := map[string][]byte{
		"empty":          nil,
		"unknown kind":   kindOnly(42),
		"truncated":      {0x08},
		"board no cells": withPayload(KindSendBoard, badBoard),
		"board missing":  kindOnly(KindSendBoard),
		"empty task":     withPayload(KindSendTask, nil),
		"result missing": kindOnly(KindSendResult),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal(data)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "SEND_TASK", TaskRequest{}.Kind().String())
	assert.Equal(t, "SEND_TASK", SendTask{}.Kind().String())
	assert.Equal(t, "BOARD_COMPLETE", KindBoardComplete.String())
	assert.Equal(t, "UNKNOWN", Kind(0).String())
}
