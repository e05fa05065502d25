package message

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/fPolic/Connect4-MPI/board"
	"github.com/fPolic/Connect4-MPI/task"
)

// The encoding uses protobuf wire primitives so the envelope stays readable
// by any protobuf decoder:
//
//	envelope { 1: kind varint; 2: payload bytes }
//	board    { 1: rows; 2: columns; 3: cells bytes; 4: vertical_wins bool; 5: horizon }
//	task     { 1: columns bytes (packed varints) }
//	result   { 1: score double; 2: root_column varint }

var ErrMalformed = errors.New("malformed message")

const (
	fieldKind    protowire.Number = 1
	fieldPayload protowire.Number = 2

	fieldRows         protowire.Number = 1
	fieldColumns      protowire.Number = 2
	fieldCells        protowire.Number = 3
	fieldVerticalWins protowire.Number = 4
	fieldHorizon      protowire.Number = 5

	fieldTaskColumns protowire.Number = 1

	fieldScore      protowire.Number = 1
	fieldRootColumn protowire.Number = 2
)

// Marshal encodes m.
func Marshal(m Message) ([]byte, error) {
	var payload []byte
	switch msg := m.(type) {
	case SendBoard:
		payload = appendBoard(nil, msg)
	case TaskRequest, BoardComplete:
	case SendTask:
		if len(msg.Task) == 0 {
			return nil, fmt.Errorf("%w: empty task", ErrMalformed)
		}
		payload = appendTask(nil, msg.Task)
	case SendResult:
		payload = appendResult(nil, msg)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrMalformed, m)
	}

	b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Kind()))
	if payload != nil {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, payload)
	}
	return b, nil
}

func appendBoard(b []byte, m SendBoard) []byte {
	s := m.Snapshot
	b = protowire.AppendTag(b, fieldRows, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Rows))
	b = protowire.AppendTag(b, fieldColumns, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Columns))
	cells := make([]byte, len(s.Cells))
	for i, c := range s.Cells {
		cells[i] = byte(c)
	}
	b = protowire.AppendTag(b, fieldCells, protowire.BytesType)
	b = protowire.AppendBytes(b, cells)
	b = protowire.AppendTag(b, fieldVerticalWins, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(s.VerticalWins))
	if m.Horizon > 0 {
		b = protowire.AppendTag(b, fieldHorizon, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Horizon))
	}
	return b
}

func appendTask(b []byte, t task.Task) []byte {
	var packed []byte
	for _, c := range t {
		packed = protowire.AppendVarint(packed, uint64(c))
	}
	b = protowire.AppendTag(b, fieldTaskColumns, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendResult(b []byte, r SendResult) []byte {
	b = protowire.AppendTag(b, fieldScore, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(r.Score))
	b = protowire.AppendTag(b, fieldRootColumn, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(r.RootColumn))
}

// field is one decoded (number, value) pair. Only the representation that
// matches the wire type is set.
type field struct {
	num    protowire.Number
	varint uint64
	bytes  []byte
}

func fields(b []byte) ([]field, error) {
	var out []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.varint, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]
		out = append(out, f)
	}
	return out, nil
}

// Unmarshal decodes a message produced by Marshal. The result is always one
// of the value types (never a pointer).
func Unmarshal(data []byte) (Message, error) {
	fs, err := fields(data)
	if err != nil {
		return nil, err
	}
	var kind Kind
	var payload []byte
	hasPayload := false
	for _, f := range fs {
		switch f.num {
		case fieldKind:
			kind = Kind(f.varint)
		case fieldPayload:
			payload = f.bytes
			hasPayload = true
		}
	}

	switch kind {
	case KindSendBoard:
		return decodeBoard(payload)
	case KindSendTask:
		if !hasPayload {
			return TaskRequest{}, nil
		}
		t, err := decodeTask(payload)
		if err != nil {
			return nil, err
		}
		return SendTask{Task: t}, nil
	case KindSendResult:
		return decodeResult(payload)
	case KindBoardComplete:
		return BoardComplete{}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformed, kind)
}

func decodeBoard(b []byte) (Message, error) {
	var m SendBoard
	s := &m.Snapshot
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	for _, f := range fs {
		switch f.num {
		case fieldRows:
			s.Rows = int(f.varint)
		case fieldColumns:
			s.Columns = int(f.varint)
		case fieldCells:
			s.Cells = make([]board.Cell, len(f.bytes))
			for i, c := range f.bytes {
				s.Cells[i] = board.Cell(c)
			}
		case fieldVerticalWins:
			s.VerticalWins = protowire.DecodeBool(f.varint)
		case fieldHorizon:
			m.Horizon = int(f.varint)
		}
	}
	if s.Rows < 1 || s.Columns < 1 || len(s.Cells) != s.Rows*s.Columns {
		return nil, fmt.Errorf("%w: board %dx%d with %d cells", ErrMalformed, s.Rows, s.Columns, len(s.Cells))
	}
	return m, nil
}

func decodeTask(b []byte) (task.Task, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	var t task.Task
	for _, f := range fs {
		if f.num != fieldTaskColumns {
			continue
		}
		packed := f.bytes
		for len(packed) > 0 {
			v, n := protowire.ConsumeVarint(packed)
			if n < 0 {
				return nil, fmt.Errorf("%w: task column: %v", ErrMalformed, protowire.ParseError(n))
			}
			t = append(t, int(v))
			packed = packed[n:]
		}
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("%w: empty task", ErrMalformed)
	}
	return t, nil
}

func decodeResult(b []byte) (Message, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, err
	}
	var r SendResult
	seen := 0
	for _, f := range fs {
		switch f.num {
		case fieldScore:
			r.Score = math.Float64frombits(f.varint)
			seen++
		case fieldRootColumn:
			r.RootColumn = int(f.varint)
			seen++
		}
	}
	if seen != 2 {
		return nil, fmt.Errorf("%w: incomplete result", ErrMalformed)
	}
	return r, nil
}
