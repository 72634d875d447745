package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/manpreetbhatti/inkboard/backend/internal/room"
	"github.com/manpreetbhatti/inkboard/backend/internal/stroke"
)

// Represents the kind of a wire message
type MessageType string

// Client -> server
const (
	TypeJoin   MessageType = "join"
	TypeStroke MessageType = "stroke"
	TypeCursor MessageType = "cursor"
	TypeUndo   MessageType = "undo"
	TypeRedo   MessageType = "redo"
	TypeClear  MessageType = "clear"
)

// Server -> client. "stroke" and "cursor" are shared with the inbound set.
const (
	TypeWelcome MessageType = "welcome"
	TypeRoster  MessageType = "roster"
	TypeHistory MessageType = "history"
	TypeCleared MessageType = "cleared"
	TypeError   MessageType = "error"
)

// Envelope is the outer shape of every message on the wire
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

var validate = validator.New()

// Inbound is one of the six actions a participant can send
type Inbound interface {
	Type() MessageType
}

type Join struct {
	RoomID string `json:"roomId" validate:"required,max=128"`
	Name   string `json:"name" validate:"required,max=64"`
}

type StrokeComplete struct {
	Points []stroke.Point `json:"points" validate:"required,min=1,max=10000"`
	Color  string         `json:"color" validate:"required,max=32"`
	Width  float64        `json:"width" validate:"gt=0,lte=512"`
	Tool   stroke.Tool    `json:"tool" validate:"oneof=brush eraser"`
}

type CursorUpdate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// cursorPayload is the wire form of CursorUpdate. A missing coordinate is
// not the same as zero.
type cursorPayload struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

type UndoRequest struct{}

type RedoRequest struct{}

type ClearRequest struct{}

func (Join) Type() MessageType           { return TypeJoin }
func (StrokeComplete) Type() MessageType { return TypeStroke }
func (CursorUpdate) Type() MessageType   { return TypeCursor }
func (UndoRequest) Type() MessageType    { return TypeUndo }
func (RedoRequest) Type() MessageType    { return TypeRedo }
func (ClearRequest) Type() MessageType   { return TypeClear }

// Decode parses and validates one inbound frame. Anything outside the six
// known actions is rejected.
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeJoin:
		var m Join
		if err := decodeData(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeStroke:
		var m StrokeComplete
		if err := decodeData(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeCursor:
		var p cursorPayload
		if err := decodeData(env, &p); err != nil {
			return nil, err
		}
		return CursorUpdate{X: *p.X, Y: *p.Y}, nil
	case TypeUndo:
		return UndoRequest{}, nil
	case TypeRedo:
		return RedoRequest{}, nil
	case TypeClear:
		return ClearRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

var null = []byte("null")

func decodeData(env Envelope, dst any) error {
	raw := bytes.TrimSpace(env.Data)
	if len(raw) == 0 || bytes.Equal(raw, null) {
		return fmt.Errorf("%w: %s without data", ErrInvalidPayload, env.Type)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// Outbound payloads

type Welcome struct {
	Self    room.Participant   `json:"self"`
	Users   []room.Participant `json:"users"`
	Strokes []*stroke.Stroke   `json:"strokes"`
}

type Roster struct {
	Users  []room.Participant `json:"users"`
	Joined *room.Participant  `json:"joined,omitempty"`
	Left   string             `json:"left,omitempty"`
}

type StrokeAdded struct {
	Stroke *stroke.Stroke `json:"stroke"`
}

type CursorMoved struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Action tags on a full-history broadcast
const (
	ActionUndo = "undo"
	ActionRedo = "redo"
)

type HistorySnapshot struct {
	Action  string           `json:"action"`
	UserID  string           `json:"userId"`
	Strokes []*stroke.Stroke `json:"strokes"`
}

type Cleared struct {
	By string `json:"by"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode wraps a payload in an envelope of the given type
func Encode(t MessageType, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: t, Data: data})
}
