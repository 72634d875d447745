package collab

import (
	"errors"

	"github.com/manpreetbhatti/inkboard/backend/internal/protocol"
	"github.com/manpreetbhatti/inkboard/backend/internal/room"
)

var (
	ErrNotJoined     = errors.New("connection has not joined a room")
	ErrAlreadyJoined = errors.New("connection already joined a room")
)

// errorCode maps a rejection to the code sent back to the client
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotJoined):
		return "not_joined"
	case errors.Is(err, ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, room.ErrDuplicateStroke):
		return "duplicate_stroke"
	case errors.Is(err, room.ErrInvalidStroke):
		return "invalid_stroke"
	case errors.Is(err, room.ErrNotMember):
		return "not_member"
	case errors.Is(err, protocol.ErrUnknownType):
		return "unknown_type"
	default:
		return "rejected"
	}
}
