package activity

import "time"

// Kind names a room lifecycle or mutation event worth counting
type Kind string

const (
	RoomOpened Kind = "room_opened"
	RoomClosed Kind = "room_closed"
	Joined     Kind = "joined"
	Left       Kind = "left"
	Stroke     Kind = "stroke"
	Undo       Kind = "undo"
	Redo       Kind = "redo"
	Clear      Kind = "clear"
)

// Event is one thing that happened in a room. Name is the display name of the
// participant behind a Joined event.
type Event struct {
	RoomID       string
	Kind         Kind
	Name         string
	Participants int
	At           time.Time
}
