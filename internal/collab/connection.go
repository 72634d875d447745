package collab

// State of a connection in its lifecycle. Transitions only move forward:
// Unjoined -> Joined -> Closed, or Unjoined -> Closed.
type State int

const (
	StateUnjoined State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type connection struct {
	peer   Peer
	state  State
	roomID string
}

func (c *connection) id() string {
	return c.peer.ID()
}
