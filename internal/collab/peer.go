//go:generate go run go.uber.org/mock/mockgen -source=peer.go -destination=mocks/mock_peer.go -package=mocks
package collab

import "github.com/manpreetbhatti/inkboard/backend/internal/activity"

// Peer is one transport connection as the hub sees it. Frames passed to
// Send must reach the remote end in order. Send must not block: it returns
// false when the frame cannot be queued. Close is idempotent.
type Peer interface {
	ID() string
	Send(data []byte) bool
	Close()
}

// ActivityRecorder receives room events for the activity catalog. Record
// must not block the hub.
type ActivityRecorder interface {
	Record(e activity.Event)
}
