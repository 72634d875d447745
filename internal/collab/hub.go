package collab

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/manpreetbhatti/inkboard/backend/internal/activity"
	"github.com/manpreetbhatti/inkboard/backend/internal/metrics"
	"github.com/manpreetbhatti/inkboard/backend/internal/protocol"
	"github.com/manpreetbhatti/inkboard/backend/internal/room"
	"github.com/manpreetbhatti/inkboard/backend/internal/stroke"
)

// Hub applies every room mutation and fans the results out. All events go
// through Run, one at a time, so effects are ordered by arrival across
// every room and each peer sees broadcasts in that same order.
type Hub struct {
	registry *room.Registry
	recorder ActivityRecorder
	log      *slog.Logger

	// Owned by the Run goroutine
	conns map[string]*connection

	// Inbound events from transports
	register   chan Peer
	unregister chan Peer
	inbound    chan *Message

	done    chan struct{}
	clients atomic.Int64
}

type Message struct {
	Peer Peer
	Msg  protocol.Inbound
}

// NewHub builds a hub over the registry. recorder may be nil.
func NewHub(registry *room.Registry, recorder ActivityRecorder, log *slog.Logger) *Hub {
	return &Hub{
		registry:   registry,
		recorder:   recorder,
		log:        log,
		conns:      make(map[string]*connection),
		register:   make(chan Peer),
		unregister: make(chan Peer),
		inbound:    make(chan *Message, 256),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case p := <-h.register:
			h.handleRegister(p)
		case p := <-h.unregister:
			h.handleUnregister(p)
		case m := <-h.inbound:
			h.handleMessage(m)
		}
	}
}

// Register announces a new connection. It returns false once the hub has stopped.
func (h *Hub) Register(p Peer) bool {
	select {
	case h.register <- p:
		return true
	case <-h.done:
		return false
	}
}

// Unregister must be called exactly once when the connection closes
func (h *Hub) Unregister(p Peer) {
	select {
	case h.unregister <- p:
	case <-h.done:
	}
}

func (h *Hub) Dispatch(p Peer, msg protocol.Inbound) {
	select {
	case h.inbound <- &Message{Peer: p, Msg: msg}:
	case <-h.done:
	}
}

func (h *Hub) Registry() *room.Registry {
	return h.registry
}

func (h *Hub) GetRoomCount() int {
	return h.registry.Len()
}

func (h *Hub) GetClientCount() int {
	return int(h.clients.Load())
}

// GetActiveRooms maps live room ids to participant counts
func (h *Hub) GetActiveRooms() map[string]int {
	return h.registry.ActiveRooms()
}

func (h *Hub) handleRegister(p Peer) {
	if _, ok := h.conns[p.ID()]; ok {
		h.log.Warn("duplicate connection id", "conn", p.ID())
		p.Close()
		return
	}
	h.conns[p.ID()] = &connection{peer: p, state: StateUnjoined}
	h.clients.Add(1)
	h.log.Debug("connection registered", "conn", p.ID())
}

func (h *Hub) handleUnregister(p Peer) {
	c, ok := h.conns[p.ID()]
	if !ok || c.peer != p {
		return
	}
	h.disconnect(c)
}

func (h *Hub) handleMessage(m *Message) {
	c, ok := h.conns[m.Peer.ID()]
	if !ok || c.peer != m.Peer {
		return
	}

	if join, ok := m.Msg.(protocol.Join); ok {
		h.handleJoin(c, join)
		return
	}
	if c.state != StateJoined {
		h.reject(c, ErrNotJoined)
		return
	}
	r, ok := h.registry.Get(c.roomID)
	if !ok {
		return
	}

	switch msg := m.Msg.(type) {
	case protocol.StrokeComplete:
		h.handleStroke(c, r, msg)
	case protocol.CursorUpdate:
		h.handleCursor(c, r, msg)
	case protocol.UndoRequest:
		h.handleUndo(c, r)
	case protocol.RedoRequest:
		h.handleRedo(c, r)
	case protocol.ClearRequest:
		h.handleClear(c, r)
	default:
		h.reject(c, protocol.ErrUnknownType)
	}
}

func (h *Hub) handleJoin(c *connection, msg protocol.Join) {
	if c.state != StateUnjoined {
		h.reject(c, ErrAlreadyJoined)
		return
	}

	r, created := h.registry.GetOrCreate(msg.RoomID)
	if created {
		metrics.ActiveRooms.Inc()
		h.record(activity.Event{RoomID: r.ID, Kind: activity.RoomOpened})
		h.log.Info("room opened", "room", r.ID)
	}

	self := r.Join(c.id(), msg.Name)
	c.state = StateJoined
	c.roomID = r.ID
	metrics.ActiveParticipants.Inc()
	metrics.Actions.WithLabelValues(string(protocol.TypeJoin)).Inc()

	users := r.Roster()
	h.record(activity.Event{RoomID: r.ID, Kind: activity.Joined, Name: self.Name, Participants: len(users)})
	h.log.Info("participant joined", "room", r.ID, "conn", c.id(), "name", self.Name, "total", len(users))

	h.send(c, protocol.TypeWelcome, protocol.Welcome{
		Self:    self,
		Users:   users,
		Strokes: r.History(),
	})
	if c.state != StateJoined {
		return
	}
	h.broadcast(r, protocol.TypeRoster, protocol.Roster{Users: users, Joined: &self}, c.id())
}

func (h *Hub) handleStroke(c *connection, r *room.Room, msg protocol.StrokeComplete) {
	s := stroke.New(c.id(), msg.Points, msg.Color, msg.Width, msg.Tool)
	if err := r.AddStroke(s); err != nil {
		h.reject(c, err)
		return
	}
	metrics.Actions.WithLabelValues(string(protocol.TypeStroke)).Inc()
	h.record(activity.Event{RoomID: r.ID, Kind: activity.Stroke})
	h.broadcast(r, protocol.TypeStroke, protocol.StrokeAdded{Stroke: s}, "")
}

func (h *Hub) handleCursor(c *connection, r *room.Room, msg protocol.CursorUpdate) {
	if err := r.MoveCursor(c.id(), stroke.Point{X: msg.X, Y: msg.Y}); err != nil {
		h.reject(c, err)
		return
	}
	metrics.Actions.WithLabelValues(string(protocol.TypeCursor)).Inc()
	h.broadcast(r, protocol.TypeCursor, protocol.CursorMoved{UserID: c.id(), X: msg.X, Y: msg.Y}, c.id())
}

func (h *Hub) handleUndo(c *connection, r *room.Room) {
	_, snapshot, ok := r.Undo(c.id())
	if !ok {
		metrics.NoopActions.WithLabelValues(protocol.ActionUndo).Inc()
		return
	}
	metrics.Actions.WithLabelValues(string(protocol.TypeUndo)).Inc()
	h.record(activity.Event{RoomID: r.ID, Kind: activity.Undo})
	h.broadcastHistory(r, protocol.ActionUndo, c.id(), snapshot)
}

func (h *Hub) handleRedo(c *connection, r *room.Room) {
	_, snapshot, ok := r.Redo(c.id())
	if !ok {
		metrics.NoopActions.WithLabelValues(protocol.ActionRedo).Inc()
		return
	}
	metrics.Actions.WithLabelValues(string(protocol.TypeRedo)).Inc()
	h.record(activity.Event{RoomID: r.ID, Kind: activity.Redo})
	h.broadcastHistory(r, protocol.ActionRedo, c.id(), snapshot)
}

func (h *Hub) handleClear(c *connection, r *room.Room) {
	r.Clear()
	metrics.Actions.WithLabelValues(string(protocol.TypeClear)).Inc()
	h.record(activity.Event{RoomID: r.ID, Kind: activity.Clear})
	h.log.Info("room cleared", "room", r.ID, "conn", c.id())
	h.broadcast(r, protocol.TypeCleared, protocol.Cleared{By: c.id()}, "")
}

func (h *Hub) broadcastHistory(r *room.Room, action, userID string, snapshot []*stroke.Stroke) {
	metrics.HistoryLength.Observe(float64(len(snapshot)))
	h.broadcast(r, protocol.TypeHistory, protocol.HistorySnapshot{
		Action:  action,
		UserID:  userID,
		Strokes: snapshot,
	}, "")
}

// disconnect moves a connection to Closed. A joined participant leaves its
// room, and the room is destroyed when it was the last one.
func (h *Hub) disconnect(c *connection) {
	if c.state == StateClosed {
		return
	}
	wasJoined := c.state == StateJoined
	c.state = StateClosed
	delete(h.conns, c.id())
	h.clients.Add(-1)
	c.peer.Close()

	if !wasJoined {
		h.log.Debug("connection closed before joining", "conn", c.id())
		return
	}

	r, ok := h.registry.Get(c.roomID)
	if !ok {
		return
	}
	remaining, removed := r.Leave(c.id())
	if removed {
		metrics.ActiveParticipants.Dec()
	}
	h.record(activity.Event{RoomID: r.ID, Kind: activity.Left, Participants: remaining})

	if remaining == 0 {
		h.registry.Destroy(r.ID)
		metrics.ActiveRooms.Dec()
		h.record(activity.Event{RoomID: r.ID, Kind: activity.RoomClosed})
		h.log.Info("room closed (empty)", "room", r.ID)
		return
	}

	h.log.Info("participant left", "room", r.ID, "conn", c.id(), "remaining", remaining)
	h.broadcast(r, protocol.TypeRoster, protocol.Roster{Users: r.Roster(), Left: c.id()}, "")
}

// broadcast sends one frame to every participant of the room except the
// one named by exclude. Peers that cannot keep up are disconnected.
func (h *Hub) broadcast(r *room.Room, t protocol.MessageType, payload any, exclude string) {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		h.log.Error("encode broadcast", "room", r.ID, "type", t, "err", err)
		return
	}

	var slow []*connection
	for _, p := range r.Roster() {
		if p.ID == exclude {
			continue
		}
		c, ok := h.conns[p.ID]
		if !ok {
			continue
		}
		if !c.peer.Send(data) {
			slow = append(slow, c)
			continue
		}
		metrics.BroadcastBytes.Add(float64(len(data)))
	}

	for _, c := range slow {
		metrics.EvictedPeers.Inc()
		h.log.Warn("evicting slow peer", "room", r.ID, "conn", c.id())
		h.disconnect(c)
	}
}

func (h *Hub) send(c *connection, t protocol.MessageType, payload any) {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		h.log.Error("encode message", "conn", c.id(), "type", t, "err", err)
		return
	}
	if !c.peer.Send(data) {
		metrics.EvictedPeers.Inc()
		h.log.Warn("evicting slow peer", "conn", c.id())
		h.disconnect(c)
	}
}

func (h *Hub) reject(c *connection, err error) {
	code := errorCode(err)
	metrics.Rejected.WithLabelValues(code).Inc()
	h.log.Warn("message rejected", "conn", c.id(), "room", c.roomID, "state", c.state, "err", err)
	h.send(c, protocol.TypeError, protocol.Error{Code: code, Message: err.Error()})
}

func (h *Hub) record(e activity.Event) {
	if h.recorder == nil {
		return
	}
	e.At = time.Now().UTC()
	h.recorder.Record(e)
}

func (h *Hub) shutdown() {
	for id, c := range h.conns {
		c.state = StateClosed
		c.peer.Close()
		delete(h.conns, id)
	}
	h.clients.Store(0)
	h.log.Info("hub stopped")
}
