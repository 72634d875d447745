package room

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/manpreetbhatti/inkboard/backend/internal/history"
	"github.com/manpreetbhatti/inkboard/backend/internal/stroke"
)

// A collaborative drawing session. The room owns its roster and its history
// engine; every exported method is safe for concurrent use.
type Room struct {
	ID string

	mu      sync.RWMutex
	roster  []*Participant
	history *history.Engine
}

// Creates a new empty room with the given ID
func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		roster:  make([]*Participant, 0),
		history: history.New(),
	}
}

// Join adds a participant and assigns it the first free palette color.
// Joining twice with the same connection returns the existing entry.
func (r *Room) Join(connectionID, displayName string) Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.find(connectionID); ok {
		return *p
	}

	p := &Participant{
		ID:    connectionID,
		Name:  displayName,
		Color: r.nextColor(),
	}
	r.roster = append(r.roster, p)
	return *p
}

// Leave removes a participant and reports how many remain
func (r *Room) Leave(connectionID string) (remaining int, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.roster)
	r.roster = lo.Reject(r.roster, func(p *Participant, _ int) bool {
		return p.ID == connectionID
	})
	return len(r.roster), len(r.roster) != before
}

func (r *Room) MoveCursor(connectionID string, pos stroke.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.find(connectionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotMember, connectionID)
	}
	cursor := pos
	p.Cursor = &cursor
	return nil
}

// Roster returns a copy of the participants in join order
func (r *Room) Roster() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.roster, func(p *Participant, _ int) Participant {
		return p.clone()
	})
}

func (r *Room) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roster)
}

// AddStroke validates the stroke and appends it. Strokes from
// non-members, invalid strokes and strokes already in the log are rejected
// without touching history.
func (r *Room) AddStroke(s *stroke.Stroke) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStroke, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.find(s.AuthorID); !ok {
		return fmt.Errorf("%w: %s", ErrNotMember, s.AuthorID)
	}
	if r.history.Contains(s) {
		return fmt.Errorf("%w: %s", ErrDuplicateStroke, s.ID)
	}
	r.history.AddStroke(s)
	return nil
}

// Undo removes the author's latest stroke. The returned snapshot is the
// history right after the removal.
func (r *Room) Undo(authorID string) (*stroke.Stroke, []*stroke.Stroke, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.history.UndoLastStrokeByAuthor(authorID)
	if !ok {
		return nil, nil, false
	}
	return s, r.history.GetHistory(), true
}

func (r *Room) Redo(authorID string) (*stroke.Stroke, []*stroke.Stroke, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.history.RedoStrokeByAuthor(authorID)
	if !ok {
		return nil, nil, false
	}
	return s, r.history.GetHistory(), true
}

func (r *Room) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history.ClearHistory()
}

// History returns a snapshot of the strokes in replay order
func (r *Room) History() []*stroke.Stroke {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.GetHistory()
}

func (r *Room) StrokeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.Len()
}

func (r *Room) CanUndo(authorID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.CanUndo(authorID)
}

func (r *Room) CanRedo(authorID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.CanRedo(authorID)
}

func (r *Room) find(connectionID string) (*Participant, bool) {
	return lo.Find(r.roster, func(p *Participant) bool {
		return p.ID == connectionID
	})
}

func (r *Room) nextColor() string {
	used := lo.SliceToMap(r.roster, func(p *Participant) (string, struct{}) {
		return p.Color, struct{}{}
	})
	for _, c := range Palette {
		if _, taken := used[c]; !taken {
			return c
		}
	}
	return Palette[len(r.roster)%len(Palette)]
}
