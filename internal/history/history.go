package history

import (
	"github.com/manpreetbhatti/inkboard/backend/internal/stroke"
)

// Engine is the authoritative stroke log of one room plus the per-author
// stacks of undone strokes. It is not safe for concurrent use; the owning
// room serializes access.
type Engine struct {
	strokes []*stroke.Stroke

	// Strokes each author has undone, most recent last. Redo pops from here.
	undone map[string][]*stroke.Stroke
}

func New() *Engine {
	return &Engine{
		strokes: make([]*stroke.Stroke, 0),
		undone:  make(map[string][]*stroke.Stroke),
	}
}

// AddStroke appends a fresh stroke. Any pending redo, for every author in
// the room, is dropped: the room has a single linear timeline.
func (e *Engine) AddStroke(s *stroke.Stroke) {
	e.strokes = append(e.strokes, s)
	clear(e.undone)
}

// UndoLastStrokeByAuthor removes the latest surviving stroke by author,
// wherever it sits in the log, and returns it.
func (e *Engine) UndoLastStrokeByAuthor(authorID string) (*stroke.Stroke, bool) {
	i := e.lastIndexOf(authorID)
	if i < 0 {
		return nil, false
	}

	s := e.strokes[i]
	e.strokes = append(e.strokes[:i], e.strokes[i+1:]...)
	e.undone[authorID] = append(e.undone[authorID], s)
	return s, true
}

// RedoStrokeByAuthor re-appends the author's most recently undone stroke.
// The stroke lands at the tail of the log, not at its original position.
// Like any append it drops every author's pending redo, including the
// rest of this author's stack.
func (e *Engine) RedoStrokeByAuthor(authorID string) (*stroke.Stroke, bool) {
	stack := e.undone[authorID]
	if len(stack) == 0 {
		return nil, false
	}

	s := stack[len(stack)-1]
	e.strokes = append(e.strokes, s)
	clear(e.undone)
	return s, true
}

func (e *Engine) ClearHistory() {
	e.strokes = make([]*stroke.Stroke, 0)
	clear(e.undone)
}

// GetHistory returns a copy of the log in replay order
func (e *Engine) GetHistory() []*stroke.Stroke {
	out := make([]*stroke.Stroke, len(e.strokes))
	copy(out, e.strokes)
	return out
}

func (e *Engine) CanUndo(authorID string) bool {
	return e.lastIndexOf(authorID) >= 0
}

func (e *Engine) CanRedo(authorID string) bool {
	return len(e.undone[authorID]) > 0
}

func (e *Engine) Len() int {
	return len(e.strokes)
}

// Contains reports whether this exact stroke value is in the log
func (e *Engine) Contains(s *stroke.Stroke) bool {
	for _, existing := range e.strokes {
		if existing == s {
			return true
		}
	}
	return false
}

func (e *Engine) lastIndexOf(authorID string) int {
	for i := len(e.strokes) - 1; i >= 0; i-- {
		if e.strokes[i].AuthorID == authorID {
			return i
		}
	}
	return -1
}
