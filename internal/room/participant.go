package room

import "github.com/manpreetbhatti/inkboard/backend/internal/stroke"

// Colors handed out to participants in join order
var Palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#42d4f4", "#f032e6", "#9a6324",
}

type Participant struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Color  string        `json:"color"`
	Cursor *stroke.Point `json:"cursor,omitempty"`
}

func (p *Participant) clone() Participant {
	c := *p
	if p.Cursor != nil {
		cursor := *p.Cursor
		c.Cursor = &cursor
	}
	return c
}
