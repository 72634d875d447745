package stroke

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var ErrInvalid = errors.New("invalid stroke")

var validate = validator.New()

// Tool selects how a stroke composites onto the strokes beneath it
type Tool string

const (
	Brush  Tool = "brush"
	Eraser Tool = "eraser"
)

// CompositeOperation is the canvas blend mode a renderer must use when
// replaying a stroke drawn with this tool.
func (t Tool) CompositeOperation() string {
	if t == Eraser {
		return "destination-out"
	}
	return "source-over"
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// A completed drawing operation. Never mutated once it has been
// appended to a history; strokes are compared by pointer.
type Stroke struct {
	ID       string  `json:"id" validate:"required"`
	Points   []Point `json:"points" validate:"required,min=1"`
	Color    string  `json:"color" validate:"required"`
	Width    float64 `json:"width" validate:"gt=0,lte=512"`
	Tool     Tool    `json:"tool" validate:"oneof=brush eraser"`
	AuthorID string  `json:"authorId" validate:"required"`
}

// New builds a stroke with a fresh id. The points slice is copied so the
// caller keeps no handle on the stroke's contents.
func New(authorID string, points []Point, color string, width float64, tool Tool) *Stroke {
	pts := make([]Point, len(points))
	copy(pts, points)
	return &Stroke{
		ID:       uuid.NewString(),
		Points:   pts,
		Color:    color,
		Width:    width,
		Tool:     tool,
		AuthorID: authorID,
	}
}

func (s *Stroke) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil", ErrInvalid)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
