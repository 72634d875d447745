package room

import "errors"

var (
	ErrInvalidStroke   = errors.New("stroke rejected")
	ErrDuplicateStroke = errors.New("stroke already in history")
	ErrNotMember       = errors.New("not a member of this room")
)
