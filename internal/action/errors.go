package action

import "errors"

var (
	ErrInvalidState      = errors.New("shape does not visibly exist")
	ErrNoChange          = errors.New("modification changes nothing")
	ErrInvalidShape      = errors.New("invalid shape")
	ErrUnknownActionType = errors.New("unknown action type")
	ErrMalformed         = errors.New("malformed action payload")
)
