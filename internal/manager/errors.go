package manager

import "errors"

var (
	ErrConflict      = errors.New("action conflicts with the host's canvas")
	ErrTransport     = errors.New("transport failure")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)
