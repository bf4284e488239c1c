package store

import "errors"

// Usage errors. Callers match them with errors.Is; the returned errors carry
// the offending name as context.
var (
	ErrUnknownMutation = errors.New("unknown mutation")
	ErrUnknownAction   = errors.New("unknown action")
	ErrUnknownPath     = errors.New("unknown state path")
	ErrDuplicateName   = errors.New("duplicate name")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrClosed          = errors.New("store closed")
)
