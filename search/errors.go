package search

import "errors"

var (
	ErrOutOfStateMemory      = errors.New("out of state memory (try a larger buffer)")
	ErrUnresolvableCollision = errors.New("unresolvable hash conflict (try a larger hash table)")
	ErrTooManySuccessors     = errors.New("too many successor states (try a larger state count)")
	ErrInvalidInitialState   = errors.New("invalid initial state")
)
