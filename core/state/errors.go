package state

import "errors"

var (
	ErrOutOfArenaSpace  = errors.New("out of arena space")
	ErrTooManyProcesses = errors.New("too many processes")
	ErrTooManyChannels  = errors.New("too many channels")
	ErrDuplicateChannel = errors.New("duplicate channel id")
	ErrNoProcess        = errors.New("no such process")
	ErrMalformedState   = errors.New("malformed state")
)
