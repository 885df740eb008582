package session

import "errors"

// Session and registry error types
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrDuplicateRoom      = errors.New("room already exists for this type and widget")
	ErrRoomNotFound       = errors.New("room not found")
	ErrCodeSpaceExhausted = errors.New("session code space exhausted after retry budget")
	ErrInvalidParticipant = errors.New("participant ID must be 1-64 characters")
)
