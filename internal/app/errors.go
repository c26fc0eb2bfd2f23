package service

import "errors"

// Service errors.
var (
	// ErrNotStarted is returned when an operation runs before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrAlreadyInRoom is returned when joining while a session is active.
	ErrAlreadyInRoom = errors.New("already in a room")

	// ErrNotInRoom is returned by game operations outside a session.
	ErrNotInRoom = errors.New("not in a room")
)
