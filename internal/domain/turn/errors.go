package turn

import "errors"

// Sentinel kinds for rejected transitions.
var (
	ErrNotMember        = errors.New("actor is not a member of the room")
	ErrNotHost          = errors.New("only the host can start the game")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrNotPlaying       = errors.New("room is not in a playing state")
)
