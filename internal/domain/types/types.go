// Package types contains common types used across the application
package types

import (
	"github.com/google/uuid"

	"github.com/okian/mouton/internal/domain/model"
)

// Outcome is the result of comparing a pair's two answers for one turn.
type Outcome string

const (
	OutcomeMatch    Outcome = "match"
	OutcomeMismatch Outcome = "mismatch"
)

// Resolution is the observable "pair turn resolved" event emitted once per
// turn per pair on every client, for the presentation layer to consume.
type Resolution struct {
	RoomID  uuid.UUID          `json:"room_id"`
	PairID  string             `json:"pair_id"`
	Turn    int                `json:"turn"`
	Outcome Outcome            `json:"outcome"`
	Answers [2]model.TurnAnswer `json:"answers"`
	// Leader is the player elected to apply the score mutation.
	Leader uuid.UUID `json:"leader"`
	// Applied reports whether this client was the leader and issued the
	// score write. Mirrors of the same event on the partner client carry
	// Applied == false.
	Applied bool `json:"applied"`
}
