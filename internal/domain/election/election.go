// Package election provides deterministic leader election among the
// observers of a shared event.
//
// There is no central lock: every client ranks the candidate player ids
// identically (ids are globally unique and totally ordered), so exactly one
// of them concludes it is the leader. This replaces a server-side
// transaction for "exactly-once side effect among N observers".
package election

import (
	"github.com/google/uuid"

	"github.com/okian/mouton/internal/domain/model"
)

// Leader returns the id of the player authorized to apply shared-state
// mutations for the group: the lexicographically smallest player id.
// The second return value is false when the group is empty.
func Leader(players []model.Player) (uuid.UUID, bool) {
	if len(players) == 0 {
		return uuid.UUID{}, false
	}
	leader := players[0].ID
	for _, p := range players[1:] {
		if p.ID.String() < leader.String() {
			leader = p.ID
		}
	}
	return leader, true
}

// IsLeader reports whether the given player leads the group.
func IsLeader(players []model.Player, playerID uuid.UUID) bool {
	leader, ok := Leader(players)
	return ok && leader == playerID
}
