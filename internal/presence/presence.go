// Package presence tracks the ephemeral "is composing an answer" signal.
//
// The tracker is informational only: last write wins per player, nothing in
// turn resolution ever consults it, and no durability is promised. Entries
// expire after a TTL so a vanished peer does not look busy forever.
package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/mouton/pkg/metrics"
)

// Default tracker configuration constants.
const (
	defaultTTL = 10 * time.Second
)

type entry struct {
	typing bool
	seenAt time.Time
}

// Tracker is a process-wide ephemeral map from player id to typing state.
type Tracker struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	ttl     time.Duration
	entries map[uuid.UUID]entry
}

// NewTracker creates a presence tracker with configuration options.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		clock:   clockwork.NewRealClock(),
		ttl:     defaultTTL,
		entries: make(map[uuid.UUID]entry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Observe records a presence signal, overwriting any previous state for the
// player. Last write wins.
func (t *Tracker) Observe(playerID uuid.UUID, isTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[playerID] = entry{typing: isTyping, seenAt: t.clock.Now()}
	metrics.RecordPresenceUpdate()
	metrics.UpdatePlayersTyping(t.typingLocked())
}

// IsTyping reports whether the player is currently composing. Expired
// entries read as not typing.
func (t *Tracker) IsTyping(playerID uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[playerID]
	return ok && e.typing && t.clock.Since(e.seenAt) < t.ttl
}

// Typing returns the set of players currently composing.
func (t *Tracker) Typing() []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []uuid.UUID
	for id, e := range t.entries {
		if e.typing && t.clock.Since(e.seenAt) < t.ttl {
			out = append(out, id)
		}
	}
	return out
}

// Forget drops a player's entry entirely (disconnect handling).
func (t *Tracker) Forget(playerID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, playerID)
	metrics.UpdatePlayersTyping(t.typingLocked())
}

// Prune removes expired entries to keep the map bounded.
func (t *Tracker) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, e := range t.entries {
		if t.clock.Since(e.seenAt) >= t.ttl {
			delete(t.entries, id)
		}
	}
	metrics.UpdatePlayersTyping(t.typingLocked())
}

// typingLocked counts live typing entries. Must be called with t.mu held.
func (t *Tracker) typingLocked() int {
	n := 0
	for _, e := range t.entries {
		if e.typing && t.clock.Since(e.seenAt) < t.ttl {
			n++
		}
	}
	return n
}
