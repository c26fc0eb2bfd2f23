// Package coordinator runs the turn reconciliation loop.
//
// Every change notification is treated as a hint, never as data: the loop
// re-reads a full room snapshot, derives which pairs have completed the
// active turn, and resolves each completed pair at most once per turn. Only
// the elected leader writes score mutations back to the store, so N
// observers of the same pair completion produce exactly one mutation.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mouton/internal/adapters/mq/queue"
	syncapi "github.com/okian/mouton/internal/adapters/sync"
	"github.com/okian/mouton/internal/domain/dedupe"
	"github.com/okian/mouton/internal/domain/election"
	"github.com/okian/mouton/internal/domain/model"
	"github.com/okian/mouton/internal/domain/normalize"
	"github.com/okian/mouton/internal/domain/scoring"
	"github.com/okian/mouton/internal/domain/turn"
	"github.com/okian/mouton/internal/domain/types"
	"github.com/okian/mouton/pkg/logger"
	"github.com/okian/mouton/pkg/metrics"
)

// Default coordinator configuration constants.
const (
	defaultResolutionBuffer = 64
	shutdownTimeout         = 5 * time.Second
)

// Store is the slice of the sync client the coordinator reads and writes.
type Store interface {
	ReadRoomState(ctx context.Context, code string) (syncapi.Snapshot, error)
	UpsertPairScore(ctx context.Context, roomID uuid.UUID, pairID string, fields syncapi.ScoreFields) error
}

// Changes defines how the coordinator receives change notifications.
type Changes interface {
	Dequeue(ctx context.Context) <-chan queue.Change
}

// Coordinator reconciles turn state for one room on behalf of one player.
type Coordinator struct {
	store   Store
	changes Changes
	deduper dedupe.Deduper

	roomCode string
	selfID   uuid.UUID

	resolutions chan types.Resolution

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a coordinator for the given room and local player.
func New(store Store, changes Changes, deduper dedupe.Deduper, roomCode string, selfID uuid.UUID, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       store,
		changes:     changes,
		deduper:     deduper,
		roomCode:    roomCode,
		selfID:      selfID,
		resolutions: make(chan types.Resolution, defaultResolutionBuffer),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("coordinator"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Resolutions exposes the stream of pair resolutions the loop derives.
// The channel is closed when the loop stops.
func (c *Coordinator) Resolutions() <-chan types.Resolution {
	return c.resolutions
}

// Run consumes change notifications until ctx is canceled or the queue ends.
func (c *Coordinator) Run(ctx context.Context) {
	defer func() {
		close(c.resolutions)
		close(c.done)
	}()

	changeChan := c.changes.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case change, ok := <-changeChan:
			if !ok {
				return
			}

			if err := c.processChange(ctx, change); err != nil {
				c.logger.Error(ctx, "error reconciling change",
					logger.String("room_id", change.RoomID.String()),
					logger.String("table", string(change.Table)),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the loop, draining nothing: unprocessed
// notifications are safe to lose because a later one re-derives the state.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	close(c.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	select {
	case <-c.done:
		return nil
	case <-shutdownCtx.Done():
		c.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
	}
}

// processChange re-derives turn state from a fresh snapshot and resolves any
// pair that completed the active turn.
func (c *Coordinator) processChange(ctx context.Context, change queue.Change) error {
	// Only answer inserts can complete a pair. Other tables change room
	// shape, not turn progress.
	if change.Table != syncapi.TableAnswers {
		return nil
	}

	snap, err := c.store.ReadRoomState(ctx, c.roomCode)
	if err != nil {
		return fmt.Errorf("failed to read room state: %w", err)
	}

	if snap.Room.Status != model.RoomStatusPlaying {
		return nil
	}

	for _, pairID := range pairIDs(snap.Players) {
		if err := c.resolvePair(ctx, snap, pairID); err != nil {
			return err
		}
	}

	return nil
}

// resolvePair resolves one pair for the active turn if it has completed.
func (c *Coordinator) resolvePair(ctx context.Context, snap syncapi.Snapshot, pairID string) error {
	answers := turn.PairAnswers(snap.Answers, pairID, snap.Room.Turn)
	if len(answers) != turn.AnswersPerPair {
		return nil
	}

	key := resolutionKey(snap.Room.ID, pairID, snap.Room.Turn)
	if c.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordDuplicateResolution()
		return nil
	}

	matched := normalize.Match(answers[0].Normalized, answers[1].Normalized)
	outcome := types.OutcomeMismatch
	if matched {
		outcome = types.OutcomeMatch
	}

	// Leadership is scoped to the pair: its first member by id applies the
	// mutation, so a pair never depends on nodes outside itself.
	leaderID, ok := election.Leader(pairMembers(snap.Players, pairID))
	if !ok {
		// A pair with answers but no members cannot happen through the
		// service surface; treat it as already resolved.
		return nil
	}

	applied := false
	if leaderID == c.selfID {
		if err := c.applyScore(ctx, snap, pairID, matched); err != nil {
			// Release the key so a later notification can retry.
			c.deduper.Unrecord(ctx, key)
			return err
		}
		applied = true
	}

	metrics.RecordResolution(string(outcome))
	c.logger.Debug(ctx, "pair resolved",
		logger.String("room_id", snap.Room.ID.String()),
		logger.String("pair_id", pairID),
		logger.Int("turn", snap.Room.Turn),
		logger.String("outcome", string(outcome)),
		logger.Bool("applied", applied),
	)

	c.emit(ctx, types.Resolution{
		RoomID:  snap.Room.ID,
		PairID:  pairID,
		Turn:    snap.Room.Turn,
		Outcome: outcome,
		Answers: [2]model.TurnAnswer{answers[0], answers[1]},
		Leader:  leaderID,
		Applied: applied,
	})

	return nil
}

// applyScore folds the outcome into the pair's score record and writes it
// back. Leader only.
func (c *Coordinator) applyScore(ctx context.Context, snap syncapi.Snapshot, pairID string, matched bool) error {
	score := findScore(snap.Scores, pairID)
	score.RoomID = snap.Room.ID
	score.PairID = pairID

	next := scoring.Resolve(score, matched)

	err := c.store.UpsertPairScore(ctx, snap.Room.ID, pairID, syncapi.ScoreFields{
		Banked: &next.Banked,
		Temp:   &next.Temp,
		Streak: &next.Streak,
	})
	if err != nil {
		return fmt.Errorf("failed to apply pair score: %w", err)
	}

	return nil
}

// emit delivers a resolution without ever blocking the loop indefinitely.
func (c *Coordinator) emit(ctx context.Context, r types.Resolution) {
	select {
	case c.resolutions <- r:
	case <-ctx.Done():
	case <-c.shutdown:
	}
}

// resolutionKey identifies one pair completion within one turn of one room.
func resolutionKey(roomID uuid.UUID, pairID string, turnSeq int) string {
	return fmt.Sprintf("%s/%s/%d", roomID, pairID, turnSeq)
}

// pairIDs lists the distinct pair ids present among the players, in
// first-seen order.
func pairIDs(players []model.Player) []string {
	seen := make(map[string]struct{}, len(players))
	var out []string
	for _, p := range players {
		if p.PairID == "" {
			continue
		}
		if _, ok := seen[p.PairID]; ok {
			continue
		}
		seen[p.PairID] = struct{}{}
		out = append(out, p.PairID)
	}
	return out
}

// pairMembers filters the room's players down to one pair.
func pairMembers(players []model.Player, pairID string) []model.Player {
	var out []model.Player
	for _, p := range players {
		if p.PairID == pairID {
			out = append(out, p)
		}
	}
	return out
}

// findScore returns the pair's score record, zero-valued when absent.
func findScore(scores []model.PairScore, pairID string) model.PairScore {
	for _, s := range scores {
		if s.PairID == pairID {
			return s
		}
	}
	return model.PairScore{}
}
