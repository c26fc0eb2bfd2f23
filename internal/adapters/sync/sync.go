// Package sync defines the boundary to the real-time substrate: a durable
// record store plus a change-notification feed.
//
// Implementations promise at-least-once, unordered delivery of change
// notifications per room. Consumers must re-derive state from a fresh
// snapshot on every notification instead of trusting arrival order.
package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/okian/mouton/internal/domain/model"
)

// Table identifies which record kind a change notification refers to.
type Table string

const (
	TableRooms   Table = "rooms"
	TablePlayers Table = "players"
	TableAnswers Table = "turn_answers"
	TableScores  Table = "pair_scores"
)

// Change is a notification that some record of a table changed in a room.
// It deliberately carries no row data; the observer reads a snapshot.
type Change struct {
	RoomID uuid.UUID
	Table  Table
}

// Snapshot is a full read of a room's durable state at one point in time.
type Snapshot struct {
	Room    model.Room
	Players []model.Player
	Answers []model.TurnAnswer
	Scores  []model.PairScore
}

// RoomFields is a partial update of a room record; nil fields are untouched.
type RoomFields struct {
	Status   *model.RoomStatus
	PromptID *uuid.UUID
	Turn     *int
}

// ScoreFields is a partial update of a pair score record.
type ScoreFields struct {
	Banked *int
	Temp   *int
	Streak *int
}

// Presence is an ephemeral typing signal. Best effort, last write wins,
// never merged with durable game state.
type Presence struct {
	PlayerID uuid.UUID `json:"player_id"`
	IsTyping bool      `json:"is_typing"`
}

// Subscription delivers change notifications until Close is called.
type Subscription interface {
	// Changes is closed after Close, or when the backing feed ends.
	Changes() <-chan Change
	Close()
}

// PresenceSubscription delivers presence signals until Close is called.
type PresenceSubscription interface {
	Updates() <-chan Presence
	Close()
}

// Client is the full adapter surface the engine consumes and produces
// through. No operation is fatal: every failure degrades to "state did not
// advance this tick" and the next notification retries convergence.
type Client interface {
	// CreateRoom creates a lobby room under the given code.
	// Returns ErrConflict if the code is taken.
	CreateRoom(ctx context.Context, code string) (model.Room, error)

	// ReadRoomState performs a full read of a room and its records.
	// Returns ErrNotFound for an unknown code.
	ReadRoomState(ctx context.Context, code string) (Snapshot, error)

	// Subscribe starts a change feed for the room. Delivery is
	// at-least-once and unordered across tables.
	Subscribe(ctx context.Context, roomID uuid.UUID) (Subscription, error)

	// InsertPlayer adds a player record. Returns ErrConflict if the
	// player id already exists in the room.
	InsertPlayer(ctx context.Context, p model.Player) error

	// InsertTurnAnswer records a submission. Returns ErrConflict when the
	// player already answered the active turn.
	InsertTurnAnswer(ctx context.Context, a model.TurnAnswer) error

	// DeleteAllTurnAnswers clears every answer record of the room.
	DeleteAllTurnAnswers(ctx context.Context, roomID uuid.UUID) error

	// UpdateRoom applies a partial update to the room record.
	UpdateRoom(ctx context.Context, roomID uuid.UUID, fields RoomFields) error

	// UpsertPairScore creates or partially updates a pair score record.
	UpsertPairScore(ctx context.Context, roomID uuid.UUID, pairID string, fields ScoreFields) error

	// PublishPresence broadcasts a typing signal. Fire and forget: the
	// error only reports a local publish failure, never delivery.
	PublishPresence(ctx context.Context, roomID, playerID uuid.UUID, isTyping bool) error

	// SubscribePresence starts the ephemeral presence feed for a room.
	SubscribePresence(ctx context.Context, roomID uuid.UUID) (PresenceSubscription, error)

	// Close releases the client's resources.
	Close() error
}
