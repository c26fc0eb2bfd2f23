// Package model contains domain models passed between layers.
package model

import "github.com/google/uuid"

// RoomStatus is the durable lifecycle status of a room.
// A room only ever moves lobby -> playing; it never reverts.
type RoomStatus string

const (
	RoomStatusLobby   RoomStatus = "lobby"
	RoomStatusPlaying RoomStatus = "playing"
)

// Room is one game session, shared by every player holding its code.
type Room struct {
	ID     uuid.UUID  `json:"id"`
	Code   string     `json:"code"` // human-shareable, immutable after creation
	Status RoomStatus `json:"status"`
	// PromptID references the active prompt; nil while in the lobby.
	PromptID *uuid.UUID `json:"prompt_id"`
	// Turn counts started turns. It keys per-turn idempotent work
	// (room/pair/turn), so it must only ever increase.
	Turn int `json:"turn"`
}

// Player is one participant. Pair assignment is immutable once set;
// pairs fill in join order, two players per pair.
type Player struct {
	ID       uuid.UUID `json:"id"`
	RoomID   uuid.UUID `json:"room_id"`
	Username string    `json:"username"`
	PairID   string    `json:"pair_id"`
	IsHost   bool      `json:"is_host"`
	IsReady  bool      `json:"is_ready"`
}

// Locale identifies a supported prompt language.
type Locale string

const (
	LocaleFR   Locale = "fr"
	LocaleEN   Locale = "en"
	LocaleESMX Locale = "es_mx"
)

// Prompt is an immutable incomplete phrase, one text per supported locale.
type Prompt struct {
	ID   uuid.UUID         `json:"id"`
	Text map[Locale]string `json:"text"`
}

// TurnAnswer is one player's submission for the active turn. At most one
// exists per player per turn; the whole set is cleared when a turn starts.
type TurnAnswer struct {
	RoomID     uuid.UUID `json:"room_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	PairID     string    `json:"pair_id"`
	Turn       int       `json:"turn"`
	Answer     string    `json:"answer"`
	Normalized string    `json:"normalized"`
}

// PairScore tracks a pair's banked points and its at-risk pot.
// Temp and Streak reset together; Banked only grows, and only by
// absorbing Temp through a secure action.
type PairScore struct {
	RoomID uuid.UUID `json:"room_id"`
	PairID string    `json:"pair_id"`
	Banked int       `json:"banked"`
	Temp   int       `json:"temp"`
	Streak int       `json:"streak"`
}
