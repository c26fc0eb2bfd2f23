// Package turn governs the room and turn lifecycle as an explicit state
// machine: lobby -> awaiting answers -> revealing -> awaiting answers -> …
//
// Transitions are pure guard functions over a snapshot; the application
// layer applies the returned effect through the sync boundary. Illegal
// transitions are errors, never silent state changes.
package turn

import (
	"github.com/google/uuid"

	"github.com/okian/mouton/internal/domain/model"
)

// Phase is the local pair's view of the turn lifecycle. Revealing is
// derived per pair from the visible answer set, not stored on the room:
// the durable room status remains "playing" throughout.
type Phase string

const (
	PhaseLobby           Phase = "lobby"
	PhaseAwaitingAnswers Phase = "awaiting_answers"
	PhaseRevealing       Phase = "revealing"
)

// MinPlayers is the minimum number of players required to start a game.
const MinPlayers = 2

// AnswersPerPair is the number of answers that completes a pair's turn.
const AnswersPerPair = 2

// PhaseFor derives the phase a pair observes from the current record set.
func PhaseFor(room model.Room, answers []model.TurnAnswer, pairID string) Phase {
	if room.Status == model.RoomStatusLobby {
		return PhaseLobby
	}
	if len(PairAnswers(answers, pairID, room.Turn)) >= AnswersPerPair {
		return PhaseRevealing
	}
	return PhaseAwaitingAnswers
}

// PairAnswers filters the answers belonging to one pair for one turn.
func PairAnswers(answers []model.TurnAnswer, pairID string, turnSeq int) []model.TurnAnswer {
	var out []model.TurnAnswer
	for _, a := range answers {
		if a.PairID == pairID && a.Turn == turnSeq {
			out = append(out, a)
		}
	}
	return out
}

// StartEffect describes the durable mutations of entering a new turn:
// clear every answer record, then apply these room fields. Turn only ever
// increases, and status never reverts to lobby.
type StartEffect struct {
	PromptID uuid.UUID
	Turn     int
	Status   model.RoomStatus
}

// Advance validates a turn-start request and returns its effect.
//
// From the lobby, only the host may start and at least MinPlayers must be
// present; a rejected start leaves all state untouched. From a running
// game any member may advance (continue after a reveal). The prompt is
// the caller's uniform random draw; drawing the previous prompt again is
// allowed.
func Advance(room model.Room, players []model.Player, actorID uuid.UUID, prompt model.Prompt) (StartEffect, error) {
	actor, ok := findPlayer(players, actorID)
	if !ok {
		return StartEffect{}, ErrNotMember
	}

	if room.Status == model.RoomStatusLobby {
		if !actor.IsHost {
			return StartEffect{}, ErrNotHost
		}
		if len(players) < MinPlayers {
			return StartEffect{}, ErrNotEnoughPlayers
		}
	}

	return StartEffect{
		PromptID: prompt.ID,
		Turn:     room.Turn + 1,
		Status:   model.RoomStatusPlaying,
	}, nil
}

func findPlayer(players []model.Player, id uuid.UUID) (model.Player, bool) {
	for _, p := range players {
		if p.ID == id {
			return p, true
		}
	}
	return model.Player{}, false
}
