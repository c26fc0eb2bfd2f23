// Package scoring implements the push-your-luck streak reward algebra.
//
// Every function is a pure transform over a PairScore plus an outcome. The
// package knows nothing about rooms, players or storage, so the whole
// mechanic is exhaustively testable without a live backend.
package scoring

import (
	"github.com/okian/mouton/internal/domain/model"
)

// Reward configuration constants.
const (
	// BaseReward is the pot increase for the first match of a streak.
	BaseReward = 100
	// StreakMultiplier doubles the marginal reward with every
	// consecutive match.
	StreakMultiplier = 2
)

// Reward returns the pot increase for reaching the given streak length:
// BaseReward * StreakMultiplier^(streak-1). A streak below one earns nothing.
func Reward(streak int) int {
	if streak < 1 {
		return 0
	}
	reward := BaseReward
	for i := 1; i < streak; i++ {
		reward *= StreakMultiplier
	}
	return reward
}

// Resolve applies a match or mismatch outcome to a pair's score.
// A match extends the streak and grows the at-risk pot; a mismatch erases
// the pot and the streak together. Banked points are never touched here.
func Resolve(s model.PairScore, matched bool) model.PairScore {
	if !matched {
		s.Temp = 0
		s.Streak = 0
		return s
	}
	s.Streak++
	s.Temp += Reward(s.Streak)
	return s
}

// Secure banks the at-risk pot: banked absorbs temp, then temp and streak
// reset together. Banked is therefore monotonically non-decreasing across
// any sequence of Resolve and Secure calls.
func Secure(s model.PairScore) model.PairScore {
	s.Banked += s.Temp
	s.Temp = 0
	s.Streak = 0
	return s
}
