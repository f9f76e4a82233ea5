// internal/progress/progress.go
//
// Scoring and player progression.
//
//   - Points: a lost round scores nothing; a win scores 10 per unused attempt plus 10,
//     doubled for the daily challenge.
//   - Level: 1 + floor(sqrt(points / 50)).
//   - Apply: folds one finished round into a player's Stats.

package progress

import (
	"math"

	"github.com/robalobadob/geekdle/internal/game"
)

// pointsPerLevel scales the level curve.
const pointsPerLevel = 50

// Stats are the per-player counters persisted on the users table.
type Stats struct {
	GamesPlayed int `json:"gamesPlayed"`
	Wins        int `json:"wins"`
	Streak      int `json:"streak"`
	BestStreak  int `json:"bestStreak"`
	Points      int `json:"points"`
}

// Points scores a finished round.
func Points(mode game.Mode, attempts, maxAttempts int, won bool) int {
	if !won || attempts < 1 || attempts > maxAttempts {
		return 0
	}
	p := (maxAttempts - attempts + 1) * 10
	if mode == game.ModeDaily {
		p *= 2
	}
	return p
}

// Level maps total points to a level, starting at 1.
func Level(points int) int {
	if points <= 0 {
		return 1
	}
	return 1 + int(math.Floor(math.Sqrt(float64(points)/pointsPerLevel)))
}

// NextLevelAt returns the points needed to reach the level after level.
func NextLevelAt(level int) int {
	if level < 1 {
		level = 1
	}
	return level * level * pointsPerLevel
}

// WinRate is wins over games played, in percent (0 when nothing played).
func (s Stats) WinRate() int {
	if s.GamesPlayed == 0 {
		return 0
	}
	return s.Wins * 100 / s.GamesPlayed
}

// Apply returns s updated with one finished round.
func Apply(s Stats, won bool, points int) Stats {
	s.GamesPlayed++
	if !won {
		s.Streak = 0
		return s
	}
	s.Wins++
	s.Streak++
	if s.Streak > s.BestStreak {
		s.BestStreak = s.Streak
	}
	if points > 0 {
		s.Points += points
	}
	return s
}
