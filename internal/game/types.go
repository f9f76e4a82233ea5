// internal/game/types.go
//
// Core type definitions for the Geekdle game engine.
// Defines:
//   - LetterState: per-position result of a guess (correct/present/absent).
//   - KeyState:    best-known state of a keyboard letter across a round.
//   - Round:       state for a single in-progress or finished round.

package game

import (
	"encoding/json"
	"fmt"
	"time"
)

// MaxAttempts is the number of guesses a round allows.
const MaxAttempts = 6

// LetterState represents the evaluation result for a single letter in a guess.
//   - "correct": letter is in the secret at this position.
//   - "present": letter is in the secret at another position (and not yet accounted for).
//   - "absent":  no remaining occurrence of the letter in the secret.
type LetterState string

const (
	Correct LetterState = "correct"
	Present LetterState = "present"
	Absent  LetterState = "absent"
)

// KeyState is the aggregate state of a letter on the virtual keyboard.
type KeyState string

const (
	KeyCorrect KeyState = "correct"
	KeyPresent KeyState = "present"
	KeyAbsent  KeyState = "absent"
	KeyUnused  KeyState = "unused"
)

// rank orders key states for the never-downgrade rule.
func (k KeyState) rank() int {
	switch k {
	case KeyCorrect:
		return 3
	case KeyPresent:
		return 2
	case KeyAbsent:
		return 1
	default:
		return 0
	}
}

// keyState lifts a per-position LetterState to its keyboard equivalent.
func (s LetterState) keyState() KeyState {
	switch s {
	case Correct:
		return KeyCorrect
	case Present:
		return KeyPresent
	default:
		return KeyAbsent
	}
}

// Keyboard maps an uppercase letter to its aggregate KeyState.
type Keyboard map[rune]KeyState

// MarshalJSON renders the keyboard with letter keys ("A": "correct");
// encoding/json would otherwise emit rune keys as integers.
func (k Keyboard) MarshalJSON() ([]byte, error) {
	out := make(map[string]KeyState, len(k))
	for r, s := range k {
		out[string(r)] = s
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the letter-keyed form written by MarshalJSON.
func (k *Keyboard) UnmarshalJSON(b []byte) error {
	var in map[string]KeyState
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := make(Keyboard, len(in))
	for key, s := range in {
		r := []rune(key)
		if len(r) != 1 {
			return fmt.Errorf("game: bad keyboard key %q", key)
		}
		out[r[0]] = s
	}
	*k = out
	return nil
}

// InvalidInputError is returned when a guess and the secret differ in length.
type InvalidInputError struct {
	SecretLen int
	GuessLen  int
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("game: guess length %d does not match secret length %d", e.GuessLen, e.SecretLen)
}

// Mode distinguishes the shared daily word from free play.
type Mode string

const (
	ModeDaily    Mode = "daily"
	ModeInfinite Mode = "infinite"
)

// Status is the coarse lifecycle state of a round.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Round holds the state of a single Geekdle round.
type Round struct {
	ID          string          // Unique round identifier (random hex string).
	Mode        Mode            // daily | infinite
	Category    string          // Category slug the secret was drawn from.
	Secret      string          // Normalized secret word (uppercase).
	MaxAttempts int             // Guess cap, MaxAttempts unless overridden.
	Guesses     []string        // Normalized guesses so far.
	Results     [][]LetterState // Classification per guess, same order as Guesses.
	Status      Status
	StartedAt   time.Time
	FinishedAt  time.Time

	allowed func(string) bool
	now     func() time.Time
}
