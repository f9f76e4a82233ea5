// internal/game/engine.go
//
// Round engine for a single Geekdle session.
// Responsibilities:
//   - Create rounds for a normalized secret (daily or infinite mode).
//   - Validate and apply guesses (length, alphabetic, optional word list).
//   - Track state transitions: playing → won/lost.
//
// Notes:
//   - Secrets come from the words/daily packages; this package never picks words.
//   - randomID() is a compact hex identifier for correlating server state.

package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/robalobadob/geekdle/internal/words"
)

var (
	ErrRoundFinished = errors.New("round finished")
	ErrInvalidGuess  = errors.New("invalid guess")
	ErrNotInWordList = errors.New("not in word list")
	ErrEmptySecret   = errors.New("empty secret")
)

// Options configures a new round.
type Options struct {
	Mode        Mode
	Category    string
	Secret      string
	MaxAttempts int               // 0 means MaxAttempts
	Allowed     func(string) bool // nil accepts any alphabetic guess
	Now         func() time.Time  // nil means time.Now
}

// NewRound constructs a round. The secret is normalized here so callers may pass
// raw catalog or generator output.
func NewRound(opts Options) (*Round, error) {
	secret := words.Normalize(opts.Secret)
	if secret == "" || !words.IsAlpha(secret) {
		return nil, ErrEmptySecret
	}
	limit := opts.MaxAttempts
	if limit <= 0 {
		limit = MaxAttempts
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeInfinite
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return &Round{
		ID:          randomID(),
		Mode:        mode,
		Category:    opts.Category,
		Secret:      secret,
		MaxAttempts: limit,
		Guesses:     []string{},
		Results:     [][]LetterState{},
		Status:      StatusPlaying,
		StartedAt:   now().UTC(),
		allowed:     opts.Allowed,
		now:         now,
	}, nil
}

// ApplyGuess validates and scores a guess, mutating the round.
// Returns the per-letter states of this guess.
//
// Validation rules:
//   - Round must not be finished.
//   - Guess must normalize to exactly len(Secret) letters A–Z.
//   - Guess must pass the Allowed predicate, if any.
//
// State transitions:
//   - All positions Correct → StatusWon.
//   - Else guesses reaching MaxAttempts → StatusLost.
func (r *Round) ApplyGuess(guess string) ([]LetterState, error) {
	if r.Finished() {
		return nil, ErrRoundFinished
	}
	guess = words.Normalize(guess)
	if len([]rune(guess)) != len([]rune(r.Secret)) || !words.IsAlpha(guess) {
		return nil, ErrInvalidGuess
	}
	if r.allowed != nil && guess != r.Secret && !r.allowed(guess) {
		return nil, ErrNotInWordList
	}

	states, err := ClassifyGuess(r.Secret, guess)
	if err != nil {
		return nil, err
	}
	r.Guesses = append(r.Guesses, guess)
	r.Results = append(r.Results, states)

	if AllCorrect(states) {
		r.finish(StatusWon)
	} else if len(r.Guesses) >= r.MaxAttempts {
		r.finish(StatusLost)
	}
	return states, nil
}

// Keyboard aggregates letter states over the round's guesses.
func (r *Round) Keyboard() Keyboard {
	kb := NewKeyboard()
	for i, g := range r.Guesses {
		kb.merge([]rune(g), r.Results[i])
	}
	return kb
}

// Finished reports whether the round is won or lost.
func (r *Round) Finished() bool { return r.Status == StatusWon || r.Status == StatusLost }

// Won reports whether the round ended with a correct guess.
func (r *Round) Won() bool { return r.Status == StatusWon }

// Attempts is the number of guesses applied so far.
func (r *Round) Attempts() int { return len(r.Guesses) }

// Remaining is the number of guesses left.
func (r *Round) Remaining() int { return r.MaxAttempts - len(r.Guesses) }

// Reveal returns the secret once the round is over, "" while playing.
func (r *Round) Reveal() string {
	if !r.Finished() {
		return ""
	}
	return r.Secret
}

// Elapsed is the time from start to finish (or to now while playing).
func (r *Round) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return r.now().Sub(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Clone returns a copy that shares no mutable state with r.
func (r *Round) Clone() *Round {
	cp := *r
	cp.Guesses = append([]string(nil), r.Guesses...)
	cp.Results = make([][]LetterState, len(r.Results))
	for i, res := range r.Results {
		cp.Results[i] = append([]LetterState(nil), res...)
	}
	return &cp
}

func (r *Round) finish(s Status) {
	r.Status = s
	r.FinishedAt = r.now().UTC()
}

// randomID returns a compact 16‑hex‑char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
