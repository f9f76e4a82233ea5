package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRound(t *testing.T, opts Options) *Round {
	t.Helper()
	r, err := NewRound(opts)
	require.NoError(t, err)
	return r
}

func TestNewRoundNormalizesSecret(t *testing.T) {
	r := newTestRound(t, Options{Secret: " Câché ", Category: "programming"})
	assert.Equal(t, "CACHE", r.Secret)
	assert.Equal(t, ModeInfinite, r.Mode)
	assert.Equal(t, MaxAttempts, r.MaxAttempts)
	assert.Equal(t, StatusPlaying, r.Status)
	assert.Len(t, r.ID, 16)
}

func TestNewRoundRejectsEmptySecret(t *testing.T) {
	_, err := NewRound(Options{Secret: "  "})
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = NewRound(Options{Secret: "C++"})
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestApplyGuessWin(t *testing.T) {
	r := newTestRound(t, Options{Secret: "LINUX"})

	states, err := r.ApplyGuess("LINKS")
	require.NoError(t, err)
	assert.Equal(t, []LetterState{Correct, Correct, Correct, Absent, Absent}, states)
	assert.False(t, r.Finished())
	assert.Empty(t, r.Reveal())

	states, err = r.ApplyGuess("linux")
	require.NoError(t, err)
	assert.True(t, AllCorrect(states))
	assert.True(t, r.Won())
	assert.Equal(t, StatusWon, r.Status)
	assert.Equal(t, "LINUX", r.Reveal())
	assert.Equal(t, 2, r.Attempts())

	_, err = r.ApplyGuess("LINUX")
	assert.ErrorIs(t, err, ErrRoundFinished)
}

func TestApplyGuessLossAfterMaxAttempts(t *testing.T) {
	r := newTestRound(t, Options{Secret: "LINUX"})
	for i := 0; i < MaxAttempts; i++ {
		_, err := r.ApplyGuess("PROXY")
		require.NoError(t, err)
	}
	assert.Equal(t, StatusLost, r.Status)
	assert.Equal(t, 0, r.Remaining())
	assert.False(t, r.FinishedAt.IsZero())

	_, err := r.ApplyGuess("LINUX")
	assert.ErrorIs(t, err, ErrRoundFinished)
}

func TestApplyGuessValidation(t *testing.T) {
	r := newTestRound(t, Options{
		Secret:  "LINUX",
		Allowed: func(w string) bool { return w == "LINKS" },
	})

	tests := []struct {
		name  string
		guess string
		want  error
	}{
		{"too short", "LINK", ErrInvalidGuess},
		{"too long", "LINUXES", ErrInvalidGuess},
		{"digits", "L1NUX", ErrInvalidGuess},
		{"not allowed", "PROXY", ErrNotInWordList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ApplyGuess(tt.guess)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, r.Attempts(), "rejected guesses must not consume attempts")

	_, err := r.ApplyGuess("links")
	require.NoError(t, err)
	// The secret itself is always accepted.
	_, err = r.ApplyGuess("LINUX")
	require.NoError(t, err)
	assert.True(t, r.Won())
}

func TestRoundKeyboardMatchesClassifyKeyboard(t *testing.T) {
	r := newTestRound(t, Options{Secret: "CRANE"})
	for _, g := range []string{"BRINK", "ROBOT"} {
		_, err := r.ApplyGuess(g)
		require.NoError(t, err)
	}
	want, err := ClassifyKeyboard(r.Secret, r.Guesses)
	require.NoError(t, err)
	assert.Equal(t, want, r.Keyboard())
}

func TestRoundElapsedUsesClock(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := start
	r := newTestRound(t, Options{Secret: "GOLANG", Now: func() time.Time { return now }})

	now = start.Add(90 * time.Second)
	_, err := r.ApplyGuess("GOLANG")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, r.Elapsed())
}

func TestRoundCloneIsIndependent(t *testing.T) {
	r := newTestRound(t, Options{Secret: "CRANE"})
	_, err := r.ApplyGuess("BRINK")
	require.NoError(t, err)

	cp := r.Clone()
	_, err = r.ApplyGuess("CRANE")
	require.NoError(t, err)

	assert.Equal(t, StatusPlaying, cp.Status)
	assert.Equal(t, []string{"BRINK"}, cp.Guesses)
	assert.Len(t, cp.Results, 1)
	assert.Equal(t, "", cp.Reveal())
	assert.Equal(t, "CRANE", r.Reveal())
}
