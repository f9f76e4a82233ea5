package game

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	C = Correct
	P = Present
	A = Absent
)

func TestClassifyGuess(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		guess  string
		want   []LetterState
	}{
		{"identical", "LEVEL", "LEVEL", []LetterState{C, C, C, C, C}},
		{"repeated secret letters", "ERROR", "ROBOT", []LetterState{P, A, A, C, A}},
		{"reversed", "ABCDE", "EDCBA", []LetterState{P, P, C, P, P}},
		{"multiplicity cap", "AABBB", "BBAAA", []LetterState{P, P, P, P, A}},
		{"exact match beats earlier duplicate", "ABBEY", "BABBY", []LetterState{P, P, C, A, C}},
		{"no overlap", "CRANE", "PILOT", []LetterState{A, A, A, A, A}},
		{"single duplicate guess letter", "ROBOT", "OOOOO", []LetterState{A, C, A, C, A}},
		{"accented letters as runes", "ÑANDU", "ÑANDU", []LetterState{C, C, C, C, C}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyGuess(tt.secret, tt.guess)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyGuessLengthMismatch(t *testing.T) {
	_, err := ClassifyGuess("CRANE", "CRAN")
	require.Error(t, err)

	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 5, invalid.SecretLen)
	assert.Equal(t, 4, invalid.GuessLen)
}

// referenceClassify is a direct transcription of the two-pass rule using a full
// frequency count of the secret, decremented on every correct or present mark.
func referenceClassify(secret, guess string) []LetterState {
	s, g := []rune(secret), []rune(guess)
	count := map[rune]int{}
	for _, r := range s {
		count[r]++
	}
	out := make([]LetterState, len(s))
	for i := range s {
		if g[i] == s[i] {
			out[i] = Correct
			count[g[i]]--
		}
	}
	for i := range s {
		if out[i] == Correct {
			continue
		}
		if count[g[i]] > 0 {
			out[i] = Present
			count[g[i]]--
		} else {
			out[i] = Absent
		}
	}
	return out
}

func randomWord(rng *rand.Rand, n int, alphabet string) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rng.Intn(len(alphabet))])
	}
	return b.String()
}

func TestClassifyGuessProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	// A small alphabet forces plenty of repeated letters.
	const alphabet = "ABCE"

	for i := 0; i < 2000; i++ {
		n := 1 + rng.Intn(7)
		secret := randomWord(rng, n, alphabet)
		guess := randomWord(rng, n, alphabet)

		got, err := ClassifyGuess(secret, guess)
		require.NoError(t, err)
		require.Equal(t, referenceClassify(secret, guess), got, "secret=%s guess=%s", secret, guess)

		marked := map[rune]int{}
		for j, r := range guess {
			if got[j] != Absent {
				marked[r]++
			}
		}
		for r, c := range marked {
			assert.LessOrEqual(t, c, strings.Count(secret, string(r)), "letter %c in %s/%s", r, secret, guess)
		}

		self, err := ClassifyGuess(secret, secret)
		require.NoError(t, err)
		assert.True(t, AllCorrect(self))
	}
}

func TestClassifyKeyboardEmpty(t *testing.T) {
	kb, err := ClassifyKeyboard("CRANE", nil)
	require.NoError(t, err)
	require.Len(t, kb, 26)
	for r := 'A'; r <= 'Z'; r++ {
		assert.Equal(t, KeyUnused, kb[r], "letter %c", r)
	}
}

func TestClassifyKeyboardNeverDowngrades(t *testing.T) {
	// R is correct in the first guess and only present in the second.
	secret := "CRANE"
	guesses := []string{"BRINK", "ROBOT", "FUZZY"}

	kb, err := ClassifyKeyboard(secret, guesses)
	require.NoError(t, err)

	assert.Equal(t, KeyCorrect, kb['R'])
	assert.Equal(t, KeyCorrect, kb['N'])
	assert.Equal(t, KeyAbsent, kb['B'])
	assert.Equal(t, KeyAbsent, kb['O'])
	assert.Equal(t, KeyAbsent, kb['Z'])
	assert.Equal(t, KeyUnused, kb['C'])
	assert.Equal(t, KeyUnused, kb['Q'])
}

func TestClassifyKeyboardPresentNotDowngradedToAbsent(t *testing.T) {
	// Repeated letters come back absent, but the earlier present mark holds.
	kb, err := ClassifyKeyboard("CRANE", []string{"EMBER", "GEESE"})
	require.NoError(t, err)
	assert.Equal(t, KeyCorrect, kb['E'])
	assert.Equal(t, KeyPresent, kb['R'])

	kb, err = ClassifyKeyboard("HELLO", []string{"LLAMA", "ALLOW"})
	require.NoError(t, err)
	assert.Equal(t, KeyCorrect, kb['L'])
	assert.Equal(t, KeyPresent, kb['O'])
}

func TestClassifyKeyboardOrderIndependentPerLetter(t *testing.T) {
	a, err := ClassifyKeyboard("CRANE", []string{"TRACE", "NOBLE"})
	require.NoError(t, err)
	b, err := ClassifyKeyboard("CRANE", []string{"NOBLE", "TRACE"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestClassifyKeyboardPropagatesInvalidInput(t *testing.T) {
	_, err := ClassifyKeyboard("CRANE", []string{"CRATE", "TOOLONG"})
	var invalid *InvalidInputError
	assert.True(t, errors.As(err, &invalid))
}

func TestKeyboardJSON(t *testing.T) {
	kb, err := ClassifyKeyboard("CRANE", []string{"CRATE"})
	require.NoError(t, err)

	raw, err := json.Marshal(kb)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "correct", decoded["C"])
	assert.Equal(t, "absent", decoded["T"])
	assert.Equal(t, "unused", decoded["Z"])
}
