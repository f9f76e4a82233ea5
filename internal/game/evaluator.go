// internal/game/evaluator.go
//
// Guess evaluation for Geekdle.
// Responsibilities:
//   - Classify a guess against the secret with the two-pass Wordle algorithm.
//   - Aggregate keyboard letter states across all guesses of a round.
//
// Both functions are pure: no I/O, no shared state, safe for concurrent use.

package game

// ClassifyGuess scores guess against secret, one LetterState per position.
//
// Pass 1:
//   - Mark exact matches as Correct.
//   - Count the secret letters left over at non-correct positions.
//
// Pass 2:
//   - For each remaining guess letter: if a leftover occurrence exists, mark Present
//     and consume it; otherwise mark Absent.
//
// Exact matches are resolved first so an earlier duplicate cannot take an occurrence
// that belongs to a later exact match.
func ClassifyGuess(secret, guess string) ([]LetterState, error) {
	s := []rune(secret)
	g := []rune(guess)
	if len(s) != len(g) {
		return nil, &InvalidInputError{SecretLen: len(s), GuessLen: len(g)}
	}

	res := make([]LetterState, len(s))
	remaining := make(map[rune]int, len(s))

	// First pass: exact matches and leftover counts.
	for i := range s {
		if g[i] == s[i] {
			res[i] = Correct
		} else {
			remaining[s[i]]++
		}
	}

	// Second pass: present/absent for the rest.
	for i := range g {
		if res[i] == Correct {
			continue
		}
		if remaining[g[i]] > 0 {
			res[i] = Present
			remaining[g[i]]--
		} else {
			res[i] = Absent
		}
	}
	return res, nil
}

// ClassifyKeyboard folds every guess into a Keyboard.
// A-Z start out KeyUnused; a letter's state only ever moves up
// (unused < absent < present < correct).
func ClassifyKeyboard(secret string, guesses []string) (Keyboard, error) {
	kb := NewKeyboard()
	for _, guess := range guesses {
		states, err := ClassifyGuess(secret, guess)
		if err != nil {
			return nil, err
		}
		kb.merge([]rune(guess), states)
	}
	return kb, nil
}

// NewKeyboard returns a keyboard with A-Z unused.
func NewKeyboard() Keyboard {
	kb := make(Keyboard, 26)
	for r := 'A'; r <= 'Z'; r++ {
		kb[r] = KeyUnused
	}
	return kb
}

func (k Keyboard) merge(letters []rune, states []LetterState) {
	for i, r := range letters {
		next := states[i].keyState()
		if next.rank() > k[r].rank() {
			k[r] = next
		}
	}
}

// AllCorrect reports whether every position is Correct.
func AllCorrect(states []LetterState) bool {
	if len(states) == 0 {
		return false
	}
	for _, s := range states {
		if s != Correct {
			return false
		}
	}
	return true
}
