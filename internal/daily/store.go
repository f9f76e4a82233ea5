// internal/daily/store.go
//
// Persistence for the daily challenge: the word chosen for each (day, category)
// and each player's result. One result per player per day per category,
// enforced by the primary key.

package daily

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/robalobadob/geekdle/internal/database"
)

// Word sources.
const (
	SourceCatalog   = "catalog"
	SourceGenerated = "generated"
)

// Word is the secret chosen for a category on a given day.
type Word struct {
	Day      string `json:"day"`
	Category string `json:"category"`
	Word     string `json:"word"`
	Source   string `json:"source"`
}

// Result is one player's finished daily round.
type Result struct {
	PlayerID  string `json:"playerId"`
	Day       string `json:"day"`
	Category  string `json:"category"`
	Guesses   int    `json:"guesses"`
	ElapsedMs int    `json:"elapsedMs"`
	Won       bool   `json:"won"`
}

// LBRow is one leaderboard line. Username is empty for guests.
type LBRow struct {
	PlayerID  string `json:"playerId"`
	Username  string `json:"username,omitempty"`
	Guesses   int    `json:"guesses"`
	ElapsedMs int    `json:"elapsedMs"`
	Won       bool   `json:"won"`
}

type Store struct{ db *database.DB }

func NewStore(db *database.DB) *Store { return &Store{db: db} }

// Word returns the stored word for (day, category); ok is false if none yet.
func (s *Store) Word(ctx context.Context, day, category string) (w Word, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT day, category, word, source FROM daily_words WHERE day=? AND category=?`,
		day, category,
	).Scan(&w.Day, &w.Category, &w.Word, &w.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return Word{}, false, nil
	}
	if err != nil {
		return Word{}, false, err
	}
	return w, true, nil
}

// InsertWord stores w unless a word already exists for its (day, category).
func (s *Store) InsertWord(ctx context.Context, w Word) error {
	q := s.db.Dialect().InsertIgnore("daily_words", "day", "category", "word", "source", "created_at")
	_, err := s.db.ExecContext(ctx, q, w.Day, w.Category, w.Word, w.Source, database.Timestamp(time.Now()))
	return err
}

// RecentWords returns the latest words of a category, newest first.
func (s *Store) RecentWords(ctx context.Context, category string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT word FROM daily_words WHERE category=? ORDER BY day DESC LIMIT ?`, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// WordsOn lists every category's word for a day.
func (s *Store) WordsOn(ctx context.Context, day string) ([]Word, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, category, word, source FROM daily_words WHERE day=? ORDER BY category`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Word{}
	for rows.Next() {
		var w Word
		if err := rows.Scan(&w.Day, &w.Category, &w.Word, &w.Source); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AlreadyPlayed reports whether the player has a result for (day, category).
func (s *Store) AlreadyPlayed(ctx context.Context, playerID, day, category string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE player_id=? AND day=? AND category=?`,
		playerID, day, category,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records a result; a second result for the same key is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.Record(ctx, r)
	return err
}

// Record is InsertResult that also reports whether r was the first result
// for its (player, day, category).
func (s *Store) Record(ctx context.Context, r Result) (bool, error) {
	q := s.db.Dialect().InsertIgnore("daily_results",
		"player_id", "day", "category", "guesses", "elapsed_ms", "won", "created_at")
	res, err := s.db.ExecContext(ctx, q,
		r.PlayerID, r.Day, r.Category, r.Guesses, r.ElapsedMs, boolInt(r.Won), database.Timestamp(time.Now()))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClaimResults moves a guest's results to a user account, skipping clashes.
func (s *Store) ClaimResults(ctx context.Context, anonID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE daily_results SET player_id=?
		WHERE player_id=? AND NOT EXISTS (
			SELECT 1 FROM (SELECT player_id, day, category FROM daily_results) AS mine
			WHERE mine.player_id=? AND mine.day=daily_results.day AND mine.category=daily_results.category
		)`, userID, anonID, userID)
	return err
}

// Leaderboard returns the day's best results for a category.
// Wins first, then fewer guesses, then faster, then earlier.
func (s *Store) Leaderboard(ctx context.Context, day, category string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.player_id, COALESCE(u.username, ''), r.guesses, r.elapsed_ms, r.won
		FROM daily_results r
		LEFT JOIN users u ON u.id = r.player_id
		WHERE r.day=? AND r.category=?
		ORDER BY r.won DESC, r.guesses ASC, r.elapsed_ms ASC, r.created_at ASC
		LIMIT ?`, day, category, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		var won int
		if err := rows.Scan(&r.PlayerID, &r.Username, &r.Guesses, &r.ElapsedMs, &won); err != nil {
			return nil, err
		}
		r.Won = won == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
