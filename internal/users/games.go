// internal/users/games.go
//
// Round history. A row is written when a round starts (owned by a user or by an
// anonymous cookie id) and updated when it finishes. Secrets are never stored here.

package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/robalobadob/geekdle/internal/database"
	"github.com/robalobadob/geekdle/internal/progress"
)

// GameRecord is one row of the games table.
type GameRecord struct {
	ID         string     `json:"id"`
	UserID     string     `json:"-"`
	AnonID     string     `json:"-"`
	Mode       string     `json:"mode"`
	Category   string     `json:"category"`
	WordLength int        `json:"wordLength"`
	Status     string     `json:"status"`
	Guesses    int        `json:"guesses"`
	Points     int        `json:"points"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// InsertGame records a started round.
func (r *Repository) InsertGame(ctx context.Context, g GameRecord) error {
	if g.StartedAt.IsZero() {
		g.StartedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO games (id, user_id, anonymous_id, mode, category, word_length, status, guesses, points, started_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		g.ID, nullable(g.UserID), nullable(g.AnonID), g.Mode, g.Category, g.WordLength,
		g.Status, g.Guesses, g.Points, database.Timestamp(g.StartedAt))
	return err
}

// UpdateGame stores the progress of an unfinished round.
func (r *Repository) UpdateGame(ctx context.Context, id, status string, guesses int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE games SET status=?, guesses=? WHERE id=?`, status, guesses, id)
	return err
}

// FinishGame marks a round finished and, for signed-in owners, applies the
// result to their counters in the same transaction. It returns the updated
// stats (zero for guests).
func (r *Repository) FinishGame(ctx context.Context, id, userID string, won bool, guesses, points int) (progress.Stats, error) {
	status := "lost"
	if won {
		status = "won"
	}
	var out progress.Stats
	err := r.db.InTx(ctx, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE games SET status=?, guesses=?, points=?, finished_at=? WHERE id=? AND finished_at IS NULL`,
			status, guesses, points, database.Timestamp(r.now()), id)
		if err != nil {
			return err
		}
		if err := mustAffect(res); err != nil {
			return err
		}
		if userID == "" {
			return nil
		}
		out, err = recordResult(ctx, tx, userID, won, points)
		return err
	})
	return out, err
}

// RecentGames lists a user's latest rounds.
func (r *Repository) RecentGames(ctx context.Context, userID string, limit int) ([]GameRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, mode, category, word_length, status, guesses, points, started_at, finished_at
		FROM games WHERE user_id=? ORDER BY started_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []GameRecord{}
	for rows.Next() {
		var g GameRecord
		var started string
		var finished sql.NullString
		if err := rows.Scan(&g.ID, &g.Mode, &g.Category, &g.WordLength, &g.Status,
			&g.Guesses, &g.Points, &started, &finished); err != nil {
			return nil, err
		}
		g.UserID = userID
		g.StartedAt = database.ParseTimestamp(started)
		if finished.Valid && finished.String != "" {
			t := database.ParseTimestamp(finished.String)
			g.FinishedAt = &t
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ClaimAnonGames moves a guest's rounds to a user account.
func (r *Repository) ClaimAnonGames(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=? AND user_id IS NULL`, userID, anonID)
	return err
}
