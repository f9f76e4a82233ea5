// internal/users/users.go
//
// Accounts, progress counters and rankings.
//
// Notes:
//   - Usernames are unique case-insensitively; the stored spelling is kept for display.
//   - The first account created becomes an admin, as does the configured admin username.
//   - Progress counters change only through RecordResult / FinishGame, inside a transaction.

package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/geekdle/internal/database"
	"github.com/robalobadob/geekdle/internal/progress"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUsernameTaken    = errors.New("username taken")
	ErrSelfRequest      = errors.New("cannot befriend yourself")
	ErrAlreadyRequested = errors.New("friend request already exists")
	ErrAlreadyFriends   = errors.New("already friends")
)

// User is an account row.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	progress.Stats
}

// Level is the user's level from their points.
func (u *User) Level() int { return progress.Level(u.Points) }

// RankRow is one line of a points leaderboard.
type RankRow struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Points     int    `json:"points"`
	Level      int    `json:"level"`
	Wins       int    `json:"wins"`
	BestStreak int    `json:"bestStreak"`
}

// Repository is the account store.
type Repository struct {
	db            *database.DB
	adminUsername string
	now           func() time.Time
}

// Option customizes a Repository.
type Option func(*Repository)

// WithAdminUsername grants admin to the account with this username on creation.
func WithAdminUsername(name string) Option {
	return func(r *Repository) { r.adminUsername = strings.TrimSpace(name) }
}

func NewRepository(db *database.DB, opts ...Option) *Repository {
	r := &Repository{db: db, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

const userCols = `id, username, password_hash, is_admin, created_at,
	games_played, wins, streak, best_streak, points`

type scanner interface{ Scan(dest ...any) error }

func scanUser(row scanner) (*User, error) {
	var u User
	var admin int
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &admin, &created,
		&u.GamesPlayed, &u.Wins, &u.Streak, &u.BestStreak, &u.Points); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.IsAdmin = admin == 1
	u.CreatedAt = database.ParseTimestamp(created)
	return &u, nil
}

// Create inserts a new account with an already hashed password.
func (r *Repository) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}
	err := r.db.InTx(ctx, func(tx *database.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
		if err != nil {
			return err
		}
		if exists > 0 {
			return ErrUsernameTaken
		}
		var total int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&total); err != nil {
			return err
		}
		u.IsAdmin = total == 0 || (r.adminUsername != "" && strings.EqualFold(r.adminUsername, username))

		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, username, password_hash, is_admin, created_at) VALUES (?,?,?,?,?)`,
			u.ID, u.Username, u.PasswordHash, boolInt(u.IsAdmin), database.Timestamp(u.CreatedAt))
		if errors.Is(database.MapError(err), database.ErrDuplicate) {
			return ErrUsernameTaken
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ByID loads a user by id.
func (r *Repository) ByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=?`, id))
}

// ByUsername loads a user by username, ignoring case.
func (r *Repository) ByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE lower(username)=lower(?)`, strings.TrimSpace(username)))
}

// List pages through accounts in signup order.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users ORDER BY created_at ASC, username ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Count returns the number of accounts.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n)
	return n, err
}

// SetAdmin grants or revokes admin rights.
func (r *Repository) SetAdmin(ctx context.Context, id string, admin bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_admin=? WHERE id=?`, boolInt(admin), id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// EnsureAdmin grants admin to username if that account exists.
func (r *Repository) EnsureAdmin(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_admin=1 WHERE lower(username)=lower(?)`, strings.TrimSpace(username))
	return err
}

// Delete removes an account with its games, friendships and daily results.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.InTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_results WHERE player_id=?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM games WHERE user_id=?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM friendships WHERE requester_id=? OR addressee_id=?`, id, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

// RecordResult folds one finished round into the user's counters.
func (r *Repository) RecordResult(ctx context.Context, userID string, won bool, points int) (progress.Stats, error) {
	var out progress.Stats
	err := r.db.InTx(ctx, func(tx *database.Tx) error {
		var err error
		out, err = recordResult(ctx, tx, userID, won, points)
		return err
	})
	return out, err
}

func recordResult(ctx context.Context, q database.Queryer, userID string, won bool, points int) (progress.Stats, error) {
	var s progress.Stats
	err := q.QueryRowContext(ctx,
		`SELECT games_played, wins, streak, best_streak, points FROM users WHERE id=?`, userID,
	).Scan(&s.GamesPlayed, &s.Wins, &s.Streak, &s.BestStreak, &s.Points)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	s = progress.Apply(s, won, points)
	_, err = q.ExecContext(ctx,
		`UPDATE users SET games_played=?, wins=?, streak=?, best_streak=?, points=? WHERE id=?`,
		s.GamesPlayed, s.Wins, s.Streak, s.BestStreak, s.Points, userID)
	if err != nil {
		return s, fmt.Errorf("update stats: %w", err)
	}
	return s, nil
}

// Rankings returns the global points leaderboard.
func (r *Repository) Rankings(ctx context.Context, limit int) ([]RankRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, points, wins, best_streak FROM users
		ORDER BY points DESC, wins DESC, username ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanRanks(rows)
}

func scanRanks(rows *sql.Rows) ([]RankRow, error) {
	defer rows.Close()
	out := []RankRow{}
	for rows.Next() {
		var rr RankRow
		if err := rows.Scan(&rr.UserID, &rr.Username, &rr.Points, &rr.Wins, &rr.BestStreak); err != nil {
			return nil, err
		}
		rr.Rank = len(out) + 1
		rr.Level = progress.Level(rr.Points)
		out = append(out, rr)
	}
	return out, rows.Err()
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
