// internal/users/friends.go
//
// Friendships. A row is a request from requester to addressee; it is either
// "pending" or "accepted". Sending a request to someone who already asked you
// accepts theirs instead of creating a second row.

package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/geekdle/internal/database"
	"github.com/robalobadob/geekdle/internal/progress"
)

const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
)

// Friendship is one friendships row.
type Friendship struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requesterId"`
	AddresseeID string    `json:"addresseeId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Friend is an accepted friend with their public progress.
type Friend struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
	Streak   int    `json:"streak"`
}

// Request is a pending friend request as seen by one side.
type Request struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pending groups a user's open requests.
type Pending struct {
	Incoming []Request `json:"incoming"`
	Outgoing []Request `json:"outgoing"`
}

// SendRequest asks toUsername to be friends with fromID.
func (r *Repository) SendRequest(ctx context.Context, fromID, toUsername string) (*Friendship, error) {
	to, err := r.ByUsername(ctx, toUsername)
	if err != nil {
		return nil, err
	}
	if to.ID == fromID {
		return nil, ErrSelfRequest
	}

	var out *Friendship
	err = r.db.InTx(ctx, func(tx *database.Tx) error {
		existing, err := findFriendship(ctx, tx, fromID, to.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch {
			case existing.Status == FriendAccepted:
				return ErrAlreadyFriends
			case existing.RequesterID == fromID:
				return ErrAlreadyRequested
			}
			// They asked first.
			if _, err := tx.ExecContext(ctx, `UPDATE friendships SET status=? WHERE id=?`, FriendAccepted, existing.ID); err != nil {
				return err
			}
			existing.Status = FriendAccepted
			out = existing
			return nil
		}

		f := &Friendship{
			ID:          uuid.NewString(),
			RequesterID: fromID,
			AddresseeID: to.ID,
			Status:      FriendPending,
			CreatedAt:   r.now().UTC(),
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO friendships (id, requester_id, addressee_id, status, created_at) VALUES (?,?,?,?,?)`,
			f.ID, f.RequesterID, f.AddresseeID, f.Status, database.Timestamp(f.CreatedAt))
		if errors.Is(database.MapError(err), database.ErrDuplicate) {
			return ErrAlreadyRequested
		}
		if err != nil {
			return err
		}
		out = f
		return nil
	})
	return out, err
}

// findFriendship returns the row between a and b in either direction, or nil.
func findFriendship(ctx context.Context, q database.Queryer, a, b string) (*Friendship, error) {
	var f Friendship
	var created string
	err := q.QueryRowContext(ctx, `
		SELECT id, requester_id, addressee_id, status, created_at FROM friendships
		WHERE (requester_id=? AND addressee_id=?) OR (requester_id=? AND addressee_id=?)`,
		a, b, b, a,
	).Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.CreatedAt = database.ParseTimestamp(created)
	return &f, nil
}

// Accept accepts a pending request addressed to userID.
func (r *Repository) Accept(ctx context.Context, userID, requestID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE friendships SET status=? WHERE id=? AND addressee_id=? AND status=?`,
		FriendAccepted, requestID, userID, FriendPending)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// Decline drops a pending request addressed to userID.
func (r *Repository) Decline(ctx context.Context, userID, requestID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM friendships WHERE id=? AND addressee_id=? AND status=?`,
		requestID, userID, FriendPending)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// Remove ends the friendship between userID and friendID.
func (r *Repository) Remove(ctx context.Context, userID, friendID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM friendships
		WHERE status=? AND ((requester_id=? AND addressee_id=?) OR (requester_id=? AND addressee_id=?))`,
		FriendAccepted, userID, friendID, friendID, userID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// friendIDs selects the ids of userID's accepted friends.
const friendIDs = `
	SELECT addressee_id FROM friendships WHERE requester_id=? AND status='accepted'
	UNION
	SELECT requester_id FROM friendships WHERE addressee_id=? AND status='accepted'`

// Friends lists userID's accepted friends by username.
func (r *Repository) Friends(ctx context.Context, userID string) ([]Friend, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, points, streak FROM users
		WHERE id IN (`+friendIDs+`)
		ORDER BY username ASC`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Friend{}
	for rows.Next() {
		var f Friend
		if err := rows.Scan(&f.ID, &f.Username, &f.Points, &f.Streak); err != nil {
			return nil, err
		}
		f.Level = progress.Level(f.Points)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Pending lists the open requests involving userID.
func (r *Repository) Pending(ctx context.Context, userID string) (Pending, error) {
	in, err := r.requests(ctx, `
		SELECT f.id, u.id, u.username, f.created_at FROM friendships f
		JOIN users u ON u.id = f.requester_id
		WHERE f.addressee_id=? AND f.status='pending'
		ORDER BY f.created_at ASC`, userID)
	if err != nil {
		return Pending{}, err
	}
	outgoing, err := r.requests(ctx, `
		SELECT f.id, u.id, u.username, f.created_at FROM friendships f
		JOIN users u ON u.id = f.addressee_id
		WHERE f.requester_id=? AND f.status='pending'
		ORDER BY f.created_at ASC`, userID)
	if err != nil {
		return Pending{}, err
	}
	return Pending{Incoming: in, Outgoing: outgoing}, nil
}

func (r *Repository) requests(ctx context.Context, q, userID string) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Request{}
	for rows.Next() {
		var req Request
		var created string
		if err := rows.Scan(&req.ID, &req.UserID, &req.Username, &created); err != nil {
			return nil, err
		}
		req.CreatedAt = database.ParseTimestamp(created)
		out = append(out, req)
	}
	return out, rows.Err()
}

// FriendRankings ranks userID among their accepted friends by points.
func (r *Repository) FriendRankings(ctx context.Context, userID string) ([]RankRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, points, wins, best_streak FROM users
		WHERE id=? OR id IN (`+friendIDs+`)
		ORDER BY points DESC, wins DESC, username ASC`, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	return scanRanks(rows)
}
