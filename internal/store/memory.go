// internal/store/memory.go
//
// In-memory store for live rounds.
//
// Characteristics:
//   - Sessions (a round plus its owner) are keyed by round ID.
//   - Concurrency-safe via RWMutex; Update runs the mutation under the write lock
//     so two guesses on one round never interleave.
//   - Get hands out a clone, never the live round.
//   - Sessions idle longer than the TTL are dropped by Sweep / Run.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geekdle/internal/game"
)

var ErrNotFound = errors.New("round not found")

// Session is a live round and who is playing it.
type Session struct {
	Round  *game.Round
	UserID string // empty for guests
	AnonID string // guest cookie id, if any
}

// Owns reports whether the caller identified by userID/anonID may play s.
func (s *Session) Owns(userID, anonID string) bool {
	if s.UserID != "" {
		return s.UserID == userID
	}
	return s.AnonID != "" && s.AnonID == anonID
}

type entry struct {
	sess    Session
	touched time.Time
}

// Memory is a map-backed session store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

// NewMemory constructs an empty store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*entry), now: time.Now}
}

// Save adds or replaces a session.
func (m *Memory) Save(_ context.Context, s Session) error {
	if s.Round == nil {
		return errors.New("store: nil round")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Round.ID] = &entry{sess: s, touched: m.now()}
	return nil
}

// Get returns a copy of the session for id.
func (m *Memory) Get(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	s := e.sess
	s.Round = s.Round.Clone()
	return s, nil
}

// Update runs fn on the live session under the write lock and returns a copy
// of the session as fn left it. An error from fn is returned unchanged.
func (m *Memory) Update(_ context.Context, id string, fn func(*Session) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	e.touched = m.now()
	err := fn(&e.sess)
	s := e.sess
	s.Round = s.Round.Clone()
	return s, err
}

// Reassign hands every live guest session of anonID to userID and returns
// copies of the sessions it moved.
func (m *Memory) Reassign(_ context.Context, anonID, userID string) []Session {
	if anonID == "" || userID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var moved []Session
	for _, e := range m.sessions {
		if e.sess.UserID != "" || e.sess.AnonID != anonID {
			continue
		}
		e.sess.UserID = userID
		e.touched = m.now()
		s := e.sess
		s.Round = s.Round.Clone()
		moved = append(moved, s)
	}
	return moved
}

// Delete drops a session; missing ids are ignored.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len is the number of live sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions untouched for longer than olderThan and returns how many.
func (m *Memory) Sweep(olderThan time.Duration) int {
	cutoff := m.now().Add(-olderThan)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.sessions {
		if e.touched.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval, ttl time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := m.Sweep(ttl); n > 0 {
				log.Debug().Int("removed", n).Int("live", m.Len()).Msg("swept idle rounds")
			}
		}
	}
}
