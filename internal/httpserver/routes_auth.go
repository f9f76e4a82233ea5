// internal/httpserver/routes_auth.go
//
// Accounts and personal progress:
//   - POST /auth/signup, /auth/login, /auth/logout
//   - GET  /auth/me, /stats/me, /games/mine (require auth)
//
// Signup and login set the auth cookie and also return the token for
// clients that prefer the Authorization header. Any guest history under the
// caller's anonymous cookie is moved to the account.

package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geekdle/internal/auth"
	"github.com/robalobadob/geekdle/internal/game"
	"github.com/robalobadob/geekdle/internal/progress"
	"github.com/robalobadob/geekdle/internal/users"
)

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authRes struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// statsView is a player's progress as shown to clients.
type statsView struct {
	progress.Stats
	Level       int `json:"level"`
	NextLevelAt int `json:"nextLevelAt"`
	WinRate     int `json:"winRate"`
}

func newStatsView(st progress.Stats) *statsView {
	lvl := progress.Level(st.Points)
	return &statsView{Stats: st, Level: lvl, NextLevelAt: progress.NextLevelAt(lvl), WinRate: st.WinRate()}
}

// mountAuthRoutes registers authentication + gated profile routes.
func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	s.r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, auth.FromContext(r.Context()))
		})
		r.Get("/stats/me", s.handleStats)
		r.Get("/games/mine", s.handleMyGames)
	})
}

// handleSignup creates a new user, signs a JWT, sets the auth cookie and claims guest history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if !decodeJSON(w, r, &body) {
		return
	}
	username := auth.NormalizeUsername(body.Username)
	if err := auth.ValidateSignup(username, body.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		s.fail(w, err)
		return
	}
	u, err := s.users.Create(r.Context(), username, hash)
	if err != nil {
		s.fail(w, err)
		return
	}
	log.Info().Str("user", u.ID).Bool("admin", u.IsAdmin).Msg("account created")
	s.issueSession(w, r, u, http.StatusCreated)
}

// handleLogin authenticates a user, sets the cookie and claims guest history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if !decodeJSON(w, r, &body) {
		return
	}
	u, err := s.users.ByUsername(r.Context(), auth.NormalizeUsername(body.Username))
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		s.fail(w, err)
		return
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, body.Password) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	s.issueSession(w, r, u, http.StatusOK)
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, u *users.User, status int) {
	tok, exp, err := s.tokens.Sign(u.ID, u.Username)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setAuthCookie(w, tok, exp)
	s.claimGuestHistory(r, u.ID)
	writeJSON(w, status, authRes{
		ID:        u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
		Token:     tok,
		ExpiresAt: exp,
	})
}

// claimGuestHistory attaches any anonymous games, live rounds and daily results
// to the account.
func (s *Server) claimGuestHistory(r *http.Request, userID string) {
	anon := s.anonID(r)
	if anon == "" {
		return
	}
	for _, sess := range s.rounds.Reassign(r.Context(), anon, userID) {
		if sess.Round.Mode == game.ModeDaily && !sess.Round.Finished() {
			s.rebindDaily(anon, userID, sess.Round)
		}
	}
	if err := s.users.ClaimAnonGames(r.Context(), anon, userID); err != nil {
		log.Warn().Err(err).Msg("claim anon games")
	}
	if err := s.daily.Store().ClaimResults(r.Context(), anon, userID); err != nil {
		log.Warn().Err(err).Msg("claim anon daily results")
	}
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	me := auth.FromContext(r.Context())
	u, err := s.users.ByID(r.Context(), me.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		*statsView
	}{u.ID, u.Username, newStatsView(u.Stats)})
}

func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	me := auth.FromContext(r.Context())
	games, err := s.users.RecentGames(r.Context(), me.ID, queryInt(r, "limit", 50))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
