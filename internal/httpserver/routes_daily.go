// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
//   - POST /daily/new         → start today's round in a category (or reuse the live one)
//   - POST /daily/guess       → submit a guess for today's round
//   - GET  /daily/leaderboard → best results for a day and category
//
// Each player can finish a category once per day (enforced by the daily_results key).
// The word for (day, category) comes from the daily service, so every player
// and every server instance gets the same secret.

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geekdle/internal/daily"
	"github.com/robalobadob/geekdle/internal/game"
	"github.com/robalobadob/geekdle/internal/store"
)

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.handleDailyNew)
		r.Post("/guess", s.handleDailyGuess)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

func dailyKey(playerID, day, category string) string {
	return playerID + "|" + day + "|" + category
}

// activeDaily returns the live daily round for the key, if it is still in the store.
func (s *Server) activeDaily(r *http.Request, key string) (*game.Round, bool) {
	s.activeMu.Lock()
	id, ok := s.active[key]
	s.activeMu.Unlock()
	if !ok {
		return nil, false
	}
	sess, err := s.rounds.Get(r.Context(), id)
	if err != nil || sess.Round.Finished() {
		s.activeMu.Lock()
		delete(s.active, key)
		s.activeMu.Unlock()
		return nil, false
	}
	return sess.Round, true
}

func (s *Server) forgetDaily(playerID, day, category string) {
	s.activeMu.Lock()
	delete(s.active, dailyKey(playerID, day, category))
	s.activeMu.Unlock()
}

// dailyNewRes is returned by /daily/new. The round fields are absent when
// the player has already finished today's word.
type dailyNewRes struct {
	*roundView
	Date     string `json:"date"`
	Category string `json:"category"`
	Played   bool   `json:"played"`
}

// rebindDaily moves a live daily round from a guest key to an account key.
// An account that already has a live round for the same day keeps it.
func (s *Server) rebindDaily(anonID, userID string, rd *game.Round) {
	day := daily.DateKey(rd.StartedAt)
	from := dailyKey(anonID, day, rd.Category)
	to := dailyKey(userID, day, rd.Category)
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	if s.active[from] == rd.ID {
		delete(s.active, from)
	}
	if _, taken := s.active[to]; !taken {
		s.active[to] = rd.ID
	}
}

// dailyPlayed reports whether the owner of sess already has a result for
// the round's day and category.
func (s *Server) dailyPlayed(r *http.Request, sess store.Session) (bool, error) {
	pl := player{userID: sess.UserID, anonID: sess.AnonID}
	return s.daily.Store().AlreadyPlayed(r.Context(), pl.id(), daily.DateKey(sess.Round.StartedAt), sess.Round.Category)
}

func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	var req newRoundReq
	if !decodeJSON(w, r, &req) {
		return
	}
	cat, ok := s.catalog.Get(req.Category)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_category")
		return
	}
	p := s.playerFor(w, r)
	now := s.now()
	day := daily.DateKey(now)

	played, err := s.daily.Store().AlreadyPlayed(r.Context(), p.id(), day, cat.Slug)
	if err != nil {
		s.fail(w, err)
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: day, Category: cat.Slug, Played: true})
		return
	}

	key := dailyKey(p.id(), day, cat.Slug)
	if rd, ok := s.activeDaily(r, key); ok {
		writeJSON(w, http.StatusOK, dailyNewRes{roundView: viewOf(rd), Date: day, Category: cat.Slug})
		return
	}

	word, err := s.daily.WordFor(r.Context(), now, cat.Slug)
	if err != nil {
		s.fail(w, err)
		return
	}
	rd, err := game.NewRound(game.Options{
		Mode:     game.ModeDaily,
		Category: cat.Slug,
		Secret:   word.Word,
		Allowed:  cat.IsAllowed,
		Now:      s.now,
	})
	if err != nil {
		log.Error().Err(err).Str("category", cat.Slug).Str("day", day).Msg("daily word unusable")
		writeError(w, http.StatusInternalServerError, "daily_unavailable")
		return
	}
	if !s.startRound(w, r, rd, p) {
		return
	}
	s.activeMu.Lock()
	s.active[key] = rd.ID
	s.activeMu.Unlock()

	writeJSON(w, http.StatusOK, dailyNewRes{roundView: viewOf(rd), Date: day, Category: cat.Slug})
}

func (s *Server) handleDailyGuess(w http.ResponseWriter, r *http.Request) {
	s.guess(w, r, game.ModeDaily)
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date     string        `json:"date"`
	Category string        `json:"category"`
	Top      []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for ?date= (default today) and
// ?category= (default the first category).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	} else if _, err := daily.ParseDateKey(date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	slug := q.Get("category")
	if slug == "" {
		slug = s.catalog.Categories()[0].Slug
	}
	cat, ok := s.catalog.Get(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_category")
		return
	}
	rows, err := s.daily.Store().Leaderboard(r.Context(), date, cat.Slug, 20)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Category: cat.Slug, Top: rows})
}
