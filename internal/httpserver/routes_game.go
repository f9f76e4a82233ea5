// internal/httpserver/routes_game.go
//
// Free-play ("infinite") rounds:
//   - POST /game/new    → start a round in a category {category}
//   - POST /game/guess  → apply {gameId, guess}; marks, state, keyboard, points
//   - GET  /game/{id}   → snapshot of a round
//
// Live rounds sit in the in-memory store; the games table keeps the history.
// The secret is only revealed once the round is over.

package httpserver

import (
	"errors"
	"math/rand/v2"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geekdle/internal/daily"
	"github.com/robalobadob/geekdle/internal/game"
	"github.com/robalobadob/geekdle/internal/progress"
	"github.com/robalobadob/geekdle/internal/store"
	"github.com/robalobadob/geekdle/internal/users"
	"github.com/robalobadob/geekdle/internal/words"
)

type newRoundReq struct {
	Category string `json:"category"`
}

type guessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}

type guessView struct {
	Word  string             `json:"word"`
	Marks []game.LetterState `json:"marks"`
}

// roundView is the public snapshot of a round.
type roundView struct {
	GameID      string        `json:"gameId"`
	Mode        game.Mode     `json:"mode"`
	Category    string        `json:"category"`
	Date        string        `json:"date,omitempty"`
	WordLength  int           `json:"wordLength"`
	MaxAttempts int           `json:"maxAttempts"`
	Guesses     []guessView   `json:"guesses"`
	State       game.Status   `json:"state"`
	Keyboard    game.Keyboard `json:"keyboard"`
	Answer      string        `json:"answer,omitempty"`
	ElapsedMs   int64         `json:"elapsedMs"`
}

func viewOf(rd *game.Round) *roundView {
	v := &roundView{
		GameID:      rd.ID,
		Mode:        rd.Mode,
		Category:    rd.Category,
		WordLength:  len([]rune(rd.Secret)),
		MaxAttempts: rd.MaxAttempts,
		Guesses:     make([]guessView, len(rd.Guesses)),
		State:       rd.Status,
		Keyboard:    rd.Keyboard(),
		Answer:      rd.Reveal(),
		ElapsedMs:   rd.Elapsed().Milliseconds(),
	}
	if rd.Mode == game.ModeDaily {
		v.Date = daily.DateKey(rd.StartedAt)
	}
	for i, g := range rd.Guesses {
		v.Guesses[i] = guessView{Word: g, Marks: rd.Results[i]}
	}
	return v
}

// guessRes is returned by both guess endpoints.
type guessRes struct {
	Marks     []game.LetterState `json:"marks"`
	State     game.Status        `json:"state"`
	Keyboard  game.Keyboard      `json:"keyboard"`
	Attempts  int                `json:"attempts"`
	Remaining int                `json:"remaining"`
	Answer    string             `json:"answer,omitempty"`
	Points    int                `json:"points"`
	Stats     *statsView         `json:"stats,omitempty"`
}

// category resolves a slug; an empty slug picks a random category.
func (s *Server) category(slug string) (*words.Category, bool) {
	if slug == "" {
		all := s.catalog.Categories()
		return all[rand.IntN(len(all))], true
	}
	return s.catalog.Get(slug)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newRoundReq
	if !decodeJSON(w, r, &req) {
		return
	}
	cat, ok := s.category(req.Category)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_category")
		return
	}
	p := s.playerFor(w, r)

	rd, err := game.NewRound(game.Options{
		Mode:     game.ModeInfinite,
		Category: cat.Slug,
		Secret:   cat.RandomWord(),
		Allowed:  cat.IsAllowed,
		Now:      s.now,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if !s.startRound(w, r, rd, p) {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rd))
}

// startRound saves a new round and writes its history row.
func (s *Server) startRound(w http.ResponseWriter, r *http.Request, rd *game.Round, p player) bool {
	sess := store.Session{Round: rd, UserID: p.userID}
	if p.userID == "" {
		sess.AnonID = p.anonID
	}
	if err := s.rounds.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save round")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return false
	}
	// Do NOT store the secret in the DB
	if err := s.users.InsertGame(r.Context(), users.GameRecord{
		ID:         rd.ID,
		UserID:     sess.UserID,
		AnonID:     sess.AnonID,
		Mode:       string(rd.Mode),
		Category:   rd.Category,
		WordLength: len([]rune(rd.Secret)),
		Status:     string(rd.Status),
		StartedAt:  rd.StartedAt,
	}); err != nil {
		log.Warn().Err(err).Str("gameId", rd.ID).Msg("insert game row")
	}
	return true
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	s.guess(w, r, game.ModeInfinite)
}

// guess applies a guess to a round of the given mode owned by the caller.
func (s *Server) guess(w http.ResponseWriter, r *http.Request, mode game.Mode) {
	var req guessReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.GameID == "" {
		writeError(w, http.StatusBadRequest, "missing_game_id")
		return
	}
	p := s.playerFor(w, r)

	if mode == game.ModeDaily {
		sess, err := s.rounds.Get(r.Context(), req.GameID)
		if err != nil {
			s.fail(w, err)
			return
		}
		if sess.Round.Mode != mode || !sess.Owns(p.userID, p.anonID) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		played, err := s.dailyPlayed(r, sess)
		if err != nil {
			s.fail(w, err)
			return
		}
		if played {
			writeError(w, http.StatusConflict, "already_played")
			return
		}
	}

	var marks []game.LetterState
	sess, err := s.rounds.Update(r.Context(), req.GameID, func(sess *store.Session) error {
		if sess.Round.Mode != mode || !sess.Owns(p.userID, p.anonID) {
			return store.ErrNotFound
		}
		var err error
		marks, err = sess.Round.ApplyGuess(req.Guess)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	rd := sess.Round
	res := guessRes{
		Marks:     marks,
		State:     rd.Status,
		Keyboard:  rd.Keyboard(),
		Attempts:  rd.Attempts(),
		Remaining: rd.Remaining(),
		Answer:    rd.Reveal(),
	}
	if rd.Finished() {
		res.Points, res.Stats = s.finishRound(r, sess)
	} else if err := s.users.UpdateGame(r.Context(), rd.ID, string(rd.Status), rd.Attempts()); err != nil {
		log.Warn().Err(err).Str("gameId", rd.ID).Msg("update game row")
	}
	writeJSON(w, http.StatusOK, res)
}

// finishRound persists a round that just ended: the daily result, history and
// progress for signed-in owners. Only the first daily result for a (player,
// day, category) scores. Failures are logged; the guess already counted.
func (s *Server) finishRound(r *http.Request, sess store.Session) (int, *statsView) {
	ctx := r.Context()
	rd := sess.Round
	points := progress.Points(rd.Mode, rd.Attempts(), rd.MaxAttempts, rd.Won())
	userID := sess.UserID

	if rd.Mode == game.ModeDaily {
		pl := player{userID: sess.UserID, anonID: sess.AnonID}
		day := daily.DateKey(rd.StartedAt)
		first, err := s.daily.Store().Record(ctx, daily.Result{
			PlayerID:  pl.id(),
			Day:       day,
			Category:  rd.Category,
			Guesses:   rd.Attempts(),
			ElapsedMs: int(rd.Elapsed().Milliseconds()),
			Won:       rd.Won(),
		})
		switch {
		case err != nil:
			log.Warn().Err(err).Str("gameId", rd.ID).Msg("insert daily result")
		case !first:
			log.Info().Str("gameId", rd.ID).Str("player", pl.id()).Msg("daily already settled, round not scored")
			points, userID = 0, ""
		}
		s.forgetDaily(pl.id(), day, rd.Category)
	}

	var stats *statsView
	st, err := s.users.FinishGame(ctx, rd.ID, userID, rd.Won(), rd.Attempts(), points)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("gameId", rd.ID).Msg("finish game")
	case userID != "":
		stats = newStatsView(st)
	}
	return points, stats
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.rounds.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	me := s.playerFor(w, r)
	if !sess.Owns(me.userID, me.anonID) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess.Round))
}

// fail maps domain errors to HTTP responses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var bad *game.InvalidInputError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, daily.ErrUnknownCategory):
		writeError(w, http.StatusNotFound, "unknown_category")
	case errors.Is(err, game.ErrRoundFinished):
		writeError(w, http.StatusConflict, "round_finished")
	case errors.Is(err, game.ErrInvalidGuess), errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, "invalid_guess")
	case errors.Is(err, game.ErrNotInWordList):
		writeError(w, http.StatusUnprocessableEntity, "not_in_word_list")
	case errors.Is(err, users.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken")
	case errors.Is(err, users.ErrSelfRequest):
		writeError(w, http.StatusBadRequest, "self_request")
	case errors.Is(err, users.ErrAlreadyRequested):
		writeError(w, http.StatusConflict, "already_requested")
	case errors.Is(err, users.ErrAlreadyFriends):
		writeError(w, http.StatusConflict, "already_friends")
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}
