// internal/httpserver/server.go
//
// HTTP server wiring for the Geekdle backend.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery, timeouts, JSON, CORS, access log).
//   - Public endpoints: "/", "/health", "/categories".
//   - Game endpoints (optional auth): /game/*.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//   - Social endpoints: /rankings, /friends/*.
//   - Admin endpoints: /admin/*.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with the caller's identity when a valid token
//     is present; routes still run for guests.
//   - Guests are tracked by an anonymous cookie id; their history moves to the
//     account on signup/login.

package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geekdle/internal/auth"
	"github.com/robalobadob/geekdle/internal/config"
	"github.com/robalobadob/geekdle/internal/daily"
	"github.com/robalobadob/geekdle/internal/store"
	"github.com/robalobadob/geekdle/internal/users"
	"github.com/robalobadob/geekdle/internal/words"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Config  *config.Config
	Catalog *words.Catalog
	Rounds  *store.Memory
	Users   *users.Repository
	Daily   *daily.Service
}

// Server bundles the router and its dependencies.
type Server struct {
	r       *chi.Mux
	cfg     *config.Config
	catalog *words.Catalog
	rounds  *store.Memory
	users   *users.Repository
	daily   *daily.Service
	tokens  *auth.Tokens
	now     func() time.Time

	// active maps player|day|category to the daily round in progress.
	activeMu sync.Mutex
	active   map[string]string
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     d.Config,
		catalog: d.Catalog,
		rounds:  d.Rounds,
		users:   d.Users,
		daily:   d.Daily,
		tokens:  auth.NewTokens(d.Config.JWTSecret, d.Config.TokenTTL()),
		now:     time.Now,
		active:  make(map[string]string),
	}

	timeout := d.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)   // zerolog access log
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(chimw.Timeout(timeout))
	s.r.Use(jsonContentType)
	s.r.Use(cors(d.Config.ClientOrigin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "geekdle",
			"endpoints": []string{"/health", "/categories", "POST /game/new", "POST /game/guess", "/daily/*", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "rounds": s.rounds.Len()})
	})
	s.r.Get("/categories", s.handleCategories)

	// Game endpoints: OPTIONAL AUTH (guests can play)
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth)
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/guess", s.handleGuess)
		r.Get("/game/{id}", s.handleGetGame)
		s.mountDaily(r)
	})

	s.mountAuthRoutes()
	s.mountSocialRoutes()
	s.mountAdminRoutes()

	// JSON 404/405 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// categoryView is the public shape of a catalog category.
type categoryView struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Words       int    `json:"words"`
	MinLength   int    `json:"minLength"`
	MaxLength   int    `json:"maxLength"`
	Strict      bool   `json:"strict"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	out := []categoryView{}
	for _, c := range s.catalog.Categories() {
		shortest, longest := c.Lengths()
		answers, _ := c.Stats()
		out = append(out, categoryView{
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.Description,
			Words:       answers,
			MinLength:   shortest,
			MaxLength:   longest,
			Strict:      c.Strict,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
