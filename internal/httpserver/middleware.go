// internal/httpserver/middleware.go
//
// Middleware and request helpers: JSON responses, CORS, access logging,
// JWT/cookie auth and the anonymous player cookie.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geekdle/internal/auth"
	"github.com/robalobadob/geekdle/internal/users"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			ev := log.Info()
			if ww.Status() >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Str("requestId", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ------------------------------- responses ---------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// decodeJSON reads a JSON body into v; an empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, "bad_json")
	return false
}

// --------------------------------- auth ------------------------------------

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// identify resolves the request's token to a live account.
func (s *Server) identify(r *http.Request) (*auth.Identity, error) {
	tok := s.bearerOrCookie(r)
	if tok == "" {
		return nil, auth.ErrInvalidToken
	}
	id, err := s.tokens.Parse(tok)
	if err != nil {
		return nil, err
	}
	// Ensure user still exists
	u, err := s.users.ByID(r.Context(), id.ID)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}, nil
}

// withOptionalAuth decorates requests with the identity if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := s.identify(r); err == nil {
			r = r.WithContext(auth.WithUser(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth enforces a valid JWT for a live account.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identify(r)
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), id)))
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, users.ErrNotFound):
			if s.bearerOrCookie(r) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusUnauthorized, "invalid_token")
		default:
			log.Error().Err(err).Msg("identify caller")
			writeError(w, http.StatusInternalServerError, "server_error")
		}
	})
}

// requireAdmin must run after requireAuth.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if me := auth.FromContext(r.Context()); me == nil || !me.IsAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- cookies -----------------------------------

func (s *Server) cookie(name, value string) *http.Cookie {
	secure := s.cfg.Production()
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}

// setAuthCookie writes the auth token cookie.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	c := s.cookie(s.cfg.CookieName, token)
	c.Expires = exp
	http.SetCookie(w, c)
}

// clearAuthCookie deletes the auth token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	c := s.cookie(s.cfg.CookieName, "")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// anonID returns the guest cookie id, or "" if none was issued.
func (s *Server) anonID(r *http.Request) string {
	if c, err := r.Cookie(s.cfg.AnonCookieName); err == nil {
		return c.Value
	}
	return ""
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if id := s.anonID(r); id != "" {
		return id
	}
	id := "anon-" + uuid.NewString()
	c := s.cookie(s.cfg.AnonCookieName, id)
	c.Expires = s.now().Add(180 * 24 * time.Hour)
	http.SetCookie(w, c)
	return id
}

// player is whoever is making a game request.
type player struct {
	userID string
	anonID string
}

// id is the key results are stored under.
func (p player) id() string {
	if p.userID != "" {
		return p.userID
	}
	return p.anonID
}

// playerFor identifies the caller, issuing a guest cookie when needed.
func (s *Server) playerFor(w http.ResponseWriter, r *http.Request) player {
	if me := auth.FromContext(r.Context()); me != nil {
		return player{userID: me.ID, anonID: s.anonID(r)}
	}
	return player{anonID: s.ensureAnonID(w, r)}
}
