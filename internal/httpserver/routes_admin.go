// internal/httpserver/routes_admin.go
//
// Admin-only routes (require auth + is_admin):
//   - GET    /admin/users            → page through accounts (?limit=&offset=)
//   - POST   /admin/users/{id}/admin → grant or revoke admin {admin: bool}
//   - DELETE /admin/users/{id}       → delete an account and its history
//   - GET    /admin/daily            → the words chosen for ?date= (default today)

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geekdle/internal/auth"
	"github.com/robalobadob/geekdle/internal/daily"
)

func (s *Server) mountAdminRoutes() {
	s.r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAuth, requireAdmin)
		r.Get("/users", s.handleAdminUsers)
		r.Post("/users/{id}/admin", s.handleAdminSetAdmin)
		r.Delete("/users/{id}", s.handleAdminDelete)
		r.Get("/daily", s.handleAdminDaily)
	})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.List(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		s.fail(w, err)
		return
	}
	total, err := s.users.Count(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "users": list})
}

func (s *Server) handleAdminSetAdmin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Admin bool `json:"admin"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "id")
	me := auth.FromContext(r.Context())
	if id == me.ID && !body.Admin {
		writeError(w, http.StatusBadRequest, "cannot_revoke_self")
		return
	}
	if err := s.users.SetAdmin(r.Context(), id, body.Admin); err != nil {
		s.fail(w, err)
		return
	}
	log.Info().Str("by", me.ID).Str("user", id).Bool("admin", body.Admin).Msg("admin rights changed")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	me := auth.FromContext(r.Context())
	if id == me.ID {
		writeError(w, http.StatusBadRequest, "cannot_delete_self")
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	log.Info().Str("by", me.ID).Str("user", id).Msg("account deleted")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAdminDaily(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	} else if _, err := daily.ParseDateKey(date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	list, err := s.daily.Store().WordsOn(r.Context(), date)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "words": list})
}
