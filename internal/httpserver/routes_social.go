// internal/httpserver/routes_social.go
//
// Rankings and friends:
//   - GET    /rankings                        → global leaderboard by points
//   - GET    /rankings/friends                → caller and friends by points
//   - GET    /friends                         → accepted friends
//   - GET    /friends/requests                → pending requests {incoming, outgoing}
//   - POST   /friends/requests                → send {username}
//   - POST   /friends/requests/{id}/accept    → accept an incoming request
//   - POST   /friends/requests/{id}/decline   → decline an incoming request
//   - DELETE /friends/{id}                    → unfriend user {id}

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/geekdle/internal/auth"
)

func (s *Server) mountSocialRoutes() {
	s.r.Get("/rankings", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.users.Rankings(r.Context(), queryInt(r, "limit", 20))
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	})

	s.r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/rankings/friends", s.handleFriendRankings)
		r.Route("/friends", func(r chi.Router) {
			r.Get("/", s.handleFriends)
			r.Delete("/{id}", s.handleUnfriend)
			r.Get("/requests", s.handlePending)
			r.Post("/requests", s.handleSendRequest)
			r.Post("/requests/{id}/accept", s.handleAccept)
			r.Post("/requests/{id}/decline", s.handleDecline)
		})
	})
}

func (s *Server) handleFriendRankings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.users.FriendRankings(r.Context(), auth.FromContext(r.Context()).ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.users.Friends(r.Context(), auth.FromContext(r.Context()).ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	p, err := s.users.Pending(r.Context(), auth.FromContext(r.Context()).ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Username == "" {
		writeError(w, http.StatusBadRequest, "missing_username")
		return
	}
	f, err := s.users.SendRequest(r.Context(), auth.FromContext(r.Context()).ID, body.Username)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Accept(r.Context(), auth.FromContext(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Decline(r.Context(), auth.FromContext(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleUnfriend(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Remove(r.Context(), auth.FromContext(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
