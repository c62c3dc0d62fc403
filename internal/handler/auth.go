package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/session"
)

// requireUser rejects requests when nobody is signed in and stores the
// user in the request context.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := h.mgr.User()
		if !ok {
			h.writeDomainError(w, session.ErrNotLoggedIn)
			return
		}
		ctx := model.ContextWithUser(r.Context(), &u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the id of the user stored by requireUser.
func userID(r *http.Request) string {
	if u := model.UserFromContext(r.Context()); u != nil {
		return u.ID
	}
	return ""
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id required")
		return
	}
	u, err := h.mgr.Login(r.Context(), req.UserID)
	if err != nil {
		h.logger.Warn("login rejected", "user", req.UserID, "error", err)
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Logout(r.Context()); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
