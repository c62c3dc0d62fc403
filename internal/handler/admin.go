package handler

import (
	"net/http"
	"strings"

	"github.com/pavelanni/proctor/internal/directory"
	"github.com/pavelanni/proctor/internal/model"
)

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := directory.Filter{
		Role:   model.UserRole(strings.ToUpper(q.Get("role"))),
		Status: model.UserStatus(strings.ToUpper(q.Get("status"))),
		Search: q.Get("q"),
	}
	users := h.mgr.Directory().Users(f)
	if users == nil {
		users = []model.User{}
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleServices(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		h.writeJSON(w, http.StatusOK, h.health.Services())
		return
	}
	h.writeJSON(w, http.StatusOK, h.mgr.Directory().Services())
}
