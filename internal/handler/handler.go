// Package handler serves the single-client JSON API over a session.Manager.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/proctor/internal/directory"
	"github.com/pavelanni/proctor/internal/judge"
	"github.com/pavelanni/proctor/internal/questions"
	"github.com/pavelanni/proctor/internal/session"
)

// maxAnswerBytes caps PUT /exam/answer bodies.
const maxAnswerBytes = 1 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	mgr    *session.Manager
	health *directory.HealthFeed
	logger *slog.Logger
}

// New creates a Handler. health may be nil, in which case the directory's
// seed service records are served.
func New(mgr *session.Manager, health *directory.HealthFeed, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mgr: mgr, health: health, logger: logger}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/questions", h.handleQuestions)
	r.Get("/notifications", h.handleNotifications)
	r.Get("/notifications/stream", h.handleNotificationStream)
	r.Get("/directory/users", h.handleUsers)
	r.Get("/directory/services", h.handleServices)

	r.Route("/exam", func(r chi.Router) {
		r.Use(h.requireUser)
		r.Post("/", h.handleEnterExam)
		r.Get("/", h.handleSnapshot)
		r.Delete("/", h.handleLeaveExam)
		r.Put("/answer", h.handleEdit)
		r.Post("/run", h.handleRun)
		r.Post("/reset", h.handleReset)
		r.Post("/theme", h.handleTheme)
		r.Post("/submit", h.handleSubmit)
	})
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.mgr.Questions().List())
}

func (h *Handler) handleEnterExam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID string `json:"question_id"`
	}
	// An empty body enters the first question.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuestionID == "" {
		req.QuestionID = h.mgr.Questions().First().ID
	}
	s, err := h.mgr.EnterExam(r.Context(), req.QuestionID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.logger.Info("exam entered", "user", userID(r), "question", req.QuestionID, "session", s.ID())
	h.writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s, err := h.mgr.Current()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleLeaveExam(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.LeaveExam(); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAnswerBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "answer too large")
		return
	}
	s, err := h.mgr.Current()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := s.Edit(string(body)); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	s, err := h.mgr.Current()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	att, err := s.Run()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, att)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	s, err := h.mgr.Current()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := s.Reset(); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleTheme(w http.ResponseWriter, r *http.Request) {
	s, err := h.mgr.Current()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	theme, err := s.ToggleTheme()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"theme": theme})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s, err := h.mgr.Current()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	sub, err := s.Submit(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.logger.Info("exam submitted", "user", userID(r), "session", s.ID(), "submission", sub.ID)
	h.writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.mgr.Notifications().List())
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, judge.ErrBusy),
		errors.Is(err, judge.ErrRunning),
		errors.Is(err, judge.ErrClosed),
		errors.Is(err, session.ErrSubmitted),
		errors.Is(err, session.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, questions.ErrUnknownQuestion),
		errors.Is(err, directory.ErrUnknownUser),
		errors.Is(err, session.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotStudent),
		errors.Is(err, session.ErrInactiveUser):
		return http.StatusForbidden
	case errors.Is(err, session.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrInvalidText):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}
