// Package session is the proctored exam session controller.
//
// A Manager is the root of one client: it owns the notification channel,
// the signed-in user and at most one exam Session. A Session composes the
// answer buffer, draft autosave, the execution judge, the integrity
// monitor and the countdown, and tears all of them down on exit.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/directory"
	"github.com/pavelanni/proctor/internal/draft"
	"github.com/pavelanni/proctor/internal/i18n"
	"github.com/pavelanni/proctor/internal/judge"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/notify"
	"github.com/pavelanni/proctor/internal/proctor"
	"github.com/pavelanni/proctor/internal/questions"
)

var (
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrUnknownUser  = directory.ErrUnknownUser
	ErrInactiveUser = errors.New("user is inactive")
	ErrNotStudent   = errors.New("only students can take exams")
	ErrNoSession    = errors.New("no active exam session")
	ErrClosed       = errors.New("exam session has ended")
	ErrSubmitted    = errors.New("exam already submitted")
	ErrInvalidText  = errors.New("answer is not valid UTF-8")
)

// SubmissionRecorder keeps final answers. The sqlite store implements it.
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, sub model.Submission) (int64, error)
}

// Config wires a Manager. Clock, Drafts, Questions and Directory are
// required; everything else has a default.
type Config struct {
	Clock     clock.Clock
	Notify    *notify.Channel
	Drafts    *draft.Persistence
	Questions *questions.Bank
	Directory *directory.Directory
	Exam      model.ExamConfig

	Device           proctor.CaptureDevice
	Evaluator        judge.Evaluator
	EvaluatorTimeout time.Duration
	Submissions      SubmissionRecorder

	MonitorRand proctor.Rand
	JudgeRand   judge.Rand
	Logger      *slog.Logger

	// OnChange is called, outside every lock, whenever background work
	// changes what a Snapshot would show.
	OnChange func()
}

// Manager is the root controller of one client.
type Manager struct {
	cfg       Config
	logger    *slog.Logger
	notify    *notify.Channel
	ownNotify bool

	mu      sync.Mutex
	user    *model.User
	current *Session
}

// NewManager creates a Manager. When cfg.Notify is nil the Manager creates
// and owns its notification channel.
func NewManager(cfg Config) *Manager {
	m := &Manager{cfg: cfg, logger: cfg.Logger, notify: cfg.Notify}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.notify == nil {
		m.notify = notify.New(cfg.Clock, notify.WithLogger(m.logger))
		m.ownNotify = true
	}
	if m.cfg.Device == nil {
		m.cfg.Device = proctor.NoDevice{}
	}
	return m
}

// Notifications returns the channel every component publishes to.
func (m *Manager) Notifications() *notify.Channel { return m.notify }

// Questions returns the question bank.
func (m *Manager) Questions() *questions.Bank { return m.cfg.Questions }

// Directory returns the user directory.
func (m *Manager) Directory() *directory.Directory { return m.cfg.Directory }

// Login signs in userID. Signing in as a different user ends the current
// exam session. No credentials are checked.
func (m *Manager) Login(ctx context.Context, userID string) (model.User, error) {
	u, err := m.cfg.Directory.User(userID)
	if err != nil {
		return model.User{}, err
	}
	if u.Status != model.UserActive {
		return model.User{}, fmt.Errorf("%w: %s", ErrInactiveUser, userID)
	}

	m.mu.Lock()
	if m.user != nil && m.user.ID != u.ID {
		m.exitLocked()
	}
	m.user = &u
	m.mu.Unlock()

	m.logger.Info("user logged in", "user", u.ID, "role", u.Role)
	m.notify.Publish(model.NotifyInfo, i18n.Td(ctx, "NotifyWelcome", map[string]any{"Name": u.Name}))
	return u, nil
}

// Logout ends the exam session, if any, and signs the user out.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return ErrNotLoggedIn
	}
	m.exitLocked()
	userID := m.user.ID
	m.user = nil
	m.mu.Unlock()

	m.logger.Info("user logged out", "user", userID)
	m.notify.Publish(model.NotifyInfo, i18n.T(ctx, "NotifyLoggedOut"))
	return nil
}

// User returns the signed-in user.
func (m *Manager) User() (model.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return model.User{}, false
	}
	return *m.user, true
}

// EnterExam exits any current session and starts a new one on questionID.
// ctx supplies the localizer for the session's notifications.
func (m *Manager) EnterExam(ctx context.Context, questionID string) (*Session, error) {
	q, err := m.cfg.Questions.Get(questionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, ErrNotLoggedIn
	}
	if m.user.Role != model.RoleStudent {
		return nil, ErrNotStudent
	}
	m.exitLocked()

	s := newSession(ctx, m.cfg, m.notify, m.logger, *m.user, q)
	s.enter(ctx)
	m.current = s
	return s, nil
}

// LeaveExam exits the current session.
func (m *Manager) LeaveExam() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoSession
	}
	m.exitLocked()
	return nil
}

// Current returns the active session.
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	return m.current, nil
}

func (m *Manager) exitLocked() {
	if m.current == nil {
		return
	}
	m.current.exit()
	m.current = nil
}

// Close ends the session and, when the Manager owns it, the notification
// channel.
func (m *Manager) Close() {
	m.mu.Lock()
	m.exitLocked()
	m.mu.Unlock()
	if m.ownNotify {
		m.notify.Close()
	}
}
