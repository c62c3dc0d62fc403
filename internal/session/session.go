package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/draft"
	"github.com/pavelanni/proctor/internal/i18n"
	"github.com/pavelanni/proctor/internal/judge"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/notify"
	"github.com/pavelanni/proctor/internal/proctor"
)

const (
	// AutosaveInterval is the draft save cadence.
	AutosaveInterval = 30 * time.Second
	// CountdownTick is how often the countdown is checked.
	CountdownTick = time.Second
)

// Session is one exam workspace, from entry to exit.
type Session struct {
	id       string
	ctx      context.Context
	clock    clock.Clock
	notify   notify.Publisher
	drafts   *draft.Persistence
	recorder SubmissionRecorder
	exam     model.ExamConfig
	logger   *slog.Logger
	onChange func()

	user     model.User
	question model.ExamQuestion
	judge    *judge.Judge
	monitor  *proctor.Monitor

	mu        sync.Mutex
	answer    string
	lastSaved *time.Time
	prefs     model.SessionPreferences
	deadline  time.Time
	timeUp    bool
	submitted bool
	closed    bool
	autosave  *clock.Periodic
	countdown *clock.Periodic
}

func newSession(ctx context.Context, cfg Config, ch notify.Publisher, logger *slog.Logger, u model.User, q model.ExamQuestion) *Session {
	id := uuid.NewString()
	s := &Session{
		id:       id,
		ctx:      context.WithoutCancel(ctx),
		clock:    cfg.Clock,
		notify:   ch,
		drafts:   cfg.Drafts,
		recorder: cfg.Submissions,
		exam:     cfg.Exam,
		logger:   logger.With("session", id, "question", q.ID),
		onChange: cfg.OnChange,
		user:     u,
		question: q,
		prefs:    model.DefaultPreferences(),
	}
	s.judge = judge.New(judge.Config{
		Clock:     cfg.Clock,
		Notify:    ch,
		Rand:      cfg.JudgeRand,
		Logger:    s.logger,
		Evaluator: cfg.Evaluator,
		Timeout:   cfg.EvaluatorTimeout,
		OnChange:  s.changed,
	})
	s.monitor = proctor.New(proctor.Config{
		Clock:    cfg.Clock,
		Device:   cfg.Device,
		Notify:   ch,
		Rand:     cfg.MonitorRand,
		Logger:   s.logger,
		OnChange: s.changed,
	})
	return s
}

// enter loads the draft and starts every background process. The session
// is not yet visible to other goroutines.
func (s *Session) enter(ctx context.Context) {
	s.answer = s.drafts.Load(ctx, s.question)
	if at, ok := s.drafts.LastSaved(s.question.ID); ok {
		s.lastSaved = &at
	}
	if s.exam.TimeLimit > 0 {
		s.deadline = s.clock.Now().Add(s.exam.TimeLimit)
		s.countdown = clock.Every(s.clock, CountdownTick, s.countdownTick)
	}
	s.autosave = clock.Every(s.clock, AutosaveInterval, s.autosaveTick)
	s.monitor.Start(s.ctx)
	s.logger.Info("exam session entered", "user", s.user.ID, "time_limit", s.exam.TimeLimit)
}

// autosaveTick writes the answer as it is at the instant the tick fires.
// The lock is held across the write so that no save lands after exit.
func (s *Session) autosaveTick() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if at, ok := s.drafts.Save(s.ctx, s.question.ID, s.answer); ok {
		s.lastSaved = &at
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Session) countdownTick() {
	s.mu.Lock()
	if s.closed || s.timeUp {
		s.mu.Unlock()
		return
	}
	if s.clock.Now().Before(s.deadline) {
		s.mu.Unlock()
		s.changed()
		return
	}
	s.timeUp = true
	countdown := s.countdown
	s.countdown = nil
	s.logger.Info("exam time is up")
	s.notify.Publish(model.NotifyWarning, i18n.T(s.ctx, "NotifyTimeUp"))
	s.mu.Unlock()

	if countdown != nil {
		countdown.Stop()
	}
	s.changed()
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Question returns the question being answered.
func (s *Session) Question() model.ExamQuestion { return s.question }

// Answer returns the live answer buffer.
func (s *Session) Answer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answer
}

// Edit replaces the answer buffer. The change is durable only after the
// next autosave. Text that is not valid UTF-8 is refused.
func (s *Session) Edit(text string) error {
	if !utf8.ValidString(text) {
		return ErrInvalidText
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}
	s.answer = text
	return nil
}

func (s *Session) writableLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.submitted {
		return ErrSubmitted
	}
	return nil
}

// Run submits the live answer to the judge.
func (s *Session) Run() (model.Attempt, error) {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return model.Attempt{}, err
	}
	code := s.answer
	s.mu.Unlock()
	return s.judge.Run(s.ctx, s.question, code)
}

// Reset clears the last attempt. It fails with judge.ErrRunning while an
// attempt is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.judge.Reset()
}

// ToggleTheme flips between dark and light and returns the new theme.
func (s *Session) ToggleTheme() (model.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.prefs.Theme = s.prefs.Theme.Toggle()
	return s.prefs.Theme, nil
}

// Submit saves the live answer immediately, records it as final and
// freezes the session. Editing and running are refused afterwards.
func (s *Session) Submit(ctx context.Context) (model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return model.Submission{}, err
	}

	sub := model.Submission{
		UserID:      s.user.ID,
		QuestionID:  s.question.ID,
		Text:        s.answer,
		Digest:      draft.Digest(s.answer),
		Status:      s.judge.Status(),
		SubmittedAt: s.clock.Now(),
	}
	if s.recorder != nil {
		id, err := s.recorder.RecordSubmission(ctx, sub)
		if err != nil {
			return model.Submission{}, fmt.Errorf("record submission: %w", err)
		}
		sub.ID = id
	}
	if at, ok := s.drafts.Save(ctx, s.question.ID, s.answer); ok {
		s.lastSaved = &at
	}

	s.submitted = true
	for _, p := range []*clock.Periodic{s.autosave, s.countdown} {
		if p != nil {
			p.Stop()
		}
	}
	s.autosave, s.countdown = nil, nil

	s.logger.Info("exam submitted", "user", s.user.ID, "status", sub.Status)
	s.notify.Publish(model.NotifySuccess, i18n.T(s.ctx, "NotifyExamSubmitted"))
	return sub, nil
}

// Snapshot returns a consistent read-only view of the session.
func (s *Session) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt := s.judge.Attempt()
	snap := model.Snapshot{
		SessionID:         s.id,
		Course:            s.exam.Course,
		User:              s.user,
		Question:          s.question,
		Answer:            s.answer,
		Status:            attempt.Status,
		Report:            attempt.Report,
		IntegrityLog:      s.monitor.Log(),
		ProctoringActive:  s.monitor.Active(),
		ProctoringPending: s.monitor.State() == proctor.CapturePending,
		TimeUp:            s.timeUp,
		Theme:             s.prefs.Theme,
		Submitted:         s.submitted,
	}
	if s.lastSaved != nil {
		t := *s.lastSaved
		snap.LastSaved = &t
	}
	if s.exam.TimeLimit > 0 && !s.timeUp {
		snap.Remaining = max(0, s.deadline.Sub(s.clock.Now()))
	}
	return snap
}

// Closed reports whether the session has exited.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// exit cancels every timer, the pending execution and the capture device.
// There is no final save unless FlushOnExit is set.
func (s *Session) exit() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, p := range []*clock.Periodic{s.autosave, s.countdown} {
		if p != nil {
			p.Stop()
		}
	}
	s.autosave, s.countdown = nil, nil
	if s.exam.FlushOnExit && !s.submitted {
		s.drafts.Save(s.ctx, s.question.ID, s.answer)
	}
	s.mu.Unlock()

	s.judge.Close()
	s.monitor.Stop()
	s.logger.Info("exam session exited")
}
