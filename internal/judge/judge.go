// Package judge models submitting code to a remote execution service.
//
// A Judge holds exactly one attempt. Run moves Idle or a terminal state to
// Running; the attempt completes after a fixed latency with a randomized
// outcome, or, when an Evaluator is configured, with the evaluator's
// verdict. Reset returns to Idle and is refused while Running.
package judge

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/i18n"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/notify"
)

const (
	// Latency is the simulated execution time.
	Latency = 2000 * time.Millisecond
	// SuccessRate is the simulated share of passing runs.
	SuccessRate = 0.7
	// DefaultEvaluatorTimeout bounds one remote evaluation.
	DefaultEvaluatorTimeout = 30 * time.Second
)

var (
	// ErrBusy is returned by Run while an attempt is in flight.
	ErrBusy = errors.New("execution already running")
	// ErrRunning is returned by Reset while an attempt is in flight.
	ErrRunning = errors.New("cannot reset while running")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("judge closed")
)

// Outcome is a finished evaluation.
type Outcome struct {
	Passed bool
	Report string
}

// Evaluator is a remote execution service.
type Evaluator interface {
	Evaluate(ctx context.Context, q model.ExamQuestion, code string) (Outcome, error)
}

// Rand is the random source for simulated outcomes.
type Rand interface {
	Float64() float64
}

// Config holds a Judge's collaborators. Clock and Notify are required.
type Config struct {
	Clock     clock.Clock
	Notify    notify.Publisher
	Rand      Rand
	Logger    *slog.Logger
	Evaluator Evaluator
	Timeout   time.Duration
	// OnChange, if set, is called outside the lock after an attempt
	// completes.
	OnChange func()
}

// Judge is the single-flight execution state machine of one session.
type Judge struct {
	clock     clock.Clock
	notify    notify.Publisher
	rng       Rand
	logger    *slog.Logger
	evaluator Evaluator
	timeout   time.Duration
	onChange  func()

	mu      sync.Mutex
	attempt model.Attempt
	ctx     context.Context
	timer   *clock.Timer
	cancel  context.CancelFunc
	closed  bool
}

// New returns an Idle judge.
func New(cfg Config) *Judge {
	j := &Judge{
		clock:     cfg.Clock,
		notify:    cfg.Notify,
		rng:       cfg.Rand,
		logger:    cfg.Logger,
		evaluator: cfg.Evaluator,
		timeout:   cfg.Timeout,
		onChange:  cfg.OnChange,
		attempt:   model.Attempt{Status: model.StatusIdle},
	}
	if j.rng == nil {
		j.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	if j.timeout <= 0 {
		j.timeout = DefaultEvaluatorTimeout
	}
	return j
}

// Run starts an attempt for code and returns it in the Running state.
// ctx carries the localizer for completion notifications.
func (j *Judge) Run(ctx context.Context, q model.ExamQuestion, code string) (model.Attempt, error) {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return model.Attempt{}, ErrClosed
	}
	if j.attempt.Status == model.StatusRunning {
		j.mu.Unlock()
		return model.Attempt{}, ErrBusy
	}
	id := uuid.NewString()
	j.attempt = model.Attempt{
		ID:        id,
		Status:    model.StatusRunning,
		Report:    runningReport,
		StartedAt: j.clock.Now(),
	}
	j.ctx = context.WithoutCancel(ctx)
	started := j.attempt
	j.mu.Unlock()

	j.logger.Info("execution started", "attempt", id, "question", q.ID, "remote", j.evaluator != nil)

	if j.evaluator != nil {
		j.startRemote(id, q, code)
		return started, nil
	}

	t := j.clock.AfterFunc(Latency, func() {
		var out Outcome
		if j.rng.Float64() < SuccessRate {
			out = Outcome{Passed: true, Report: successReport(q.TestCases)}
		} else {
			out = Outcome{Passed: false, Report: failureReport(q.TestCases)}
		}
		j.complete(id, out, nil)
	})
	j.mu.Lock()
	if j.attempt.ID == id && j.attempt.Status == model.StatusRunning {
		j.timer = t
	}
	j.mu.Unlock()
	return started, nil
}

func (j *Judge) startRemote(id string, q model.ExamQuestion, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	j.mu.Lock()
	j.cancel = cancel
	j.mu.Unlock()
	go func() {
		defer cancel()
		out, err := j.evaluator.Evaluate(ctx, q, code)
		j.complete(id, out, err)
	}()
}

// complete applies a finished attempt unless it was superseded or the
// judge was closed.
func (j *Judge) complete(id string, out Outcome, err error) {
	j.mu.Lock()
	if j.closed || j.attempt.ID != id || j.attempt.Status != model.StatusRunning {
		j.mu.Unlock()
		j.logger.Debug("stale execution result ignored", "attempt", id)
		return
	}
	now := j.clock.Now()
	j.attempt.FinishedAt = &now
	j.timer, j.cancel = nil, nil

	switch {
	case err != nil:
		j.attempt.Status = model.StatusFailed
		j.attempt.Report = errorReport(err)
		j.logger.Warn("execution service error", "attempt", id, "error", err)
		j.notify.Publish(model.NotifyError, i18n.Td(j.ctx, "NotifyExecutionError", map[string]any{"Error": err.Error()}))
	case out.Passed:
		j.attempt.Status = model.StatusSucceeded
		j.attempt.Report = out.Report
		j.notify.Publish(model.NotifySuccess, i18n.T(j.ctx, "NotifyTestsPassed"))
	default:
		j.attempt.Status = model.StatusFailed
		j.attempt.Report = out.Report
		j.notify.Publish(model.NotifyError, i18n.T(j.ctx, "NotifyTestsFailed"))
	}
	j.logger.Info("execution finished", "attempt", id, "status", j.attempt.Status)
	j.mu.Unlock()

	if j.onChange != nil {
		j.onChange()
	}
}

// Reset returns to Idle and clears the report. It fails with ErrRunning
// while an attempt is in flight.
func (j *Judge) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if j.attempt.Status == model.StatusRunning {
		return ErrRunning
	}
	j.attempt = model.Attempt{Status: model.StatusIdle}
	return nil
}

// Attempt returns the current attempt.
func (j *Judge) Attempt() model.Attempt {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.attempt
}

// Status returns the current execution status.
func (j *Judge) Status() model.ExecutionStatus {
	return j.Attempt().Status
}

// Close cancels a pending completion. Results arriving afterwards are
// dropped.
func (j *Judge) Close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	timer, cancel := j.timer, j.cancel
	j.timer, j.cancel = nil, nil
	j.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}
}
