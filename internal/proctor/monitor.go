// Package proctor runs the simulated integrity monitor of an exam session.
//
// A Monitor acquires the camera and microphone in the background and, on a
// fixed cadence, occasionally raises a simulated integrity event. Events
// land in a short recent-events log and are republished as warning
// notifications. Nothing is analyzed: the capture is only held open.
package proctor

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/i18n"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/notify"
)

const (
	// TickInterval is how often the monitor draws for an event.
	TickInterval = 5000 * time.Millisecond
	// AlertProbability is the chance of an event per tick.
	AlertProbability = 0.05
	// LogLimit bounds the recent-events log.
	LogLimit = 3
)

// catalogue maps each simulated event to its message id.
var catalogue = []struct {
	kind  model.IntegrityKind
	msgID string
}{
	{model.IntegrityGaze, "IntegrityGaze"},
	{model.IntegrityNoise, "IntegrityNoise"},
	{model.IntegrityFace, "IntegrityFace"},
}

// Rand is the random source used for draws. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// CaptureState describes the capture device from the candidate's view.
type CaptureState string

const (
	CapturePending  CaptureState = "pending"
	CaptureActive   CaptureState = "active"
	CaptureInactive CaptureState = "inactive"
)

// Config holds a Monitor's collaborators. Clock, Device and Notify are
// required.
type Config struct {
	Clock  clock.Clock
	Device CaptureDevice
	Notify notify.Publisher
	Rand   Rand
	Logger *slog.Logger
	// OnChange, if set, is called after the log or capture state changes,
	// outside the monitor's lock.
	OnChange func()
}

// Monitor is the integrity feed of one session. It is started once and
// stopped once.
type Monitor struct {
	clock    clock.Clock
	device   CaptureDevice
	notify   notify.Publisher
	rng      Rand
	logger   *slog.Logger
	onChange func()

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	ticker  *clock.Periodic
	started bool
	stopped bool
	state   CaptureState
	stream  Stream
	log     []model.IntegrityEvent

	captureDone chan struct{}
}

// New creates an idle Monitor.
func New(cfg Config) *Monitor {
	m := &Monitor{
		clock:       cfg.Clock,
		device:      cfg.Device,
		notify:      cfg.Notify,
		rng:         cfg.Rand,
		logger:      cfg.Logger,
		onChange:    cfg.OnChange,
		state:       CapturePending,
		captureDone: make(chan struct{}),
	}
	if m.device == nil {
		m.device = NoDevice{}
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Start requests capture in the background and starts the event timer.
// ctx carries the localizer for notification texts; cancelling it does not
// stop the monitor.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	acquireCtx := m.ctx
	m.mu.Unlock()

	go func() {
		stream, err := m.device.Acquire(acquireCtx)
		m.resolveCapture(stream, err)
	}()

	t := clock.Every(m.clock, TickInterval, m.tick)
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		t.Stop()
		return
	}
	m.ticker = t
	m.mu.Unlock()
}

func (m *Monitor) resolveCapture(stream Stream, err error) {
	defer close(m.captureDone)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		if stream != nil {
			m.logger.Debug("capture resolved after stop, releasing")
			if err := stream.Release(); err != nil {
				m.logger.Warn("release capture", "error", err)
			}
		}
		return
	}
	if err != nil {
		m.state = CaptureInactive
		m.logger.Warn("capture unavailable, proctoring inactive", "error", err)
		m.notify.Publish(model.NotifyWarning, i18n.T(m.ctx, "NotifyCaptureUnavailable"))
	} else {
		m.state = CaptureActive
		m.stream = stream
		m.logger.Info("capture acquired", "sources", stream.Sources())
	}
	m.mu.Unlock()
	m.changed()
}

func (m *Monitor) tick() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.rng.Float64() >= AlertProbability {
		m.mu.Unlock()
		return
	}
	pick := catalogue[m.rng.IntN(len(catalogue))]
	ev := model.IntegrityEvent{
		Kind:        pick.kind,
		Description: i18n.T(m.ctx, pick.msgID),
		At:          m.clock.Now(),
	}
	m.log = append([]model.IntegrityEvent{ev}, m.log...)
	if len(m.log) > LogLimit {
		m.log = m.log[:LogLimit]
	}
	m.logger.Info("integrity event", "kind", ev.Kind)
	m.notify.Publish(model.NotifyWarning, i18n.Td(m.ctx, "ProctorAlert", map[string]any{"Event": ev.Description}))
	m.mu.Unlock()
	m.changed()
}

func (m *Monitor) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

// Stop cancels the event timer and releases the capture device. No event
// is logged or published after Stop returns. A capture request still in
// flight is released when it resolves.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	ticker, stream, cancel := m.ticker, m.stream, m.cancel
	m.ticker, m.stream = nil, nil
	m.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if stream != nil {
		if err := stream.Release(); err != nil {
			m.logger.Warn("release capture", "error", err)
		}
	}
}

// Log returns the recent events, newest first.
func (m *Monitor) Log() []model.IntegrityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.IntegrityEvent(nil), m.log...)
}

// State reports the capture state.
func (m *Monitor) State() CaptureState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active reports whether capture was acquired.
func (m *Monitor) Active() bool {
	return m.State() == CaptureActive
}

// CaptureResolved is closed once the capture request has resolved, even if
// the monitor was stopped first. It never closes if Start was not called.
func (m *Monitor) CaptureResolved() <-chan struct{} {
	return m.captureDone
}
