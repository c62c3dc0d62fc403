// Package notify implements the transient notification channel shared by
// the exam session, the integrity monitor and the login flow.
//
// Every published notification is visible for a fixed TTL and then removed
// by the channel itself. Publishers cannot cancel or dismiss entries.
// Observers either poll List or read a bounded mailbox from Subscribe.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/model"
)

// TTL is how long a notification stays visible.
const TTL = 4000 * time.Millisecond

// EventType tells a subscriber what happened to a notification.
type EventType string

const (
	Published EventType = "published"
	Expired   EventType = "expired"
)

// Event is delivered to subscriber mailboxes.
type Event struct {
	Type         EventType          `json:"type"`
	Notification model.Notification `json:"notification"`
}

// Publisher is the narrow interface handed to components that raise
// notifications.
type Publisher interface {
	Publish(kind model.NotificationKind, message string) string
}

type entry struct {
	n     model.Notification
	timer *clock.Timer
}

// Channel is a process-wide notification list with automatic expiry.
type Channel struct {
	clock  clock.Clock
	logger *slog.Logger
	ttl    time.Duration

	mu      sync.Mutex
	entries []*entry
	subs    map[*Subscription]struct{}
	closed  bool
}

// Option configures a Channel.
type Option func(*Channel)

// WithTTL overrides the default TTL.
func WithTTL(d time.Duration) Option {
	return func(c *Channel) { c.ttl = d }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) { c.logger = l }
}

// New creates a Channel driven by clk.
func New(clk clock.Clock, opts ...Option) *Channel {
	c := &Channel{
		clock:  clk,
		logger: slog.Default(),
		ttl:    TTL,
		subs:   make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish appends a notification and schedules its removal. It returns the
// new notification's id. Identical messages are never merged.
func (c *Channel) Publish(kind model.NotificationKind, message string) string {
	now := c.clock.Now()
	n := model.Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("notification dropped, channel closed", "kind", kind, "message", message)
		return n.ID
	}
	e := &entry{n: n}
	c.entries = append(c.entries, e)
	c.broadcastLocked(Event{Type: Published, Notification: n})
	c.mu.Unlock()

	c.logger.Debug("notification published", "id", n.ID, "kind", kind, "message", message)

	// Registered outside the lock: a fake clock may run f inline.
	t := c.clock.AfterFunc(c.ttl, func() { c.expire(e) })
	c.mu.Lock()
	e.timer = t
	c.mu.Unlock()
	return n.ID
}

func (c *Channel) expire(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.entries {
		if other == e {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			c.broadcastLocked(Event{Type: Expired, Notification: e.n})
			return
		}
	}
}

// List returns the visible notifications in publish order.
func (c *Channel) List() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Notification, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.n
	}
	return out
}

// Subscribe returns a mailbox holding up to buf undelivered events. When
// the mailbox is full new events are dropped, never blocking publishers.
func (c *Channel) Subscribe(buf int) *Subscription {
	if buf < 1 {
		buf = 1
	}
	s := &Subscription{ch: make(chan Event, buf), owner: c}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(s.ch)
		return s
	}
	c.subs[s] = struct{}{}
	return s
}

func (c *Channel) broadcastLocked(ev Event) {
	for s := range c.subs {
		select {
		case s.ch <- ev:
		default:
			c.logger.Debug("subscriber mailbox full, event dropped", "type", ev.Type, "id", ev.Notification.ID)
		}
	}
}

// Close stops pending expiry timers and closes every mailbox. Visible
// entries are dropped.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, e := range c.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	c.entries = nil
	for s := range c.subs {
		close(s.ch)
		delete(c.subs, s)
	}
}

// Subscription is a bounded mailbox of channel events.
type Subscription struct {
	ch    chan Event
	owner *Channel
}

// C returns the receive side of the mailbox. It is closed by Cancel or by
// the channel's Close.
func (s *Subscription) C() <-chan Event { return s.ch }

// Cancel detaches the subscription and closes its mailbox.
func (s *Subscription) Cancel() {
	c := s.owner
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[s]; !ok {
		return
	}
	delete(c.subs, s)
	close(s.ch)
}
