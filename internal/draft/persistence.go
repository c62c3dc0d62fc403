package draft

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/model"
)

// Persistence loads and saves drafts on top of a Store, swallowing every
// storage failure.
type Persistence struct {
	store  Store
	clock  clock.Clock
	logger *slog.Logger

	mu        sync.Mutex
	lastSaved map[string]time.Time
}

// NewPersistence wraps store. A nil store behaves as permanently
// unavailable storage.
func NewPersistence(store Store, clk clock.Clock, logger *slog.Logger) *Persistence {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persistence{
		store:     store,
		clock:     clk,
		logger:    logger,
		lastSaved: make(map[string]time.Time),
	}
}

// Load returns the stored draft text for q, or q.StarterCode when there is
// no draft, storage fails, or the record does not verify.
func (p *Persistence) Load(ctx context.Context, q model.ExamQuestion) string {
	if p.store == nil {
		return q.StarterCode
	}
	key := Key(q.ID)
	rec, err := p.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return q.StarterCode
	case err != nil:
		p.logger.Warn("draft load failed, using starter code", "key", key, "error", err)
		return q.StarterCode
	case !rec.Verify():
		p.logger.Warn("draft digest mismatch, using starter code", "key", key)
		return q.StarterCode
	}
	return rec.Text
}

// Save writes text as the draft for questionID. It reports the save time
// and whether the write succeeded; failures are only logged.
func (p *Persistence) Save(ctx context.Context, questionID, text string) (time.Time, bool) {
	if p.store == nil {
		return time.Time{}, false
	}
	now := p.clock.Now()
	rec := NewRecord(Key(questionID), text, now)
	if err := p.store.Put(ctx, rec); err != nil {
		p.logger.Warn("draft save failed", "key", rec.Key, "error", err)
		return time.Time{}, false
	}
	p.mu.Lock()
	p.lastSaved[questionID] = now
	p.mu.Unlock()
	p.logger.Debug("draft saved", "key", rec.Key, "bytes", len(text))
	return now, true
}

// LastSaved returns the time of the last successful save of questionID
// made through p.
func (p *Persistence) LastSaved(questionID string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.lastSaved[questionID]
	return t, ok
}
