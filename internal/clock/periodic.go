package clock

import (
	"sync"
	"time"
)

// Periodic runs a callback on a fixed cadence. The next run is armed only
// after the current one returns, so runs never overlap.
type Periodic struct {
	clock    Clock
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	timer   *Timer
	stopped bool
}

// Every starts calling f every d on c, first call d from now. Panics if
// d <= 0.
func Every(c Clock, d time.Duration, f func()) *Periodic {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	p := &Periodic{clock: c, interval: d, fn: f}
	p.mu.Lock()
	p.timer = c.AfterFunc(d, p.run)
	p.mu.Unlock()
	return p
}

func (p *Periodic) run() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.fn()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.timer = p.clock.AfterFunc(p.interval, p.run)
	}
}

// Stop cancels future runs. A run already in progress completes.
func (p *Periodic) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
	}
}
