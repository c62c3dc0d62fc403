package directory

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/model"
)

// HealthInterval is the refresh cadence of the health feed.
const HealthInterval = 2000 * time.Millisecond

// HealthFeed random-walks service latency and load on a fixed cadence.
// Latency moves by up to ±10ms and never drops below 1ms; load moves by up
// to ±5 and stays within 0..100.
type HealthFeed struct {
	clock clock.Clock
	rng   *rand.Rand

	mu       sync.Mutex
	services []model.Microservice
	ticker   *clock.Periodic
}

// NewHealthFeed starts from services. A nil rng uses a randomly seeded
// source.
func NewHealthFeed(clk clock.Clock, services []model.Microservice, rng *rand.Rand) *HealthFeed {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &HealthFeed{
		clock:    clk,
		rng:      rng,
		services: append([]model.Microservice(nil), services...),
	}
}

// Start begins refreshing. Calling Start twice is a no-op.
func (h *HealthFeed) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ticker != nil {
		return
	}
	h.ticker = clock.Every(h.clock, HealthInterval, h.step)
}

// Stop halts refreshing.
func (h *HealthFeed) Stop() {
	h.mu.Lock()
	t := h.ticker
	h.ticker = nil
	h.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

func (h *HealthFeed) step() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.services {
		s := &h.services[i]
		s.LatencyMS = max(1, s.LatencyMS+h.rng.Float64()*20-10)
		s.LoadPercent = min(100, max(0, s.LoadPercent+h.rng.Float64()*10-5))
	}
}

// Services returns the current snapshot.
func (h *HealthFeed) Services() []model.Microservice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.Microservice(nil), h.services...)
}
