package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/groupchat/internal/clock"
)

const defaultSweepInterval = time.Minute

// MemoryStore is a single-process fixed-window counter. Expired windows are
// swept inline on Incr, at most once per sweep interval, so the map stays
// bounded by the keys active within one window.
type MemoryStore struct {
	mu         sync.Mutex
	windows    map[string]*window
	clock      clock.Clock
	sweepEvery time.Duration
	nextSweep  time.Time
}

type window struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.System()
	}
	return &MemoryStore{
		windows:    make(map[string]*window),
		clock:      c,
		sweepEvery: defaultSweepInterval,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, d time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.sweepLocked(now)

	w, ok := s.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(d)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.expiresAt.Sub(now), nil
}

// Len reports how many windows are tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for key, w := range s.windows {
		if !now.Before(w.expiresAt) {
			delete(s.windows, key)
		}
	}
	s.nextSweep = now.Add(s.sweepEvery)
}
