package limiter

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-instance
// deployments without Redis. A mutex stands in for the store-side atomicity
// that Redis provides across replicas.
type MemoryStore struct {
	// Clock supplies the current time; tests may replace it.
	Clock func() time.Time

	mu       sync.Mutex
	counters map[string]*memCounter
}

type memCounter struct {
	val     int64
	expires time.Time
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Clock:    time.Now,
		counters: make(map[string]*memCounter),
	}
}

// get returns the live counter at key, discarding it if expired.
func (s *MemoryStore) get(key string) *memCounter {
	c, ok := s.counters[key]
	if !ok {
		return nil
	}
	if !c.expires.IsZero() && !s.Clock().Before(c.expires) {
		delete(s.counters, key)
		return nil
	}
	return c
}

func (s *MemoryStore) IncrWindow(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	if c == nil {
		c = &memCounter{expires: s.Clock().Add(ttl)}
		s.counters[key] = c
	}
	c.val++
	return c.val, nil
}

func (s *MemoryStore) WindowTTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	if c == nil || c.expires.IsZero() {
		return 0, nil
	}
	return c.expires.Sub(s.Clock()), nil
}

func (s *MemoryStore) ConsumeQuota(_ context.Context, key string, amount, cap int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	var curr int64
	if c != nil {
		curr = c.val
	}
	if curr+amount > cap {
		return false, nil
	}
	// Insert only on success so a rejected consume leaves no counter behind
	if c == nil {
		c = &memCounter{}
		s.counters[key] = c
	}
	c.val += amount
	c.expires = s.Clock().Add(ttl)
	return true, nil
}

// Value returns the current counter value at key, for tests.
func (s *MemoryStore) Value(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.get(key); c != nil {
		return c.val
	}
	return 0
}
