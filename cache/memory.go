package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Stats tracks cache performance counters
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int
}

// MemoryStore is an in-process Store with per-entry TTL.
// Expired entries are dropped on read and by a periodic sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time

	statsMu sync.Mutex
	stats   Stats

	stop   chan struct{}
	closed bool
	once   sync.Once
}

// NewMemoryStore creates a store that sweeps expired entries every cleanupInterval.
// A non-positive interval disables the sweep.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// WithClock replaces the time source; used by tests to move past TTLs
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, false, ErrClosed
	}
	e, ok := s.entries[key]
	now := s.now()
	s.mu.RUnlock()

	if !ok {
		s.record(func(st *Stats) { st.Misses++ })
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
		s.mu.Lock()
		if cur, still := s.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		s.record(func(st *Stats) { st.Misses++; st.Evictions++ })
		return nil, false, nil
	}

	s.record(func(st *Stats) { st.Hits++ })
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, true, nil
}

// Set stores a copy of value. A non-positive ttl keeps the entry until deleted.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close stops the sweep goroutine; later calls fail with ErrClosed
func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.entries = make(map[string]entry)
		s.mu.Unlock()
		close(s.stop)
	})
	return nil
}

// Stats returns a snapshot of the counters
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	keys := len(s.entries)
	s.mu.RUnlock()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	st := s.stats
	st.Keys = keys
	return st
}

func (s *MemoryStore) record(fn func(*Stats)) {
	s.statsMu.Lock()
	fn(&s.stats)
	s.statsMu.Unlock()
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	now := s.now()
	evicted := 0
	for k, e := range s.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.entries, k)
			evicted++
		}
	}
	s.mu.Unlock()
	if evicted > 0 {
		s.record(func(st *Stats) { st.Evictions += int64(evicted) })
	}
}
