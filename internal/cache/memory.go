package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sitelens/sitelens/internal/analysis"
)

// MemoryStore is the in-process Store backend. Expired entries are evicted
// lazily on read and by a background sweep so abandoned fingerprints do not
// accumulate.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]analysis.CacheEntry

	clock     analysis.Clock
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore builds a MemoryStore. A positive sweepInterval starts a
// background sweeper; stop it with Close.
func NewMemoryStore(clock analysis.Clock, sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: map[string]analysis.CacheEntry{},
		clock:   clock,
		done:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, fingerprint string) (analysis.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[fingerprint]
	return entry, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, entry analysis.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Fingerprint] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, fingerprint)
	return nil
}

// Sweep removes every expired entry and reports how many were dropped.
func (s *MemoryStore) Sweep() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for fp, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, fp)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the background sweeper. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.done:
			return
		}
	}
}
