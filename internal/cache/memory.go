// Package cache provides the result-cache backends behind the federation
// coordinator: an in-process store for single-node deployments and a Redis
// store for shared ones. Both implement federation.ResultCache.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kthyng/ocean-data-gateway/internal/federation"
)

// Memory is a concurrency-safe in-memory result cache with lazy TTL expiry:
// Get treats expired entries as absent without mutating the map, and the
// periodic Sweep reclaims them for memory bounds.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]federation.CacheEntry

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]federation.CacheEntry),
		now:     time.Now,
	}
}

// Get returns the live entry for a fingerprint. Expired entries are
// reported as absent; Get itself has no side effects.
func (m *Memory) Get(_ context.Context, fingerprint string) (federation.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[fingerprint]
	if !ok || entry.Expired(m.now()) {
		return federation.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

// Put stores an entry, replacing any existing entry for the same
// fingerprint wholesale. The last Put wins.
func (m *Memory) Put(_ context.Context, entry federation.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[entry.Fingerprint] = entry
	return nil
}

// Invalidate removes one entry.
func (m *Memory) Invalidate(_ context.Context, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, fingerprint)
	return nil
}

// Clear removes every entry.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]federation.CacheEntry)
	return nil
}

// Sweep deletes expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for fp, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, fp)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}
