package federation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// SourceAdapter abstracts one external ocean-data provider (e.g. an ERDDAP
// server or the Axiom search API). Implementations translate the normalized
// query into provider calls and normalize responses into SourceRecords.
//
// Query must honor context cancellation and deadlines and must report every
// failure mode as an error return; it never panics across this boundary.
// Adapters hold no shared mutable state between calls.
type SourceAdapter interface {
	Name() string
	Query(ctx context.Context, q NormalizedQuery) ([]SourceRecord, error)
}

// ResultCache is the coordinator's view of the result cache. Get treats
// expired entries as absent; Put replaces any existing entry wholesale.
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) (CacheEntry, bool, error)
	Put(ctx context.Context, entry CacheEntry) error
	Invalidate(ctx context.Context, fingerprint string) error
	Clear(ctx context.Context) error
}

// CacheEntry is one cached per-source result batch.
type CacheEntry struct {
	Fingerprint string         `json:"fingerprint"`
	SourceID    string         `json:"sourceId"`
	Records     []SourceRecord `json:"records"`
	StoredAt    time.Time      `json:"storedAt"`
	TTL         time.Duration  `json:"ttl"`
}

// Expired reports whether the entry has outlived its TTL at instant now.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.After(e.StoredAt.Add(e.TTL))
}

// Registry holds the configured source adapters keyed by source id.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]SourceAdapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]SourceAdapter)}
}

// Register adds an adapter under its own name. Registering the same name
// twice is an error; source ids must be unique.
func (r *Registry) Register(a SourceAdapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("source %q already registered", name)
	}
	r.adapters[name] = a
	return nil
}

// Lookup returns the adapter for a source id.
func (r *Registry) Lookup(id string) (SourceAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[id]
	return a, ok
}

// Names returns all registered source ids in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
