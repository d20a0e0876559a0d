package federation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VariableExpander rewrites common-vocabulary variable names into one
// source's native names before dispatch. A nil expander passes names through.
type VariableExpander interface {
	Expand(sourceID string, names []string) []string
}

// Options carries the policy knobs for a Coordinator. All of them are
// configuration, not baked-in constants.
type Options struct {
	// DefaultTTL is how long a successful per-source batch stays cached.
	DefaultTTL time.Duration

	// PerSourceTimeout bounds each individual adapter call.
	PerSourceTimeout time.Duration

	// ProximityToleranceKm is forwarded to the merger's match predicate.
	ProximityToleranceKm float64
}

// Coordinator fans one normalized query out to every targeted source,
// consults the result cache, tolerates per-source failure, and merges the
// surviving batches into a FederatedResult.
type Coordinator struct {
	registry *Registry
	cache    ResultCache
	merger   *Merger
	expander VariableExpander
	opts     Options
	logger   *zap.Logger
}

// NewCoordinator wires a Coordinator from its collaborators. The registry
// and cache are required; expander may be nil.
func NewCoordinator(registry *Registry, cache ResultCache, expander VariableExpander, opts Options, logger *zap.Logger) *Coordinator {
	if opts.PerSourceTimeout <= 0 {
		opts.PerSourceTimeout = 30 * time.Second
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 15 * time.Minute
	}
	return &Coordinator{
		registry: registry,
		cache:    cache,
		merger:   NewMerger(opts.ProximityToleranceKm),
		expander: expander,
		opts:     opts,
		logger:   logger.With(zap.String("component", "coordinator")),
	}
}

// Sources returns the ids of all registered sources.
func (c *Coordinator) Sources() []string {
	return c.registry.Names()
}

// Invalidate drops one cached per-source batch.
func (c *Coordinator) Invalidate(ctx context.Context, fingerprint string) error {
	return c.cache.Invalidate(ctx, fingerprint)
}

// ClearCache drops every cached batch.
func (c *Coordinator) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// Federate runs one logical query against every targeted source.
//
// Validation failures and unknown source ids abort before any dispatch.
// Everything else is captured per source: a timeout or adapter error from
// one source never cancels or blocks another, and a query where every
// source failed still returns a (record-less) FederatedResult.
func (c *Coordinator) Federate(ctx context.Context, q NormalizedQuery) (*FederatedResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	targets, err := c.resolveTargets(q)
	if err != nil {
		return nil, err
	}

	fedID := uuid.NewString()
	log := c.logger.With(zap.String("federation_id", fedID))
	log.Info("federating query",
		zap.Int("sources", len(targets)),
		zap.Strings("variables", q.Variables),
	)

	outcomes := make(map[string]FederationOutcome, len(targets))
	batches := make(map[string][]SourceRecord, len(targets))

	// Cache pass: every hit resolves a source without dispatching.
	type dispatch struct {
		sourceID    string
		fingerprint string
	}
	var misses []dispatch

	for _, sourceID := range targets {
		fp := Fingerprint(q, sourceID)

		entry, ok, cacheErr := c.cache.Get(ctx, fp)
		if cacheErr != nil {
			// The cache is an optimization, not a correctness
			// dependency: degrade to a miss.
			log.Warn("cache lookup failed, treating as miss",
				zap.String("source", sourceID), zap.Error(cacheErr))
			ok = false
		}
		if ok {
			outcomes[sourceID] = FederationOutcome{
				SourceID:    sourceID,
				Status:      StatusCached,
				Records:     len(entry.Records),
				Fingerprint: fp,
				Age:         time.Since(entry.StoredAt),
			}
			batches[sourceID] = entry.Records
			continue
		}
		misses = append(misses, dispatch{sourceID: sourceID, fingerprint: fp})
	}

	// Dispatch pass: one concurrent call per cache-missed source.
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, d := range misses {
		adapter, _ := c.registry.Lookup(d.sourceID)
		wg.Add(1)
		go func(d dispatch, adapter SourceAdapter) {
			defer wg.Done()

			records, outcome := c.callSource(ctx, adapter, d.sourceID, d.fingerprint, q)

			mu.Lock()
			outcomes[d.sourceID] = outcome
			if outcome.Status == StatusSuccess {
				batches[d.sourceID] = records
			}
			mu.Unlock()
		}(d, adapter)
	}
	wg.Wait()

	entities := c.merger.Merge(batches)
	result := &FederatedResult{
		ID:       fedID,
		Query:    q,
		Entities: entities,
		Outcomes: outcomes,
	}
	log.Info("federation complete",
		zap.Int("entities", len(entities)),
		zap.Int("dispatched", len(misses)),
		zap.Int("cached", len(targets)-len(misses)),
		zap.Strings("succeeded", result.Succeeded()),
	)
	return result, nil
}

// resolveTargets expands an empty source list to all registered sources and
// rejects explicit lists naming unknown sources before any dispatch.
func (c *Coordinator) resolveTargets(q NormalizedQuery) ([]string, error) {
	if len(q.Sources) == 0 {
		return c.registry.Names(), nil
	}
	for _, id := range q.Sources {
		if _, ok := c.registry.Lookup(id); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, id)
		}
	}
	return q.Sources, nil
}

// callSource runs a single adapter call under its own timeout, records the
// batch in the cache on success, and maps failures to typed outcomes.
func (c *Coordinator) callSource(ctx context.Context, adapter SourceAdapter, sourceID, fingerprint string, q NormalizedQuery) ([]SourceRecord, FederationOutcome) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.PerSourceTimeout)
	defer cancel()

	records, err := adapter.Query(callCtx, c.queryFor(sourceID, q))
	if err != nil {
		kind := FailureAdapter
		if errors.Is(err, context.DeadlineExceeded) {
			kind = FailureTimeout
		}
		c.logger.Warn("source query failed",
			zap.String("source", sourceID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, FederationOutcome{
			SourceID:    sourceID,
			Status:      StatusFailure,
			Fingerprint: fingerprint,
			Kind:        kind,
			Message:     err.Error(),
		}
	}

	entry := CacheEntry{
		Fingerprint: fingerprint,
		SourceID:    sourceID,
		Records:     records,
		StoredAt:    time.Now().UTC(),
		TTL:         c.opts.DefaultTTL,
	}
	if putErr := c.cache.Put(ctx, entry); putErr != nil {
		c.logger.Warn("cache write failed",
			zap.String("source", sourceID), zap.Error(putErr))
	}

	return records, FederationOutcome{
		SourceID:    sourceID,
		Status:      StatusSuccess,
		Records:     len(records),
		Fingerprint: fingerprint,
	}
}

// queryFor returns the query as one source should see it, with
// common variable names expanded to that source's native vocabulary.
func (c *Coordinator) queryFor(sourceID string, q NormalizedQuery) NormalizedQuery {
	if c.expander == nil || len(q.Variables) == 0 {
		return q
	}
	out := q
	out.Variables = c.expander.Expand(sourceID, q.Variables)
	return out
}
