package federation_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kthyng/ocean-data-gateway/internal/cache"
	"github.com/kthyng/ocean-data-gateway/internal/federation"
)

// fakeAdapter is a scripted source for coordinator tests. It counts calls
// and can either return records, fail, or block until the call times out.
type fakeAdapter struct {
	name    string
	records []federation.SourceRecord
	err     error
	block   bool
	calls   atomic.Int64
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Query(ctx context.Context, q federation.NormalizedQuery) ([]federation.SourceRecord, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func testQuery() federation.NormalizedQuery {
	return federation.NormalizedQuery{
		Region: federation.BoundingBox{MinLat: 27, MaxLat: 30, MinLon: -97, MaxLon: -88},
		Window: federation.TimeRange{
			Start: time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2021, 4, 2, 0, 0, 0, 0, time.UTC),
		},
	}
}

func record(source, local string) federation.SourceRecord {
	return federation.SourceRecord{
		SourceID: source,
		LocalID:  local,
		Position: federation.Position{Lat: 28, Lon: -94},
		Coverage: federation.TimeRange{
			Start: time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2021, 4, 2, 0, 0, 0, 0, time.UTC),
		},
	}
}

func newCoordinator(t *testing.T, opts federation.Options, adapters ...federation.SourceAdapter) (*federation.Coordinator, *cache.Memory) {
	t.Helper()

	registry := federation.NewRegistry()
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			t.Fatalf("register %s: %v", a.Name(), err)
		}
	}
	mem := cache.NewMemory()
	return federation.NewCoordinator(registry, mem, nil, opts, zap.NewNop()), mem
}

func TestFederatePartialFailure(t *testing.T) {
	good1 := &fakeAdapter{name: "erddap", records: []federation.SourceRecord{record("erddap", "a")}}
	good2 := &fakeAdapter{name: "axds", records: []federation.SourceRecord{record("axds", "b")}}
	slow := &fakeAdapter{name: "slow", block: true}

	coord, _ := newCoordinator(t, federation.Options{
		PerSourceTimeout:     50 * time.Millisecond,
		ProximityToleranceKm: 0.001,
	}, good1, good2, slow)

	result, err := coord.Federate(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Outcomes) != 3 {
		t.Fatalf("expected one outcome per requested source, got %d", len(result.Outcomes))
	}
	if got := result.Outcomes["slow"]; got.Status != federation.StatusFailure || got.Kind != federation.FailureTimeout {
		t.Fatalf("expected timeout failure for slow source, got %+v", got)
	}
	for _, name := range []string{"erddap", "axds"} {
		if got := result.Outcomes[name]; got.Status != federation.StatusSuccess {
			t.Fatalf("expected success for %s, got %+v", name, got)
		}
	}
	if len(result.Entities) == 0 {
		t.Fatal("expected entities from the two successful sources")
	}
}

func TestFederateAdapterErrorKind(t *testing.T) {
	broken := &fakeAdapter{name: "broken", err: errors.New("bad upstream payload")}

	coord, _ := newCoordinator(t, federation.Options{PerSourceTimeout: time.Second}, broken)

	result, err := coord.Federate(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := result.Outcomes["broken"]
	if got.Status != federation.StatusFailure || got.Kind != federation.FailureAdapter {
		t.Fatalf("expected adapter_error failure, got %+v", got)
	}
	// Zero successful sources is not a request-level error.
	if len(result.Entities) != 0 {
		t.Fatalf("expected no entities, got %d", len(result.Entities))
	}
}

func TestFederateSecondCallServedFromCache(t *testing.T) {
	a := &fakeAdapter{name: "erddap", records: []federation.SourceRecord{record("erddap", "a")}}
	b := &fakeAdapter{name: "axds", records: []federation.SourceRecord{record("axds", "b")}}

	coord, _ := newCoordinator(t, federation.Options{
		DefaultTTL:       time.Minute,
		PerSourceTimeout: time.Second,
	}, a, b)

	first, err := coord.Federate(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := coord.Federate(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.calls.Load() != 1 || b.calls.Load() != 1 {
		t.Fatalf("expected zero adapter calls on the second federation, got %d/%d", a.calls.Load(), b.calls.Load())
	}
	for name, outcome := range second.Outcomes {
		if outcome.Status != federation.StatusCached {
			t.Fatalf("expected cached outcome for %s, got %+v", name, outcome)
		}
	}
	if len(first.Entities) != len(second.Entities) {
		t.Fatalf("entity counts differ: %d vs %d", len(first.Entities), len(second.Entities))
	}
	for i := range first.Entities {
		if first.Entities[i].Key != second.Entities[i].Key {
			t.Fatalf("entity order differs at %d: %q vs %q", i, first.Entities[i].Key, second.Entities[i].Key)
		}
	}
}

func TestFederateRejectsInvalidQueryBeforeDispatch(t *testing.T) {
	a := &fakeAdapter{name: "erddap"}

	coord, _ := newCoordinator(t, federation.Options{}, a)

	q := testQuery()
	q.Window.Start, q.Window.End = q.Window.End, q.Window.Start

	if _, err := coord.Federate(context.Background(), q); !errors.Is(err, federation.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if a.calls.Load() != 0 {
		t.Fatalf("expected zero adapter calls, got %d", a.calls.Load())
	}
}

func TestFederateRejectsUnknownSource(t *testing.T) {
	a := &fakeAdapter{name: "erddap"}

	coord, _ := newCoordinator(t, federation.Options{}, a)

	q := testQuery()
	q.Sources = []string{"erddap", "nonesuch"}

	_, err := coord.Federate(context.Background(), q)
	if !errors.Is(err, federation.ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
	if !errors.Is(err, federation.ErrInvalidQuery) {
		t.Fatal("unknown source should classify as an invalid query")
	}
	if a.calls.Load() != 0 {
		t.Fatalf("expected zero adapter calls, got %d", a.calls.Load())
	}
}

func TestFederateExplicitSourceSubset(t *testing.T) {
	a := &fakeAdapter{name: "erddap", records: []federation.SourceRecord{record("erddap", "a")}}
	b := &fakeAdapter{name: "axds", records: []federation.SourceRecord{record("axds", "b")}}

	coord, _ := newCoordinator(t, federation.Options{PerSourceTimeout: time.Second}, a, b)

	q := testQuery()
	q.Sources = []string{"axds"}

	result, err := coord.Federate(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Outcomes) != 1 {
		t.Fatalf("expected a single outcome, got %d", len(result.Outcomes))
	}
	if a.calls.Load() != 0 {
		t.Fatal("unselected source must not be contacted")
	}
}

// failingCache breaks every operation; the coordinator must treat lookups
// as misses and still serve the request.
type failingCache struct{}

func (failingCache) Get(context.Context, string) (federation.CacheEntry, bool, error) {
	return federation.CacheEntry{}, false, errors.New("backend down")
}
func (failingCache) Put(context.Context, federation.CacheEntry) error {
	return errors.New("backend down")
}
func (failingCache) Invalidate(context.Context, string) error { return errors.New("backend down") }
func (failingCache) Clear(context.Context) error              { return errors.New("backend down") }

func TestFederateSurvivesCacheOutage(t *testing.T) {
	a := &fakeAdapter{name: "erddap", records: []federation.SourceRecord{record("erddap", "a")}}

	registry := federation.NewRegistry()
	if err := registry.Register(a); err != nil {
		t.Fatalf("register: %v", err)
	}
	coord := federation.NewCoordinator(registry, failingCache{}, nil, federation.Options{
		PerSourceTimeout: time.Second,
	}, zap.NewNop())

	result, err := coord.Federate(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("cache outage must not fail the request: %v", err)
	}
	if result.Outcomes["erddap"].Status != federation.StatusSuccess {
		t.Fatalf("expected success despite cache outage, got %+v", result.Outcomes["erddap"])
	}
}
