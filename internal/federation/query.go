package federation

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidQuery is returned when a query fails validation; nothing is
	// dispatched to any source in that case.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownSource is returned when an explicit source list names a
	// source that is not registered. It is a kind of ErrInvalidQuery.
	ErrUnknownSource = fmt.Errorf("%w: unknown source", ErrInvalidQuery)
)

// BoundingBox is a geographic search region in decimal degrees.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

// Contains reports whether the position falls inside the box (inclusive).
func (b BoundingBox) Contains(p Position) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// TimeRange is an inclusive time window. End must not precede Start.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the two ranges share at least one instant.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// Union returns the smallest range covering both inputs.
func (r TimeRange) Union(other TimeRange) TimeRange {
	out := r
	if other.Start.Before(out.Start) {
		out.Start = other.Start
	}
	if other.End.After(out.End) {
		out.End = other.End
	}
	return out
}

// NormalizedQuery is the single query shape every source adapter accepts.
// It is treated as immutable once built; the coordinator copies it before
// applying per-source variable expansion.
type NormalizedQuery struct {
	Region BoundingBox `json:"region"`
	Window TimeRange   `json:"window"`

	// Variables restricts results to platforms reporting any of these
	// variable names (common vocabulary names; adapters receive the
	// per-provider native names).
	Variables []string `json:"variables,omitempty"`

	// Keywords is an optional free-text filter.
	Keywords []string `json:"keywords,omitempty"`

	// StationIDs restricts the search to specific platforms instead of a
	// pure region sweep.
	StationIDs []string `json:"stationIds,omitempty"`

	// Sources names the sources to query. Empty means all registered.
	Sources []string `json:"sources,omitempty"`
}

// Validate checks region and time bounds. A query that fails validation is
// rejected before any fingerprinting or dispatch happens.
func (q NormalizedQuery) Validate() error {
	if q.Region.MinLat < -90 || q.Region.MaxLat > 90 {
		return fmt.Errorf("%w: latitude out of [-90, 90]", ErrInvalidQuery)
	}
	if q.Region.MinLon < -180 || q.Region.MaxLon > 180 {
		return fmt.Errorf("%w: longitude out of [-180, 180]", ErrInvalidQuery)
	}
	if q.Region.MinLat > q.Region.MaxLat {
		return fmt.Errorf("%w: minLat exceeds maxLat", ErrInvalidQuery)
	}
	if q.Region.MinLon > q.Region.MaxLon {
		return fmt.Errorf("%w: minLon exceeds maxLon", ErrInvalidQuery)
	}
	if q.Window.Start.IsZero() || q.Window.End.IsZero() {
		return fmt.Errorf("%w: time window is required", ErrInvalidQuery)
	}
	if q.Window.End.Before(q.Window.Start) {
		return fmt.Errorf("%w: window end precedes start", ErrInvalidQuery)
	}
	return nil
}
