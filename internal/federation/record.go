package federation

import (
	"sort"
	"time"
)

// Position is a point location in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SourceRecord is one station/platform entry as reported by a single source.
// The record is owned by the adapter that produced it until it is merged.
type SourceRecord struct {
	// SourceID identifies the source that returned this record.
	SourceID string `json:"sourceId"`

	// LocalID is the source's own identifier for the dataset/platform.
	LocalID string `json:"localId"`

	// CanonicalID is a cross-provider station identifier (e.g. a WMO or
	// NDBC id) when the adapter can supply one; empty otherwise.
	CanonicalID string `json:"canonicalId,omitempty"`

	Position Position  `json:"position"`
	Coverage TimeRange `json:"coverage"`

	// Variables lists the variable names this platform reports, in the
	// source's native vocabulary.
	Variables []string `json:"variables,omitempty"`

	// PayloadRef is an opaque handle to the underlying dataset (typically
	// a data-access URL); the gateway never materializes it.
	PayloadRef string `json:"payloadRef,omitempty"`
}

// OutcomeStatus classifies what happened for one requested source.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailure OutcomeStatus = "failure"
	StatusCached  OutcomeStatus = "cached"
)

// FailureKind distinguishes why a source failed.
type FailureKind string

const (
	FailureTimeout FailureKind = "timeout"
	FailureAdapter FailureKind = "adapter_error"
)

// FederationOutcome records the result of contacting one source for one
// query. Exactly one outcome exists per requested source.
type FederationOutcome struct {
	SourceID    string        `json:"sourceId"`
	Status      OutcomeStatus `json:"status"`
	Records     int           `json:"records"`
	Fingerprint string        `json:"fingerprint"`

	// Failure details; only set when Status == StatusFailure.
	Kind    FailureKind `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`

	// Age of the cache entry; only set when Status == StatusCached.
	Age time.Duration `json:"age,omitempty"`
}

// CanonicalEntity is the merged view of one real-world platform, possibly
// backed by records from several sources. Merging is additive: every
// contributing SourceRecord is retained in Members.
type CanonicalEntity struct {
	// Key is the stable ordering/identity key for this entity.
	Key string `json:"key"`

	// CanonicalID is set when at least one member supplied one.
	CanonicalID string `json:"canonicalId,omitempty"`

	Position Position  `json:"position"`
	Coverage TimeRange `json:"coverage"`

	// Variables is the sorted union of all members' variable lists.
	Variables []string `json:"variables,omitempty"`

	// Members maps source id to the original record from that source.
	Members map[string]SourceRecord `json:"members"`
}

// FederatedResult is the complete answer to one federated query. It is
// immutable once constructed and holds no live connections.
type FederatedResult struct {
	// ID correlates log lines for this federation.
	ID string `json:"id"`

	Query    NormalizedQuery              `json:"query"`
	Entities []CanonicalEntity            `json:"entities"`
	Outcomes map[string]FederationOutcome `json:"outcomes"`
}

// Succeeded returns, sorted, the ids of sources whose outcome carries
// records.
func (r *FederatedResult) Succeeded() []string {
	var ids []string
	for id, o := range r.Outcomes {
		if o.Status == StatusSuccess || o.Status == StatusCached {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
