package federation

import (
	"math"
	"sort"
)

// Merger deduplicates records across sources into canonical entities.
// Matching without a universal station identifier is inherently heuristic,
// so the proximity tolerance is configuration rather than a constant:
// coordinate precision varies by provider.
type Merger struct {
	toleranceKm float64
}

// NewMerger creates a Merger with the given proximity tolerance in
// kilometers. A tolerance <= 0 disables position-based matching entirely,
// leaving only canonical-id matches.
func NewMerger(toleranceKm float64) *Merger {
	return &Merger{toleranceKm: toleranceKm}
}

// Merge folds per-source batches into an ordered sequence of canonical
// entities. Merging is additive: variable sets and time coverage are
// unioned, and every contributing record survives in the entity's member
// map. The output order is deterministic for identical inputs regardless of
// the order batches arrived in.
func (m *Merger) Merge(batches map[string][]SourceRecord) []CanonicalEntity {
	// Walk sources in sorted order so grouping is reproducible.
	sourceIDs := make([]string, 0, len(batches))
	for id := range batches {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	var entities []*CanonicalEntity
	for _, sourceID := range sourceIDs {
		for _, rec := range batches[sourceID] {
			if ent := m.findMatch(entities, rec); ent != nil {
				absorb(ent, rec)
				continue
			}
			entities = append(entities, newEntity(rec))
		}
	}

	out := make([]CanonicalEntity, 0, len(entities))
	for _, ent := range entities {
		sort.Strings(ent.Variables)
		out = append(out, *ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// findMatch returns the first existing entity the record belongs to, or nil.
// An entity never absorbs two records from the same source: deduplication is
// a cross-source judgement, and provenance keeps one record per source.
func (m *Merger) findMatch(entities []*CanonicalEntity, rec SourceRecord) *CanonicalEntity {
	for _, ent := range entities {
		if _, taken := ent.Members[rec.SourceID]; taken {
			continue
		}
		for _, member := range ent.Members {
			if m.sameEntity(member, rec) {
				return ent
			}
		}
	}
	return nil
}

// sameEntity is the single match predicate for cross-source deduplication.
// Canonical station ids win when both sides carry one; otherwise two records
// are the same platform when they sit within the proximity tolerance and
// their time coverages overlap.
func (m *Merger) sameEntity(a, b SourceRecord) bool {
	if a.CanonicalID != "" && b.CanonicalID != "" {
		return a.CanonicalID == b.CanonicalID
	}
	if m.toleranceKm <= 0 {
		return false
	}
	if haversineKm(a.Position, b.Position) > m.toleranceKm {
		return false
	}
	return a.Coverage.Overlaps(b.Coverage)
}

func newEntity(rec SourceRecord) *CanonicalEntity {
	key := rec.CanonicalID
	if key == "" {
		key = rec.SourceID + ":" + rec.LocalID
	}
	vars := make([]string, len(rec.Variables))
	copy(vars, rec.Variables)

	return &CanonicalEntity{
		Key:         key,
		CanonicalID: rec.CanonicalID,
		Position:    rec.Position,
		Coverage:    rec.Coverage,
		Variables:   vars,
		Members:     map[string]SourceRecord{rec.SourceID: rec},
	}
}

// absorb merges one record into an existing entity: union of variables,
// union of coverage, full provenance retained.
func absorb(ent *CanonicalEntity, rec SourceRecord) {
	if ent.CanonicalID == "" && rec.CanonicalID != "" {
		ent.CanonicalID = rec.CanonicalID
		ent.Key = rec.CanonicalID
	}
	ent.Coverage = ent.Coverage.Union(rec.Coverage)

	seen := make(map[string]bool, len(ent.Variables))
	for _, v := range ent.Variables {
		seen[v] = true
	}
	for _, v := range rec.Variables {
		if !seen[v] {
			ent.Variables = append(ent.Variables, v)
			seen[v] = true
		}
	}

	ent.Members[rec.SourceID] = rec
}

// haversineKm is the great-circle distance between two positions.
func haversineKm(a, b Position) float64 {
	const earthRadiusKm = 6371.0

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
