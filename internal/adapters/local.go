package adapters

import (
	"context"

	"github.com/kthyng/ocean-data-gateway/internal/federation"
)

// Local serves records from an in-process catalog, for datasets that live on
// local disk or are registered by hand rather than behind a provider API.
// It applies the same region/time/keyword/station filters the remote
// adapters do, just without any network round trip.
type Local struct {
	name    string
	catalog []federation.SourceRecord
}

// NewLocal creates a local adapter over a fixed catalog of records. The
// records' SourceID is overwritten with the adapter's name.
func NewLocal(name string, catalog []federation.SourceRecord) *Local {
	owned := make([]federation.SourceRecord, len(catalog))
	copy(owned, catalog)
	for i := range owned {
		owned[i].SourceID = name
	}
	return &Local{name: name, catalog: owned}
}

func (p *Local) Name() string {
	return p.name
}

func (p *Local) Query(ctx context.Context, q federation.NormalizedQuery) ([]federation.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []federation.SourceRecord
	for _, rec := range p.catalog {
		if !q.Region.Contains(rec.Position) {
			continue
		}
		if !q.Window.Overlaps(rec.Coverage) {
			continue
		}
		if len(q.StationIDs) > 0 &&
			!containsFold(q.StationIDs, rec.LocalID) &&
			!containsFold(q.StationIDs, rec.CanonicalID) {
			continue
		}
		if len(q.Variables) > 0 && !anyVariable(rec.Variables, q.Variables) {
			continue
		}
		if !matchesKeywords(rec.LocalID+" "+rec.CanonicalID, q.Keywords) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func anyVariable(have, want []string) bool {
	for _, w := range want {
		if containsFold(have, w) {
			return true
		}
	}
	return false
}
