package federation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// fingerprintPayload is the canonical form a query is reduced to before
// hashing. Unordered fields are sorted so that two semantically equal
// queries always serialize identically; times are pinned to UTC RFC3339.
type fingerprintPayload struct {
	Source     string   `json:"source"`
	MinLat     float64  `json:"minLat"`
	MaxLat     float64  `json:"maxLat"`
	MinLon     float64  `json:"minLon"`
	MaxLon     float64  `json:"maxLon"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Variables  []string `json:"variables,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	StationIDs []string `json:"stationIds,omitempty"`
}

// Fingerprint derives the cache key for one source's share of a query.
// It is deterministic and insensitive to the insertion order of variable,
// keyword, and station filters.
func Fingerprint(q NormalizedQuery, sourceID string) string {
	payload := fingerprintPayload{
		Source:     sourceID,
		MinLat:     q.Region.MinLat,
		MaxLat:     q.Region.MaxLat,
		MinLon:     q.Region.MinLon,
		MaxLon:     q.Region.MaxLon,
		Start:      q.Window.Start.UTC().Format(time.RFC3339Nano),
		End:        q.Window.End.UTC().Format(time.RFC3339Nano),
		Variables:  sortedCopy(q.Variables),
		Keywords:   sortedCopy(q.Keywords),
		StationIDs: sortedCopy(q.StationIDs),
	}

	// Marshalling a flat struct of strings and floats cannot fail.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
