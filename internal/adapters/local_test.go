package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/kthyng/ocean-data-gateway/internal/federation"
)

func localCatalog() []federation.SourceRecord {
	window := func(startDay, endDay int) federation.TimeRange {
		return federation.TimeRange{
			Start: time.Date(2021, 4, startDay, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2021, 4, endDay, 0, 0, 0, 0, time.UTC),
		}
	}
	return []federation.SourceRecord{
		{
			LocalID:     "pier21",
			CanonicalID: "8771450",
			Position:    federation.Position{Lat: 29.31, Lon: -94.79},
			Coverage:    window(1, 30),
			Variables:   []string{"sea_level"},
		},
		{
			LocalID:   "offshore_ctd",
			Position:  federation.Position{Lat: 27.5, Lon: -93.2},
			Coverage:  window(10, 12),
			Variables: []string{"temperature", "salinity"},
		},
		{
			LocalID:   "pacific_float",
			Position:  federation.Position{Lat: 35.0, Lon: -140.0},
			Coverage:  window(1, 30),
			Variables: []string{"temperature"},
		},
	}
}

func aprilQuery() federation.NormalizedQuery {
	q := gulfQuery()
	q.Window = federation.TimeRange{
		Start: time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 4, 30, 0, 0, 0, 0, time.UTC),
	}
	return q
}

func TestLocalFilters(t *testing.T) {
	adapter := NewLocal("local", localCatalog())

	tests := []struct {
		name   string
		mutate func(*federation.NormalizedQuery)
		want   []string
	}{
		{
			"region filter drops the pacific float",
			func(q *federation.NormalizedQuery) {},
			[]string{"pier21", "offshore_ctd"},
		},
		{
			"window filter",
			func(q *federation.NormalizedQuery) {
				q.Window.Start = time.Date(2021, 4, 20, 0, 0, 0, 0, time.UTC)
				q.Window.End = time.Date(2021, 4, 25, 0, 0, 0, 0, time.UTC)
			},
			[]string{"pier21"},
		},
		{
			"variable filter",
			func(q *federation.NormalizedQuery) { q.Variables = []string{"salinity"} },
			[]string{"offshore_ctd"},
		},
		{
			"station filter matches canonical ids too",
			func(q *federation.NormalizedQuery) { q.StationIDs = []string{"8771450"} },
			[]string{"pier21"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := aprilQuery()
			tt.mutate(&q)

			records, err := adapter.Query(context.Background(), q)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(records) != len(tt.want) {
				t.Fatalf("expected %d records, got %d", len(tt.want), len(records))
			}
			for i, want := range tt.want {
				if records[i].LocalID != want {
					t.Fatalf("expected %q at %d, got %q", want, i, records[i].LocalID)
				}
				if records[i].SourceID != "local" {
					t.Fatalf("records must carry the adapter's source id, got %q", records[i].SourceID)
				}
			}
		})
	}
}
