package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func axdsTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	payload := map[string]any{
		"results": []any{
			map[string]any{
				"uuid":       "c6d8a1f0",
				"label":      "Mid Gulf Buoy",
				"station_id": "42001",
				"start_date": "2020-01-01T00:00:00Z",
				"end_date":   "2021-06-01T00:00:00Z",
				"location":   map[string]any{"latitude": 25.93, "longitude": -89.66},
				"parameter_group_labels": []string{"Water Temperature", "Salinity"},
				"data_url":               "https://sensors.axds.co/api/c6d8a1f0",
			},
			map[string]any{
				"uuid":       "9b2e0c44",
				"label":      "Shelf Glider",
				"start_date": "2021-03-15T00:00:00Z",
				"end_date":   "2021-04-20T00:00:00Z",
				"location":   map[string]any{"latitude": 27.4, "longitude": -95.1},
			},
		},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("geom") == "" {
			t.Error("expected geom parameter on axds search")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
}

func TestAxdsQueryNormalizesRecords(t *testing.T) {
	srv := axdsTestServer(t)
	defer srv.Close()

	adapter := NewAxds("axds", srv.URL, srv.Client())

	records, err := adapter.Query(context.Background(), gulfQuery())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	buoy := records[0]
	if buoy.LocalID != "c6d8a1f0" || buoy.CanonicalID != "42001" {
		t.Fatalf("unexpected identity: %+v", buoy)
	}
	if len(buoy.Variables) != 2 {
		t.Fatalf("expected parameter groups as variables, got %v", buoy.Variables)
	}
	if buoy.PayloadRef != "https://sensors.axds.co/api/c6d8a1f0" {
		t.Fatalf("unexpected payload handle: %s", buoy.PayloadRef)
	}

	// Glider has no station_id, so no canonical id is claimed.
	if records[1].CanonicalID != "" {
		t.Fatalf("expected empty canonical id, got %q", records[1].CanonicalID)
	}
}

func TestAxdsStationFilter(t *testing.T) {
	srv := axdsTestServer(t)
	defer srv.Close()

	adapter := NewAxds("axds", srv.URL, srv.Client())

	q := gulfQuery()
	q.StationIDs = []string{"42001"}

	records, err := adapter.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 1 || records[0].CanonicalID != "42001" {
		t.Fatalf("expected only station 42001, got %+v", records)
	}
}
