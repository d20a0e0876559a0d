package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kthyng/ocean-data-gateway/internal/federation"
)

// Axds queries the Axiom Data Science platform search API for observation
// platforms inside a region and time window.
type Axds struct {
	name    string
	baseURL string
	httpCfg httpConfig
	circuit *gobreaker.CircuitBreaker
}

// NewAxds creates an adapter for the Axiom search API. An empty baseURL
// falls back to the public endpoint.
func NewAxds(name, baseURL string, client *http.Client) *Axds {
	if baseURL == "" {
		baseURL = "https://search.axds.co/v2"
	}
	return &Axds{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: httpConfig{client: client, backoff: defaultBackoff()},
		circuit: newBreaker(name),
	}
}

func (p *Axds) Name() string {
	return p.name
}

// axdsResult is the slice of one Axiom search response the adapter reads.
type axdsResult struct {
	UUID      string `json:"uuid"`
	Label     string `json:"label"`
	StationID string `json:"station_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Location  struct {
		Lat float64 `json:"latitude"`
		Lon float64 `json:"longitude"`
	} `json:"location"`
	Parameters []string `json:"parameter_group_labels"`
	DataURL    string   `json:"data_url"`
}

func (p *Axds) Query(ctx context.Context, q federation.NormalizedQuery) ([]federation.SourceRecord, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("type", "platform2")
		values.Set("verbose", "false")
		values.Set("geom", regionGeoJSON(q.Region))
		values.Set("startDateTime", q.Window.Start.UTC().Format(time.RFC3339))
		values.Set("endDateTime", q.Window.End.UTC().Format(time.RFC3339))
		if len(q.Keywords) > 0 {
			values.Set("search", strings.Join(q.Keywords, " "))
		}

		return http.NewRequest(http.MethodGet, p.baseURL+"/search?"+values.Encode(), nil)
	}

	resp, err := doWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Results []axdsResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode axds response: %w", err)
	}

	var records []federation.SourceRecord
	for _, res := range payload.Results {
		if res.UUID == "" {
			continue
		}
		if len(q.StationIDs) > 0 &&
			!containsFold(q.StationIDs, res.StationID) &&
			!containsFold(q.StationIDs, res.UUID) {
			continue
		}

		records = append(records, federation.SourceRecord{
			SourceID:    p.name,
			LocalID:     res.UUID,
			CanonicalID: res.StationID,
			Position: federation.Position{
				Lat: res.Location.Lat,
				Lon: res.Location.Lon,
			},
			Coverage:   parseCoverage(res.StartDate, res.EndDate, q.Window),
			Variables:  res.Parameters,
			PayloadRef: res.DataURL,
		})
	}
	return records, nil
}

// regionGeoJSON renders the bounding box as the GeoJSON polygon the Axiom
// API expects.
func regionGeoJSON(b federation.BoundingBox) string {
	return fmt.Sprintf(
		`{"type":"Polygon","coordinates":[[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}`,
		b.MinLon, b.MinLat,
		b.MaxLon, b.MinLat,
		b.MaxLon, b.MaxLat,
		b.MinLon, b.MaxLat,
		b.MinLon, b.MinLat,
	)
}

// parseCoverage decodes the provider's coverage dates, falling back to the
// query window when a bound is missing or malformed.
func parseCoverage(start, end string, fallback federation.TimeRange) federation.TimeRange {
	coverage := fallback
	if ts, err := time.Parse(time.RFC3339, start); err == nil {
		coverage.Start = ts.UTC()
	}
	if ts, err := time.Parse(time.RFC3339, end); err == nil {
		coverage.End = ts.UTC()
	}
	return coverage
}
