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

// ERDDAP queries one ERDDAP server through its allDatasets tabledap table,
// which exposes every dataset's id, title, geospatial bounds, and time
// coverage in a single call.
type ERDDAP struct {
	name    string
	baseURL string
	httpCfg httpConfig
	circuit *gobreaker.CircuitBreaker
}

// NewERDDAP creates an adapter for one ERDDAP server. name becomes the
// source id; baseURL is the server root, e.g.
// "https://erddap.sensors.ioos.us/erddap".
func NewERDDAP(name, baseURL string, client *http.Client) *ERDDAP {
	return &ERDDAP{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: httpConfig{client: client, backoff: defaultBackoff()},
		circuit: newBreaker(name),
	}
}

func (p *ERDDAP) Name() string {
	return p.name
}

// Query lists the datasets whose bounds overlap the requested region and
// window, then applies keyword and station filters client-side.
func (p *ERDDAP) Query(ctx context.Context, q federation.NormalizedQuery) ([]federation.SourceRecord, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, p.searchURL(q), nil)
	}

	resp, err := doWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Table struct {
			ColumnNames []string `json:"columnNames"`
			Rows        [][]any  `json:"rows"`
		} `json:"table"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode erddap response: %w", err)
	}

	col := make(map[string]int, len(payload.Table.ColumnNames))
	for i, name := range payload.Table.ColumnNames {
		col[name] = i
	}
	for _, required := range []string{"datasetID", "title", "minLongitude", "maxLongitude", "minLatitude", "maxLatitude"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("erddap response missing column %q", required)
		}
	}

	var records []federation.SourceRecord
	for _, row := range payload.Table.Rows {
		datasetID := rowString(row, col["datasetID"])
		if datasetID == "" || datasetID == "allDatasets" {
			continue
		}
		text := rowString(row, col["title"])
		if i, ok := col["summary"]; ok {
			text += " " + rowString(row, i)
		}
		if !matchesKeywords(text, q.Keywords) {
			continue
		}
		if len(q.StationIDs) > 0 && !containsFold(q.StationIDs, datasetID) {
			continue
		}

		coverage := federation.TimeRange{Start: q.Window.Start, End: q.Window.End}
		if i, ok := col["minTime"]; ok {
			if ts, tsErr := time.Parse(time.RFC3339, rowString(row, i)); tsErr == nil {
				coverage.Start = ts.UTC()
			}
		}
		if i, ok := col["maxTime"]; ok {
			if ts, tsErr := time.Parse(time.RFC3339, rowString(row, i)); tsErr == nil {
				coverage.End = ts.UTC()
			}
		}

		records = append(records, federation.SourceRecord{
			SourceID: p.name,
			LocalID:  datasetID,
			Position: federation.Position{
				Lat: (rowFloat(row, col["minLatitude"]) + rowFloat(row, col["maxLatitude"])) / 2,
				Lon: (rowFloat(row, col["minLongitude"]) + rowFloat(row, col["maxLongitude"])) / 2,
			},
			Coverage:   coverage,
			Variables:  q.Variables,
			PayloadRef: fmt.Sprintf("%s/tabledap/%s", p.baseURL, datasetID),
		})
	}
	return records, nil
}

// searchURL builds the allDatasets query with overlap constraints on the
// region and time window.
func (p *ERDDAP) searchURL(q federation.NormalizedQuery) string {
	columns := "datasetID,title,summary,minLongitude,maxLongitude,minLatitude,maxLatitude,minTime,maxTime"
	constraints := []string{
		fmt.Sprintf("maxLongitude>=%g", q.Region.MinLon),
		fmt.Sprintf("minLongitude<=%g", q.Region.MaxLon),
		fmt.Sprintf("maxLatitude>=%g", q.Region.MinLat),
		fmt.Sprintf("minLatitude<=%g", q.Region.MaxLat),
		fmt.Sprintf("maxTime>=%s", q.Window.Start.UTC().Format(time.RFC3339)),
		fmt.Sprintf("minTime<=%s", q.Window.End.UTC().Format(time.RFC3339)),
	}

	var sb strings.Builder
	sb.WriteString(p.baseURL)
	sb.WriteString("/tabledap/allDatasets.json?")
	sb.WriteString(url.QueryEscape(columns))
	for _, c := range constraints {
		sb.WriteString("&")
		sb.WriteString(url.QueryEscape(c))
	}
	return sb.String()
}

func rowString(row []any, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return s
}

func rowFloat(row []any, i int) float64 {
	if i < 0 || i >= len(row) {
		return 0
	}
	f, _ := row[i].(float64)
	return f
}

func matchesKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}
