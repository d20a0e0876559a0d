package federation

import (
	"errors"
	"testing"
	"time"
)

func TestQueryValidate(t *testing.T) {
	start := time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 4, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*NormalizedQuery)
		wantErr bool
	}{
		{"valid", func(q *NormalizedQuery) {}, false},
		{"latitude out of range", func(q *NormalizedQuery) { q.Region.MaxLat = 95 }, true},
		{"longitude out of range", func(q *NormalizedQuery) { q.Region.MinLon = -200 }, true},
		{"min lat above max", func(q *NormalizedQuery) { q.Region.MinLat, q.Region.MaxLat = 30, 27 }, true},
		{"min lon above max", func(q *NormalizedQuery) { q.Region.MinLon, q.Region.MaxLon = -88, -97 }, true},
		{"end before start", func(q *NormalizedQuery) { q.Window.Start, q.Window.End = end, start }, true},
		{"missing window", func(q *NormalizedQuery) { q.Window = TimeRange{} }, true},
		{"instant window", func(q *NormalizedQuery) { q.Window.End = q.Window.Start }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NormalizedQuery{
				Region: BoundingBox{MinLat: 27, MaxLat: 30, MinLon: -97, MaxLon: -88},
				Window: TimeRange{Start: start, End: end},
			}
			tt.mutate(&q)

			err := q.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuery) {
					t.Fatalf("expected ErrInvalidQuery, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTimeRangeOverlapsAndUnion(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2021, 4, d, 0, 0, 0, 0, time.UTC) }

	a := TimeRange{Start: day(1), End: day(5)}
	b := TimeRange{Start: day(4), End: day(9)}
	c := TimeRange{Start: day(6), End: day(7)}

	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Fatal("expected a and b to overlap")
	}
	if a.Overlaps(c) {
		t.Fatal("expected a and c not to overlap")
	}

	u := a.Union(b)
	if !u.Start.Equal(day(1)) || !u.End.Equal(day(9)) {
		t.Fatalf("unexpected union: %v", u)
	}
}
