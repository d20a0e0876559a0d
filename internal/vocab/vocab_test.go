package vocab

import (
	"reflect"
	"testing"
)

func TestExpandToNativeNames(t *testing.T) {
	table := Default()

	got := table.Expand("erddap", []string{"temperature", "salinity"})
	want := []string{"sea_water_temperature", "sea_water_practical_salinity"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// The same common names expand differently per source.
	got = table.Expand("axds", []string{"temperature"})
	if !reflect.DeepEqual(got, []string{"Water Temperature"}) {
		t.Fatalf("unexpected axds expansion: %v", got)
	}
}

func TestExpandPassesUnknownNamesThrough(t *testing.T) {
	table := Default()

	got := table.Expand("erddap", []string{"chlorophyll_concentration"})
	if !reflect.DeepEqual(got, []string{"chlorophyll_concentration"}) {
		t.Fatalf("unknown names must pass through, got %v", got)
	}

	// Unknown source id: common names pass through unchanged.
	got = table.Expand("nonesuch", []string{"temperature"})
	if !reflect.DeepEqual(got, []string{"temperature"}) {
		t.Fatalf("expected passthrough for unknown source, got %v", got)
	}
}

func TestExpandDeduplicates(t *testing.T) {
	table := New()
	table.Add("temperature", Entry{
		Native: map[string][]string{"erddap": {"sea_water_temperature"}},
	})
	table.Add("temp", Entry{
		Native: map[string][]string{"erddap": {"sea_water_temperature"}},
	})

	got := table.Expand("erddap", []string{"temperature", "temp"})
	if len(got) != 1 {
		t.Fatalf("expected deduplicated expansion, got %v", got)
	}
}

func TestSearch(t *testing.T) {
	table := Default()

	if got := table.Search("sal"); !reflect.DeepEqual(got, []string{"salinity"}) {
		t.Fatalf("expected salinity for 'sal', got %v", got)
	}
	if got := table.Search("water level"); !reflect.DeepEqual(got, []string{"sea_level"}) {
		t.Fatalf("expected sea_level for 'water level', got %v", got)
	}
	if got := table.Search("magnetism"); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}
