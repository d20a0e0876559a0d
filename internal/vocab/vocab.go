// Package vocab maps the gateway's common variable vocabulary onto each
// provider's native variable names. Providers index the same physical
// quantity under different names ("temp", "sea_water_temperature",
// "Water Temperature"), so queries arrive in common names and are expanded
// per source before dispatch.
package vocab

import (
	"sort"
	"strings"
	"sync"
)

// Entry defines one common variable and its per-source native names.
type Entry struct {
	// Aliases are lowercase substrings that identify this variable in
	// free-text searches.
	Aliases []string

	// Native maps source id to that provider's names for the variable.
	Native map[string][]string
}

// Table is the vocabulary lookup used by the coordinator. Safe for
// concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty table.
func New() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Default returns a table seeded with the common physical oceanography
// variables and the native names the bundled providers use for them.
func Default() *Table {
	t := New()
	t.Add("temperature", Entry{
		Aliases: []string{"temp", "temperature"},
		Native: map[string][]string{
			"erddap": {"sea_water_temperature"},
			"axds":   {"Water Temperature"},
		},
	})
	t.Add("salinity", Entry{
		Aliases: []string{"sal", "salinity"},
		Native: map[string][]string{
			"erddap": {"sea_water_practical_salinity"},
			"axds":   {"Salinity"},
		},
	})
	t.Add("sea_level", Entry{
		Aliases: []string{"ssh", "sea level", "water level"},
		Native: map[string][]string{
			"erddap": {"sea_surface_height_above_sea_level"},
			"axds":   {"Water Level"},
		},
	})
	t.Add("currents", Entry{
		Aliases: []string{"current", "velocity"},
		Native: map[string][]string{
			"erddap": {"eastward_sea_water_velocity", "northward_sea_water_velocity"},
			"axds":   {"Currents"},
		},
	})
	return t
}

// Add registers or replaces a common variable definition.
func (t *Table) Add(name string, entry Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[name] = entry
}

// Names returns all common variable names, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expand rewrites common variable names into one source's native names.
// Names the table does not know pass through unchanged, so callers can mix
// common and native vocabulary in one query.
func (t *Table) Expand(sourceID string, names []string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	seen := make(map[string]bool)
	appendName := func(n string) {
		if !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}

	for _, name := range names {
		entry, ok := t.entries[strings.ToLower(name)]
		if !ok {
			appendName(name)
			continue
		}
		native, ok := entry.Native[sourceID]
		if !ok {
			appendName(name)
			continue
		}
		for _, n := range native {
			appendName(n)
		}
	}
	return out
}

// Search returns the common variable names whose name or aliases contain
// the term, for interactive vocabulary discovery.
func (t *Table) Search(term string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	term = strings.ToLower(term)
	var matches []string
	for name, entry := range t.entries {
		if strings.Contains(name, term) || hasAny(term, entry.Aliases) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

// hasAny reports whether any alias is a substring of the term or vice versa.
func hasAny(term string, aliases []string) bool {
	for _, alias := range aliases {
		if strings.Contains(alias, term) || strings.Contains(term, alias) {
			return true
		}
	}
	return false
}
