package config

import (
	"encoding/json"
	"sort"

	"github.com/sievemail/spamchain/filter"
	"github.com/sievemail/spamchain/registry"
)

// filterEntry is one element of the array-form chain configuration.
type filterEntry struct {
	Filter   string          `json:"filter"`
	Settings json.RawMessage `json:"settings"`
}

// LoadFilters decodes a chain configuration document and builds the
// corresponding, fully-configured filter.Filter instances in order.
//
// Two shapes are accepted per spec.md §4.5.3:
//
//   - Array form (preferred): [{"filter": id, "settings": {...}}, ...].
//     Filters are instantiated and appended in the array's order.
//   - Object form (legacy): {id: settings, ...}. Order is
//     implementation-defined; this implementation uses lexicographic order
//     by id, which the spec records as a non-load-bearing but deterministic
//     choice (see SPEC_FULL.md, Open Question resolutions).
//
// The filter list is built atomically: if any entry fails (unknown id, or
// ApplySettings returning an error), LoadFilters returns the error and no
// partial slice, so callers never observe a half-loaded chain.
func LoadFilters(reg *registry.Registry, raw []byte) ([]filter.Filter, error) {
	var asArray []filterEntry
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return buildFilters(reg, asArray)
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return nil, &filter.ConfigError{Reason: "chain configuration must be a JSON array or object", Err: err}
	}

	ids := make([]string, 0, len(asObject))
	for id := range asObject {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]filterEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, filterEntry{Filter: id, Settings: asObject[id]})
	}
	return buildFilters(reg, entries)
}

func buildFilters(reg *registry.Registry, entries []filterEntry) ([]filter.Filter, error) {
	built := make([]filter.Filter, 0, len(entries))
	for _, entry := range entries {
		f, err := reg.New(entry.Filter)
		if err != nil {
			return nil, err
		}
		if err := f.ApplySettings(entry.Settings); err != nil {
			return nil, &filter.ConfigError{Filter: entry.Filter, Reason: "invalid settings", Err: err}
		}
		built = append(built, f)
	}
	return built, nil
}

// SaveFilters serializes chain's current filter order and settings back
// into the array form LoadFilters accepts.
func SaveFilters(chain []filter.Filter) ([]byte, error) {
	entries := make([]filterEntry, 0, len(chain))
	for _, f := range chain {
		settings, err := f.GetSettings()
		if err != nil {
			return nil, &filter.ConfigError{Filter: f.ID(), Reason: "could not serialize settings", Err: err}
		}
		entries = append(entries, filterEntry{Filter: f.ID(), Settings: settings})
	}
	return json.Marshal(entries)
}
