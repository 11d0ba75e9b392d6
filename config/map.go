// Package config implements a declare-then-process settings decoder over
// JSON objects, in the style of the teacher's reflection-based
// framework/config.Map, but re-based onto encoding/json since spec.md's
// wire format is JSON rather than a custom directive tree. encoding/json
// performs the actual parsing; Map supplies validation and defaults on top
// of it.
package config

import (
	"encoding/json"
	"fmt"
)

// Map decodes a JSON object's top-level fields into typed Go values,
// applying defaults for missing fields and reporting the first malformed
// one. Every declared field is optional; there are no required fields.
type Map struct {
	raw     map[string]json.RawMessage
	pending []func() error
	err     error
}

// NewMap parses raw (a JSON object, or nil/empty for "no settings") and
// returns a Map ready for field declarations. A nil or empty raw is treated
// as an empty object, so every field falls back to its default.
func NewMap(raw []byte) (*Map, error) {
	m := &Map{raw: map[string]json.RawMessage{}}
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m.raw); err != nil {
		return nil, fmt.Errorf("config: settings must be a JSON object: %w", err)
	}
	return m, nil
}

// StringList declares a []string field named key. If key is absent, dflt is
// used. The decoded or default value is stored into *out when Process runs.
func (m *Map) StringList(key string, dflt []string, out *[]string) {
	m.pending = append(m.pending, func() error {
		raw, ok := m.raw[key]
		if !ok {
			*out = dflt
			return nil
		}
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("config: %s: expected a list of strings: %w", key, err)
		}
		*out = v
		return nil
	})
}

// Bool declares a bool field named key, defaulting to dflt if absent.
func (m *Map) Bool(key string, dflt bool, out *bool) {
	m.pending = append(m.pending, func() error {
		raw, ok := m.raw[key]
		if !ok {
			*out = dflt
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("config: %s: expected a boolean: %w", key, err)
		}
		return nil
	})
}

// Float declares a float64 field named key, defaulting to dflt if absent.
func (m *Map) Float(key string, dflt float64, out *float64) {
	m.pending = append(m.pending, func() error {
		raw, ok := m.raw[key]
		if !ok {
			*out = dflt
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("config: %s: expected a number: %w", key, err)
		}
		return nil
	})
}

// Process runs every declared field's decoder in order, short-circuiting on
// the first error. It is idempotent-safe to call only once per Map.
func (m *Map) Process() error {
	for _, step := range m.pending {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
