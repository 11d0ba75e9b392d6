package chain

import (
	"github.com/sievemail/spamchain/config"
	"github.com/sievemail/spamchain/registry"
)

// Load builds a Chain from a JSON chain-configuration document (either the
// array or legacy object form of spec.md §4.5.3), resolving filter ids
// against reg. The chain is built atomically: on error, no Chain is
// returned and no partially-configured filters escape.
func Load(reg *registry.Registry, raw []byte) (*Chain, error) {
	filters, err := config.LoadFilters(reg, raw)
	if err != nil {
		return nil, err
	}
	return New(filters), nil
}

// Save serializes the chain's current filter order and settings back into
// the array form Load accepts.
func (c *Chain) Save() ([]byte, error) {
	return config.SaveFilters(c.filters)
}
