// Package blacklist implements the static-list filter of spec.md §4.3: an
// IP-prefix and word-set blacklist that only ever blocks or abstains, and
// never learns. Grounded on the teacher's internal/check/dnsbl (list
// membership over an address) and internal/check/authorize_sender (set
// membership over a configured word list).
package blacklist

import (
	"encoding/json"
	"strings"

	"github.com/sievemail/spamchain/config"
	"github.com/sievemail/spamchain/filter"
	"github.com/sievemail/spamchain/registry"
	"github.com/sievemail/spamchain/tokenizer"
	"github.com/sievemail/spamchain/transcode"
)

// Filter blocks messages whose peer address matches a configured IP prefix,
// or whose decoded subject/body contains a configured word. It holds no
// learned state: Reset and Classify are no-ops, and Async always abstains.
type Filter struct {
	id string

	ips   []string
	words map[string]struct{}

	headerDecoder   transcode.HeaderWordDecoder
	transferDecoder transcode.TransferDecoder
}

// New constructs an unconfigured blacklist filter; call ApplySettings (or
// rely on the chain loader to) before use.
func New(id string) *Filter {
	return &Filter{
		id:              id,
		words:           map[string]struct{}{},
		headerDecoder:   transcode.DefaultHeaderWordDecoder,
		transferDecoder: transcode.DefaultTransferDecoder,
	}
}

// Register installs a factory for id in reg, constructing unconfigured
// blacklist filters. Grounded on the teacher's module.Register-in-init
// convention.
func Register(reg *registry.Registry, id string) {
	reg.Register(id, func(instanceID string) (filter.Filter, error) {
		return New(instanceID), nil
	})
}

func (f *Filter) ID() string { return f.id }

// settings is the JSON shape of spec.md §6: `{ "ips": [string], "words":
// [string] }`, both optional, defaulting to empty.
type settings struct {
	IPs   []string `json:"ips"`
	Words []string `json:"words"`
}

// ApplySettings decodes settings and replaces the configured prefix and
// word sets. Word matching is case-insensitive, so words are lowercased
// once here rather than on every Immediate call.
func (f *Filter) ApplySettings(raw []byte) error {
	m, err := config.NewMap(raw)
	if err != nil {
		return &filter.ConfigError{Filter: f.id, Reason: "invalid settings", Err: err}
	}

	var ips, words []string
	m.StringList("ips", nil, &ips)
	m.StringList("words", nil, &words)
	if err := m.Process(); err != nil {
		return &filter.ConfigError{Filter: f.id, Reason: "invalid settings", Err: err}
	}

	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[strings.ToLower(w)] = struct{}{}
	}

	f.ips = ips
	f.words = wordSet
	return nil
}

// GetSettings serializes the current prefix and word lists back into the
// same shape ApplySettings accepts.
func (f *Filter) GetSettings() ([]byte, error) {
	words := make([]string, 0, len(f.words))
	for w := range f.words {
		words = append(words, w)
	}
	return json.Marshal(settings{IPs: f.ips, Words: words})
}

// Immediate implements spec.md §4.3's two-step check: IP-prefix match over
// PeerAddress, then word match over the decoded, tokenized subject and
// body. Either match returns BLOCK; otherwise PASS.
func (f *Filter) Immediate(msg filter.Message) filter.Verdict {
	for _, hop := range msg.PeerAddress {
		for _, prefix := range f.ips {
			if strings.HasPrefix(hop, prefix) {
				return filter.BLOCK
			}
		}
	}

	if len(f.words) == 0 {
		return filter.PASS
	}

	subject := f.headerDecoder(msg.Subject())
	body := f.transferDecoder(msg.Body, msg.TransferEncoding())

	for _, tok := range tokenizer.Tokenize(subject + " " + body) {
		if _, blocked := f.words[strings.ToLower(tok)]; blocked {
			return filter.BLOCK
		}
	}

	return filter.PASS
}

// Async always abstains: the blacklist has nothing further to contribute
// once the immediate check has run.
func (f *Filter) Async(msg filter.Message) filter.Verdict {
	return filter.PASS
}

// Reset is a no-op: the blacklist holds no learned state, only
// operator-configured lists.
func (f *Filter) Reset() {}

// Classify is a no-op for the same reason.
func (f *Filter) Classify(msg filter.Message, isSpam bool, undo bool) {}

var _ filter.Filter = (*Filter)(nil)
