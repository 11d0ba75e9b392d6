// Package bayes implements the Bayesian word-frequency spam classifier of
// spec.md §4.4: a filter.Filter that scores messages against a persisted
// word-frequency table and trains on the chain's final verdict.
package bayes

import (
	"math"

	"github.com/sievemail/spamchain/filter"
	"github.com/sievemail/spamchain/log"
	"github.com/sievemail/spamchain/registry"
	"github.com/sievemail/spamchain/tokenizer"
	"github.com/sievemail/spamchain/transcode"
)

// maxWordLength is spec.md §4.4.1's max_word_length.
const maxWordLength = 64

// spamThreshold is spec.md §4.4.2's P(spam) cutoff for REVOKE.
const spamThreshold = 0.75

// Filter is the Bayesian classifier. It is safe for concurrent use: scoring
// runs on the Immediate path, training and persistence are serialized
// through store's mutex and the debounce writer's own state machine.
type Filter struct {
	id string

	store  *store
	writer *debouncedWriter
	logger log.Logger

	headerDecoder   transcode.HeaderWordDecoder
	transferDecoder transcode.TransferDecoder
}

// New constructs a Bayesian filter with id, persisting its word database
// under dir/bayes-words.json. Construction attempts to load any existing
// database; a read failure is logged and the filter starts empty (spec.md
// §4.4.4), it is never fatal.
func New(id string, dir string) *Filter {
	logger := log.Logger{Name: "bayes/" + id}
	s := newStore(dir, logger)
	return &Filter{
		id:              id,
		store:           s,
		writer:          newDebouncedWriter(s, logger),
		logger:          logger,
		headerDecoder:   transcode.DefaultHeaderWordDecoder,
		transferDecoder: transcode.DefaultTransferDecoder,
	}
}

// Register installs a factory for id in reg, constructing filters that
// persist under stateDir. Grounded on the teacher's module.Register-in-init
// convention (framework/module/registry.go), adapted to this library's
// registry.Registry.
func Register(reg *registry.Registry, id string, stateDir string) {
	reg.Register(id, func(instanceID string) (filter.Filter, error) {
		return New(instanceID, stateDir), nil
	})
}

func (f *Filter) ID() string { return f.id }

// ApplySettings is a no-op: spec.md §6 defines the Bayesian settings
// sub-schema as "empty or absent."
func (f *Filter) ApplySettings(settings []byte) error { return nil }

// GetSettings always returns nil, for the same reason.
func (f *Filter) GetSettings() ([]byte, error) { return nil, nil }

// extractTokens implements spec.md §4.4.1's word-extraction procedure:
// decode subject and body, tokenize their concatenation, deduplicate, and
// drop tokens longer than maxWordLength.
func (f *Filter) extractTokens(msg filter.Message) map[string]struct{} {
	subject := f.headerDecoder(msg.Subject())
	body := f.transferDecoder(msg.Body, msg.TransferEncoding())

	tokens := tokenizer.TokenizeMax(subject+" "+body, maxWordLength)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Immediate scores msg per spec.md §4.4.2 and returns REVOKE if the
// posterior spam probability exceeds spamThreshold, else PASS.
func (f *Filter) Immediate(msg filter.Message) filter.Verdict {
	tokens := f.extractTokens(msg)

	totalSpam, totalHam := f.store.totals()
	s := float64(totalSpam)
	h := float64(totalHam)
	bias := 1 / (s + h + 1)

	var sumDelta float64
	for w := range tokens {
		entry, ok := f.store.lookup(w)
		if !ok {
			continue
		}

		pWS := (float64(entry.SpamCount) + bias) / s
		pWH := (float64(entry.HamCount) + bias) / h
		p := pWS / (pWS + pWH)
		sumDelta += math.Log(1-p) - math.Log(p)
	}

	pSpam := 1 / (1 + math.Exp(sumDelta))
	if pSpam > spamThreshold {
		return filter.REVOKE
	}
	return filter.PASS
}

// Async never contributes an opinion of its own (spec.md §4.4.2: "Async:
// always PASS"); the Bayesian filter's entire cost lives in the fast,
// non-blocking Immediate path.
func (f *Filter) Async(msg filter.Message) filter.Verdict {
	return filter.PASS
}

// Reset clears the learned word table and arms a write of the now-empty
// table (spec.md §4.4.3's reset()).
func (f *Filter) Reset() {
	f.store.reset()
	f.writer.Notify()
}

// Classify trains the word table with msg's tokens per spec.md §4.4.3,
// incrementing (undo=false) or decrementing (undo=true) each token's
// spam or ham counter, then arms the debounced writer.
func (f *Filter) Classify(msg filter.Message, isSpam bool, undo bool) {
	tokens := f.extractTokens(msg)

	delta := int64(1)
	if undo {
		delta = -1
	}

	for w := range tokens {
		f.store.applyDelta(w, isSpam, delta)
	}
	f.writer.Notify()
}

// Flush forces a synchronous write of the current word table, bypassing
// the debounce delay. It is not part of filter.Filter; hosts that need a
// durable snapshot before shutdown can type-assert for it.
func (f *Filter) Flush() error {
	return f.writer.Flush()
}

var _ filter.Filter = (*Filter)(nil)
