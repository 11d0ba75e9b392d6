package bayes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sievemail/spamchain/filter"
	"github.com/sievemail/spamchain/log"
	"github.com/sievemail/spamchain/metrics"
)

// wordFileName is the name spec.md §4.4.4 mandates for the persisted word
// database.
const wordFileName = "bayes-words.json"

// wordEntry is a pair of non-negative counters keyed by an exact token
// string. Field names are spec-mandated (spec.md §6): unknown fields are
// ignored on read, and writers must emit exactly these two names.
type wordEntry struct {
	SpamCount uint64 `json:"spamCount"`
	HamCount  uint64 `json:"hamCount"`
}

// store owns the word database and its on-disk representation. It is
// mutated only by classify/reset (spec.md §3); scoring reads it without
// locking out other readers, but a lock is still required because the
// debounced writer (writer.go) runs its Write on a timer-fired goroutine
// concurrently with whichever goroutine calls Classify.
type store struct {
	mu sync.RWMutex

	words     map[string]wordEntry
	totalSpam uint64
	totalHam  uint64
	dirty     bool

	dir    string
	logger log.Logger
}

func newStore(dir string, logger log.Logger) *store {
	s := &store{
		words:  make(map[string]wordEntry),
		dir:    dir,
		logger: logger,
	}
	s.load()
	return s
}

func (s *store) path() string    { return filepath.Join(s.dir, wordFileName) }
func (s *store) tmpPath() string { return s.path() + ".tmp" }

// load attempts to populate the table from disk. Per spec.md §4.4.4, any
// read failure (missing, malformed, I/O error) is non-fatal: the filter
// starts empty and the failure is logged as a warning.
func (s *store) load() {
	data, err := os.ReadFile(s.path())
	if err != nil {
		s.logger.Error("could not read word database, starting empty", &filter.PersistenceReadError{Path: s.path(), Err: err}, filter.Fields)
		return
	}

	var loaded map[string]wordEntry
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Error("word database is corrupt, starting empty", &filter.PersistenceReadError{Path: s.path(), Err: err}, filter.Fields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = loaded
	s.totalSpam, s.totalHam = 0, 0
	for _, e := range loaded {
		s.totalSpam += e.SpamCount
		s.totalHam += e.HamCount
	}
}

// snapshot returns a copy of the table and totals under a read lock, safe
// for the writer to serialize without racing further mutation.
func (s *store) snapshot() (map[string]wordEntry, uint64, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make(map[string]wordEntry, len(s.words))
	for k, v := range s.words {
		cp[k] = v
	}
	return cp, s.totalSpam, s.totalHam
}

// totals returns the current aggregate counters.
func (s *store) totals() (spam, ham uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalSpam, s.totalHam
}

// lookup returns the entry for word, if any.
func (s *store) lookup(word string) (wordEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.words[word]
	return e, ok
}

// applyDelta increments (delta>0) or decrements (delta<0) exactly one
// counter (spam or ham) of word by |delta|, saturating at zero on
// underflow and logging a warning instead of going negative (spec.md
// §4.4.3/§7's counter-underflow policy). It also adjusts the matching
// aggregate counter and marks the table dirty.
func (s *store) applyDelta(word string, isSpam bool, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.words[word]
	if isSpam {
		newVal, underflowed := addSaturating(e.SpamCount, delta)
		if underflowed {
			s.logger.Printf("bayes: spam counter for %q would go negative, leaving at zero", word)
		}
		s.totalSpam = adjustTotal(s.totalSpam, e.SpamCount, newVal)
		e.SpamCount = newVal
	} else {
		newVal, underflowed := addSaturating(e.HamCount, delta)
		if underflowed {
			s.logger.Printf("bayes: ham counter for %q would go negative, leaving at zero", word)
		}
		s.totalHam = adjustTotal(s.totalHam, e.HamCount, newVal)
		e.HamCount = newVal
	}
	s.words[word] = e
	s.dirty = true
}

func addSaturating(current uint64, delta int64) (result uint64, underflowed bool) {
	if delta >= 0 {
		return current + uint64(delta), false
	}
	dec := uint64(-delta)
	if dec > current {
		return 0, true
	}
	return current - dec, false
}

func adjustTotal(total, oldVal, newVal uint64) uint64 {
	total -= oldVal
	total += newVal
	return total
}

// reset clears the table and both aggregate counters.
func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = make(map[string]wordEntry)
	s.totalSpam, s.totalHam = 0, 0
	s.dirty = true
}

func (s *store) isDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *store) clearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// write performs the durable-update protocol from spec.md §4.4.4: serialize
// to a .tmp file, close it (flushing), remove the destination if it exists,
// then rename the tmp file over it. Any step failing returns a
// *filter.PersistenceWriteError; mutations already applied in memory are
// unaffected, and the caller (the debounced writer) will retry on the next
// arming.
func (s *store) write() error {
	words, _, _ := s.snapshot()

	data, err := json.Marshal(words)
	if err != nil {
		metrics.BayesWritesTotal.WithLabelValues("error").Inc()
		return &filter.PersistenceWriteError{Path: s.path(), Step: "serialize", Err: err}
	}

	tmp := s.tmpPath()
	f, err := os.Create(tmp)
	if err != nil {
		metrics.BayesWritesTotal.WithLabelValues("error").Inc()
		return &filter.PersistenceWriteError{Path: s.path(), Step: "create-tmp", Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		metrics.BayesWritesTotal.WithLabelValues("error").Inc()
		return &filter.PersistenceWriteError{Path: s.path(), Step: "write-tmp", Err: err}
	}
	if err := f.Close(); err != nil {
		metrics.BayesWritesTotal.WithLabelValues("error").Inc()
		return &filter.PersistenceWriteError{Path: s.path(), Step: "close-tmp", Err: err}
	}

	if _, err := os.Stat(s.path()); err == nil {
		if err := os.Remove(s.path()); err != nil {
			metrics.BayesWritesTotal.WithLabelValues("error").Inc()
			return &filter.PersistenceWriteError{Path: s.path(), Step: "remove-destination", Err: err}
		}
	}

	if err := os.Rename(tmp, s.path()); err != nil {
		metrics.BayesWritesTotal.WithLabelValues("error").Inc()
		return &filter.PersistenceWriteError{Path: s.path(), Step: "rename", Err: err}
	}

	metrics.BayesWritesTotal.WithLabelValues("ok").Inc()
	s.clearDirty()
	return nil
}
