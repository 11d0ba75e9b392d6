package bayes

import (
	"sync"
	"time"

	"github.com/sievemail/spamchain/filter"
	"github.com/sievemail/spamchain/log"
)

// Timer is the single-shot rearmable timer collaborator spec.md §6 names for
// the Bayesian filter's debounced persistence (create_timer/rearm). It is
// defined here rather than in package chain because it is only ever needed
// by debouncedWriter below.
type Timer interface {
	// Rearm (re)schedules fn to run once, delay from now, cancelling any
	// previously scheduled firing.
	Rearm(delay time.Duration, fn func())
	// Stop cancels any pending firing.
	Stop()
}

// stdTimer is the default Timer, backed by time.AfterFunc.
type stdTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

func newStdTimer() *stdTimer {
	return &stdTimer{}
}

func (t *stdTimer) Rearm(delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(delay, fn)
}

func (t *stdTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

// writerState is the four-state debounce machine from spec.md §4.4.4/§9:
// a write is never issued more than once per debounceDelay, and a mutation
// that arrives while a write is in flight is not lost, it re-arms for
// another round once the in-flight write finishes.
type writerState int

const (
	stateIdle writerState = iota
	stateArmed
	stateWriting
	stateWritingAndArmed
)

const debounceDelay = time.Second

// debouncedWriter coalesces bursts of store mutations into one disk write
// per debounceDelay, per spec.md §4.4.4. It is driven entirely by Notify,
// called after every classify/declassify/reset that leaves the store dirty.
type debouncedWriter struct {
	mu    sync.Mutex
	state writerState

	store  *store
	timer  Timer
	logger log.Logger
}

func newDebouncedWriter(s *store, logger log.Logger) *debouncedWriter {
	return &debouncedWriter{
		store:  s,
		timer:  newStdTimer(),
		logger: logger,
	}
}

// Notify arms the debounce timer. If a write is already in flight, the
// mutation is remembered (WritingAndArmed) so another write follows the
// current one instead of being silently dropped.
func (w *debouncedWriter) Notify() {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case stateIdle, stateArmed:
		w.state = stateArmed
		w.timer.Rearm(debounceDelay, w.fire)
	case stateWriting:
		w.state = stateWritingAndArmed
	case stateWritingAndArmed:
		// already armed for another round
	}
}

// fire runs on the timer goroutine once the debounce delay elapses.
func (w *debouncedWriter) fire() {
	w.mu.Lock()
	if w.state != stateArmed {
		w.mu.Unlock()
		return
	}
	w.state = stateWriting
	w.mu.Unlock()

	if err := w.store.write(); err != nil {
		w.logger.Error("failed to persist word database", err, filter.Fields)
	}

	w.mu.Lock()
	rearm := w.state == stateWritingAndArmed
	w.state = stateIdle
	w.mu.Unlock()

	if rearm {
		w.Notify()
	}
}

// Flush forces an immediate synchronous write regardless of debounce state,
// for callers that need a final durable snapshot (e.g. on shutdown).
func (w *debouncedWriter) Flush() error {
	w.timer.Stop()
	w.mu.Lock()
	w.state = stateIdle
	w.mu.Unlock()
	return w.store.write()
}
