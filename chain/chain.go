// Package chain implements the filter-chain engine: an ordered pipeline of
// filter.Filter instances, verdict combination, and the two-phase
// (immediate/async) evaluation protocol from spec.md §4.5.
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/sievemail/spamchain/filter"
	"github.com/sievemail/spamchain/log"
	"github.com/sievemail/spamchain/metrics"
)

// OnImmediate is invoked synchronously, once, with the combined immediate
// verdict, before Submit returns.
type OnImmediate func(v filter.Verdict)

// OnAsync is invoked from the background task, at most once, only when the
// combined async verdict differs from the immediate one.
type OnAsync func(v filter.Verdict)

// Chain owns an ordered sequence of filter instances. Chain state is
// confined to one goroutine by convention (spec.md §5): only Submit's
// background phase runs concurrently with the caller, and it never mutates
// the filter slice itself.
type Chain struct {
	filters []filter.Filter
	spawner TaskSpawner
	logger  log.Logger
}

// New builds a Chain over filters, in the given order. The order is
// significant: it is the order Immediate/Async/Classify are called in, and
// it is what AMNESTY/BLOCK short-circuiting iterates over (though per
// spec.md §8, reordering never changes the *result* when AMNESTY or BLOCK
// is present — only which filter's side effects run first).
func New(filters []filter.Filter) *Chain {
	return &Chain{
		filters: filters,
		spawner: NewGoroutineSpawner(),
		logger:  log.Logger{Name: "chain"},
	}
}

// WithSpawner overrides the default goroutine-based TaskSpawner, e.g. so
// tests can run the async phase synchronously.
func (c *Chain) WithSpawner(s TaskSpawner) *Chain {
	c.spawner = s
	return c
}

// WithLogger overrides the Chain's logger.
func (c *Chain) WithLogger(l log.Logger) *Chain {
	c.logger = l
	return c
}

// Filters returns the chain's filters in order. The returned slice must not
// be mutated by the caller.
func (c *Chain) Filters() []filter.Filter {
	return c.filters
}

// Submit runs the two-phase evaluation protocol of spec.md §4.5.2 for msg.
//
//  1. The immediate verdict is computed by calling every filter's Immediate
//     method in order and combining the results (immediateCombine). It is
//     delivered to onImmediate before Submit returns.
//  2. A background task is spawned. If the immediate verdict was AMNESTY or
//     BLOCK, the async verdict is defined to equal it without calling any
//     filter's Async method. Otherwise every filter's Async method is
//     called in order and combined starting from the immediate verdict
//     (asyncCombine).
//  3. If the async verdict differs from the immediate one, onAsync is
//     invoked with it.
//  4. Every filter's Classify method is called with the final combined
//     verdict as the ground-truth label (REVOKE or BLOCK means spam).
//
// Submit returns a TaskHandle for the background task; callers that don't
// need to observe its completion may discard it.
func (c *Chain) Submit(ctx context.Context, msg filter.Message, onImmediate OnImmediate, onAsync OnAsync) TaskHandle {
	if ctx == nil {
		ctx = context.Background()
	}

	immediateVerdicts := make([]filter.Verdict, len(c.filters))
	for i, f := range c.filters {
		immediateVerdicts[i] = f.Immediate(msg)
	}
	immediate := immediateCombine(immediateVerdicts)
	metrics.VerdictsTotal.WithLabelValues("immediate", immediate.String()).Inc()

	if onImmediate != nil {
		onImmediate(immediate)
	}

	return c.spawner.Spawn(ctx, func(ctx context.Context) error {
		final := c.runAsyncPhase(ctx, msg, immediate)

		metrics.VerdictsTotal.WithLabelValues("async", final.String()).Inc()
		if final != immediate && onAsync != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						asyncErr := &filter.AsyncClassifyError{Filter: "on_async", Err: fmt.Errorf("callback panicked: %v", r)}
						c.logger.Error("async callback failed", asyncErr, filter.Fields)
					}
				}()
				onAsync(final)
			}()
		}

		isSpam := final == filter.REVOKE || final == filter.BLOCK
		for _, f := range c.filters {
			c.classifyOne(f, msg, isSpam)
		}
		return nil
	})
}

// runAsyncPhase computes the async-phase verdict, tracking the best verdict
// actually computed so far so that a panicking or erroring filter degrades
// gracefully to that value instead of aborting the phase — spec.md's Open
// Question resolution: "the best verdict actually computed, defaulting to
// the immediate one on failure."
func (c *Chain) runAsyncPhase(ctx context.Context, msg filter.Message, immediate filter.Verdict) filter.Verdict {
	if immediate == filter.AMNESTY || immediate == filter.BLOCK {
		return immediate
	}

	best := immediate
	for _, f := range c.filters {
		v, err := c.asyncOne(ctx, f, msg)
		if err != nil {
			asyncErr := &filter.AsyncClassifyError{Filter: f.ID(), Err: err}
			c.logger.Error("async check failed", asyncErr, filter.Fields)
			continue
		}
		best = asyncCombine(best, []filter.Verdict{v})
		if best == filter.AMNESTY || best == filter.BLOCK {
			break
		}
	}
	return best
}

func (c *Chain) asyncOne(ctx context.Context, f filter.Filter, msg filter.Message) (v filter.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = filter.PASS
			err = &filter.AsyncClassifyError{Filter: f.ID()}
		}
	}()
	_ = ctx
	return f.Async(msg), nil
}

func (c *Chain) classifyOne(f filter.Filter, msg filter.Message, isSpam bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("classify panicked in filter %q: %v", f.ID(), r)
		}
	}()
	f.Classify(msg, isSpam, false)

	label := "ham"
	if isSpam {
		label = "spam"
	}
	metrics.ClassifyTotal.WithLabelValues(f.ID(), label).Inc()
}

// Declassify reverses a previous Classify(msg, isSpam) call on every filter
// in the chain, per spec.md §6's "directly invoke classify, declassify,
// reset_classification on the chain."
func (c *Chain) Declassify(msg filter.Message, isSpam bool) {
	for _, f := range c.filters {
		f.Classify(msg, isSpam, true)
	}
}

// Classify trains every filter in the chain directly with an
// operator-supplied label, bypassing the chain's own verdict — for
// applications that prefer ground truth over the chain's equilibrium (see
// spec.md §4.5.2's rationale note).
func (c *Chain) Classify(msg filter.Message, isSpam bool) {
	for _, f := range c.filters {
		c.classifyOne(f, msg, isSpam)
	}
}

// ResetClassification clears every filter's learned state.
func (c *Chain) ResetClassification() {
	for _, f := range c.filters {
		f.Reset()
	}
}

// SubmitSync runs Submit's protocol but blocks until the async phase has
// completed before returning, for tests and simple embedders that don't
// need overlapping submissions. It still respects a 30s ceiling so a
// misbehaving filter cannot hang the caller forever.
func (c *Chain) SubmitSync(msg filter.Message, onImmediate OnImmediate, onAsync OnAsync) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	handle := c.Submit(ctx, msg, onImmediate, onAsync)
	done := make(chan error, 1)
	go func() { done <- handle.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
