package bayes

import (
	"testing"

	"github.com/sievemail/spamchain/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilter(t *testing.T) *Filter {
	t.Helper()
	return New("bayes", t.TempDir())
}

func TestBayesFreshFilterAlwaysPasses(t *testing.T) {
	f := newFilter(t)
	msg := filter.Message{Body: []byte("anything at all")}
	assert.Equal(t, filter.PASS, f.Immediate(msg))
}

func TestBayesLearnsAndScoresSpam(t *testing.T) {
	f := newFilter(t)
	spam := filter.Message{Body: []byte("free viagra lottery winner claim prize now")}
	ham := filter.Message{Body: []byte("let's meet for lunch tomorrow at noon")}

	for i := 0; i < 20; i++ {
		f.Classify(spam, true, false)
		f.Classify(ham, false, false)
	}

	assert.Equal(t, filter.REVOKE, f.Immediate(spam))
	assert.Equal(t, filter.PASS, f.Immediate(ham))
}

func TestBayesAsyncAlwaysPasses(t *testing.T) {
	f := newFilter(t)
	assert.Equal(t, filter.PASS, f.Async(filter.Message{Body: []byte("free viagra")}))
}

func TestBayesResetReturnsToNeutral(t *testing.T) {
	f := newFilter(t)
	spam := filter.Message{Body: []byte("free viagra lottery winner claim prize now")}
	ham := filter.Message{Body: []byte("let's meet for lunch tomorrow at noon")}
	// Both totals must be non-zero: with no ham at all, every word's ham
	// probability is bias/0 = +Inf and the score collapses to PASS.
	for i := 0; i < 20; i++ {
		f.Classify(spam, true, false)
		f.Classify(ham, false, false)
	}
	require.Equal(t, filter.REVOKE, f.Immediate(spam))

	f.Reset()
	assert.Equal(t, filter.PASS, f.Immediate(spam))
}

func TestBayesClassifyDeclassifyInverse(t *testing.T) {
	f := newFilter(t)
	msg := filter.Message{Body: []byte("free viagra lottery winner")}

	f.Classify(msg, true, false)
	before, _ := f.store.totals()

	f.Classify(msg, true, false)
	f.Classify(msg, true, true)
	after, _ := f.store.totals()

	assert.Equal(t, before, after)
}

func TestBayesDedupesRepeatedTokensPerMessage(t *testing.T) {
	f := newFilter(t)
	msg := filter.Message{Body: []byte("spam spam spam spam")}

	f.Classify(msg, true, false)

	entry, ok := f.store.lookup("spam")
	require.True(t, ok)
	assert.Equal(t, uint64(1), entry.SpamCount)
}

func TestBayesUndoBelowZeroLeavesCounterAtZero(t *testing.T) {
	f := newFilter(t)
	msg := filter.Message{Body: []byte("hello")}

	f.Classify(msg, true, true)

	entry, ok := f.store.lookup("hello")
	require.True(t, ok)
	assert.Equal(t, uint64(0), entry.SpamCount)
}

func TestBayesPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	f := New("bayes", dir)
	msg := filter.Message{Body: []byte("free viagra lottery winner claim prize now")}
	ham := filter.Message{Body: []byte("let's meet for lunch tomorrow at noon")}
	for i := 0; i < 20; i++ {
		f.Classify(msg, true, false)
		f.Classify(ham, false, false)
	}
	require.NoError(t, f.Flush())

	f2 := New("bayes", dir)
	assert.Equal(t, filter.REVOKE, f2.Immediate(msg))
}

func TestBayesApplyAndGetSettingsAreNoOps(t *testing.T) {
	f := newFilter(t)
	require.NoError(t, f.ApplySettings([]byte(`{"anything":"here"}`)))
	raw, err := f.GetSettings()
	require.NoError(t, err)
	assert.Nil(t, raw)
}
