package bayes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sievemail/spamchain/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadOfMissingFileLogsWarningAndStartsEmpty(t *testing.T) {
	var captured []string
	logger := log.Logger{
		Name: "bayes-test",
		Out:  log.FuncOutput(func(_ time.Time, _ bool, msg string) { captured = append(captured, msg) }, func() error { return nil }),
	}

	s := newStore(t.TempDir(), logger)

	spam, ham := s.totals()
	assert.Zero(t, spam)
	assert.Zero(t, ham)
	require.Len(t, captured, 1, "a missing word database is logged as a warning")
	assert.Contains(t, captured[0], "could not read word database")
}

func TestStoreLoadOfCorruptFileLogsWarningAndStartsEmpty(t *testing.T) {
	var captured []string
	logger := log.Logger{
		Name: "bayes-test",
		Out:  log.FuncOutput(func(_ time.Time, _ bool, msg string) { captured = append(captured, msg) }, func() error { return nil }),
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, wordFileName), []byte("not json"), 0o644))

	s := newStore(dir, logger)

	spam, ham := s.totals()
	assert.Zero(t, spam)
	assert.Zero(t, ham)
	require.Len(t, captured, 1)
	assert.Contains(t, captured[0], "word database is corrupt")
	assert.True(t, strings.HasPrefix(captured[0], "bayes-test: "))
}

func TestStoreWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := newStore(dir, log.Logger{})
	s.applyDelta("prize", true, 3)
	s.applyDelta("prize", false, 1)
	require.NoError(t, s.write())

	reloaded := newStore(dir, log.Logger{})
	entry, ok := reloaded.lookup("prize")
	require.True(t, ok)
	assert.Equal(t, uint64(3), entry.SpamCount)
	assert.Equal(t, uint64(1), entry.HamCount)

	spam, ham := reloaded.totals()
	assert.Equal(t, uint64(3), spam)
	assert.Equal(t, uint64(1), ham)
}
