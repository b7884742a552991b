package lock_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/worklist/pkg/worklist/adapter/lock"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

type recordingSink struct {
	warns    []string
	errors   []string
	fatals   []string
	exitCode int
}

func (s *recordingSink) Warn(title, text, detail string)  { s.warns = append(s.warns, detail) }
func (s *recordingSink) Error(title, text, detail string) { s.errors = append(s.errors, detail) }
func (s *recordingSink) Fatal(title, text, detail string, exitCode int) {
	s.fatals = append(s.fatals, detail)
	s.exitCode = exitCode
}

func TestAcquire_WritesPIDAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.lock")

	l, err := lock.Acquire(path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	_, err = lock.Acquire(path)
	require.Error(t, err)
	assert.True(t, exception.IsInstanceConflict(err))
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))

	require.NoError(t, l.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	again, err := lock.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestGuard_ConflictReportsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.lock")
	require.NoError(t, os.WriteFile(path, []byte("4242"), 0o644))

	sink := &recordingSink{}
	ran := false
	err := lock.Guard(path, sink, func() error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, ran)
	require.Len(t, sink.fatals, 1)
	assert.Contains(t, sink.fatals[0], "4242")
	assert.Equal(t, 1, sink.exitCode)
}

func TestGuard_ReportsFailureAndReleases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.lock")
	sink := &recordingSink{}

	err := lock.Guard(path, sink, func() error {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, "lock is held while fn runs")
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	require.Len(t, sink.warns, 1)
	assert.Contains(t, sink.warns[0], "boom")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGuard_UnusableLockPathReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "app.lock")
	sink := &recordingSink{}
	ran := false

	err := lock.Guard(path, sink, func() error {
		ran = true
		return nil
	})

	require.Error(t, err)
	assert.True(t, exception.IsConfig(err))
	assert.False(t, exception.IsInstanceConflict(err))
	assert.False(t, ran)
	assert.Empty(t, sink.fatals)
	require.Len(t, sink.errors, 1)
	assert.Contains(t, sink.errors[0], "cannot create lock file")
}
