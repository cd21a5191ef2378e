package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNoSession(t *testing.T) {
	s := newTestStore(t)
	res := s.Validate()
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonNoSession, res.Reason)
}

func TestValidateSuccess(t *testing.T) {
	s := newTestStore(t)
	s.Save(42, "Kim", "07", "tok")

	res := s.Validate()
	require.True(t, res.Valid)
	require.NotNil(t, res.Session)
	assert.Equal(t, int64(42), res.Session.RunID)
}

func TestValidateIdentityMismatchClearsStore(t *testing.T) {
	dir := t.TempDir()
	saver := NewStoreAt(dir, t.TempDir())
	saver.Save(42, "Kim", "07", "tok")

	// A different volatile dir simulates a different client context
	// recomputing its own identity.
	other := NewStoreAt(dir, t.TempDir())
	res := other.Validate()

	assert.False(t, res.Valid)
	assert.Equal(t, ReasonIdentityMismatch, res.Reason)
	_, err := os.Stat(filepath.Join(dir, recordFileName))
	assert.True(t, os.IsNotExist(err), "store must be empty after identity mismatch")
}

func TestValidateExpired(t *testing.T) {
	s := newTestStore(t)
	s.Save(42, "Kim", "07", "tok")

	rec := readRecordFile(t, s)
	rec.LastActivityAt = time.Now().Add(-31 * time.Minute)
	writeRecordFile(t, s, rec)

	res := s.Validate()
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonExpired, res.Reason)
	assert.Nil(t, s.Load())
}

func TestValidateIncomplete(t *testing.T) {
	s := newTestStore(t)
	s.Save(42, "Kim", "07", "")

	res := s.Validate()
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonIncomplete, res.Reason)
}

func TestValidateRepeatable(t *testing.T) {
	s := newTestStore(t)
	s.Save(42, "Kim", "07", "tok")

	for i := 0; i < 3; i++ {
		res := s.Validate()
		assert.True(t, res.Valid, "iteration %d", i)
	}
}
