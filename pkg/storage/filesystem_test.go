package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveStreamWithinLimit(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	n, err := store.SaveStream("a/grades.csv", strings.NewReader("student_id,grade\n"), 64)
	require.NoError(t, err)
	assert.EqualValues(t, 17, n)

	data, err := os.ReadFile(store.Path("a/grades.csv"))
	require.NoError(t, err)
	assert.Equal(t, "student_id,grade\n", string(data))
}

func TestSaveStreamTooLarge(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveStream("big.csv", strings.NewReader(strings.Repeat("x", 11)), 10)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.NoFileExists(t, store.Path("big.csv"))
}

func TestResolveStaysInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "etc", "passwd"), store.Path("../../etc/passwd"))
	assert.Equal(t, filepath.Join(dir, "x.csv"), store.Path("/x.csv"))
}

func TestDeleteMissingIsNoop(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Delete("nope.csv"))
}

func TestCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("old.csv", []byte("1"))
	require.NoError(t, err)
	_, err = store.Save("fresh.csv", []byte("2"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)
	assert.FileExists(t, store.Path("fresh.csv"))
}
