package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "prefs.json"))
	require.NoError(t, err)
	_, ok := s.Get("anything")
	assert.False(t, ok)
}

func TestSetGetDelete_RoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("memo_ai_selected_model", "openai/gpt-4o"))

	reopened, err := Open(path)
	require.NoError(t, err)
	v, ok := reopened.Get("memo_ai_selected_model")
	require.True(t, ok)
	assert.Equal(t, "openai/gpt-4o", v)

	require.NoError(t, reopened.Delete("memo_ai_selected_model"))
	again, err := Open(path)
	require.NoError(t, err)
	_, ok = again.Get("memo_ai_selected_model")
	assert.False(t, ok)
}

func TestDelete_AbsentKeyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Delete("missing"))

	// nothing persisted for a no-op delete
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestPersist_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "prefs.json"))
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "prefs.json", entries[0].Name())
}
