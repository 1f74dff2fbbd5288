package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyids/console/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state", "session.json")

	store, err := NewStore(path, logger.NewTestLogger())
	require.NoError(t, err)

	return store
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := NewStore("", logger.NewTestLogger())
	require.Error(t, err)
}

func TestLoadMissingFileYieldsEmptySession(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Session{}, sess)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	store := newTestStore(t)

	want := Session{
		AccessToken:  "eyJ.token",
		Username:     "operator",
		LastDeviceID: 4,
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The file must not be world-readable; it holds a bearer token.
	info, err := os.Stat(store.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(sessionFilePerms), info.Mode().Perm())
}

func TestSaveReplacesPreviousSession(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(Session{AccessToken: "old", LastDeviceID: 1}))
	require.NoError(t, store.Save(Session{Username: "fresh"}))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Session{Username: "fresh"}, got)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(Session{AccessToken: "tok"}))
	require.NoError(t, store.Clear())

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Session{}, sess)

	// Clearing twice is fine.
	require.NoError(t, store.Clear())
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.WriteFile(store.path, []byte("{not json"), 0o600))

	_, err := store.Load()
	require.Error(t, err)
}
