package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_GetSetRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "placar")
	store, err := NewFileStorage(dir, zerolog.Nop())
	require.NoError(t, err)

	_, ok, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(TokenKey, "abc.def.ghi"))
	value, ok, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", value)

	info, err := os.Stat(filepath.Join(dir, TokenKey))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Remove(TokenKey))
	require.NoError(t, store.Remove(TokenKey), "removing twice is fine")

	_, ok, err = store.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStorage_TrimsTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStorage(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, TokenKey), []byte("hand-edited\n"), 0o600))

	value, ok, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hand-edited", value)
}

func TestFileStorage_RejectsPathKeys(t *testing.T) {
	store, err := NewFileStorage(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	for _, key := range []string{"", "../token", "a/b", ".hidden"} {
		assert.Error(t, store.Set(key, "x"), "key %q", key)
	}
}

// Two processes pointed at the same directory, simulated with two storages.
func TestFileStorage_CrossProcessLogout(t *testing.T) {
	dir := t.TempDir()

	storeA, err := NewFileStorage(dir, zerolog.Nop())
	require.NoError(t, err)
	storeB, err := NewFileStorage(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, storeB.Set(TokenKey, "shared"))

	a := NewHolder(storeA, zerolog.Nop())
	defer a.Close()
	b := NewHolder(storeB, zerolog.Nop())
	defer b.Close()

	require.NoError(t, a.Initialize())
	require.NoError(t, b.Initialize())
	require.True(t, a.Authenticated())

	require.NoError(t, b.MarkLoggedOut())

	assert.Eventually(t, func() bool { return !a.Authenticated() }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, Establish(storeB, b, "again"))
	assert.Eventually(t, a.Authenticated, 2*time.Second, 10*time.Millisecond)
}

func TestFileStorage_UnsubscribeStopsWatcher(t *testing.T) {
	store, err := NewFileStorage(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	fired := make(chan struct{}, 16)
	unsubscribe, err := store.Subscribe(func() { fired <- struct{}{} })
	require.NoError(t, err)

	require.NoError(t, store.Set(TokenKey, "x"))
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}

	unsubscribe()
	unsubscribe()

	store.mu.Lock()
	assert.Nil(t, store.watcher)
	store.mu.Unlock()
}
