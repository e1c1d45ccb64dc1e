package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStorage(t *testing.T) {
	keyring.MockInit()

	store := NewKeyringStorage("http://localhost:8000", 10*time.Millisecond)

	_, ok, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(TokenKey, "abc"))
	value, ok, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)

	other := NewKeyringStorage("https://placar.example.com", 10*time.Millisecond)
	_, ok, err = other.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok, "accounts must not share tokens")

	require.NoError(t, store.Remove(TokenKey))
	require.NoError(t, store.Remove(TokenKey))
}

func TestKeyringStorage_PollingNotifies(t *testing.T) {
	keyring.MockInit()

	writer := NewKeyringStorage("http://localhost:8000", 10*time.Millisecond)
	reader := NewKeyringStorage("http://localhost:8000", 10*time.Millisecond)

	fired := make(chan struct{}, 8)
	unsubscribe, err := reader.Subscribe(func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, writer.Set(TokenKey, "abc"))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expected poller to notice the new token")
	}
}
