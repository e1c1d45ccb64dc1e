package session

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisStorage_GetSetRemove(t *testing.T) {
	store := NewRedisStorage(newTestRedis(t), "http://localhost:8000", zerolog.Nop())

	_, ok, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(TokenKey, "abc"))
	value, ok, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)

	require.NoError(t, store.Remove(TokenKey))
	_, ok, err = store.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStorage_CrossContextLogout(t *testing.T) {
	client := newTestRedis(t)
	storeA := NewRedisStorage(client, "srv", zerolog.Nop())
	storeB := NewRedisStorage(client, "srv", zerolog.Nop())

	a := NewHolder(storeA, zerolog.Nop())
	defer a.Close()
	b := NewHolder(storeB, zerolog.Nop())
	defer b.Close()

	require.NoError(t, a.Initialize())
	require.NoError(t, b.Initialize())

	require.NoError(t, Establish(storeB, b, "shared"))
	assert.Eventually(t, a.Authenticated, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.MarkLoggedOut())
	assert.Eventually(t, func() bool { return !a.Authenticated() }, 2*time.Second, 10*time.Millisecond)
}

func TestRedisStorage_IgnoresOwnWrites(t *testing.T) {
	store := NewRedisStorage(newTestRedis(t), "srv", zerolog.Nop())

	fired := make(chan struct{}, 4)
	unsubscribe, err := store.Subscribe(func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, store.Set(TokenKey, "mine"))

	select {
	case <-fired:
		t.Fatal("own write must not notify")
	case <-time.After(100 * time.Millisecond):
	}
}
