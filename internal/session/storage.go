// Package session tracks whether this execution context is logged in. The
// answer is derived from one persisted bearer token and kept in step with
// other processes that share the same storage.
package session

import (
	"errors"
	"fmt"
)

// TokenKey is the storage key of the bearer token
const TokenKey = "token"

// ErrEmptyToken is returned when a login flow tries to persist an empty token
var ErrEmptyToken = errors.New("empty token")

// Storage is the persisted key/value store shared by execution contexts.
//
// Subscribe registers a callback fired when another context may have changed
// the store. The callback carries no data: receivers must re-read. Backends
// may deliver duplicates, may reorder, and may also fire for the caller's own
// writes.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Subscribe(fn func()) (unsubscribe func(), err error)
}

// ReadToken returns the persisted token. Storage errors and empty values
// both read as "no token".
func ReadToken(store Storage) (string, bool) {
	token, ok, err := store.Get(TokenKey)
	if err != nil || !ok || token == "" {
		return "", false
	}
	return token, true
}

// Establish persists a freshly issued token and then marks the holder as
// logged in. This is the tail of every login flow.
func Establish(store Storage, h *Holder, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := store.Set(TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	h.MarkLoggedIn()
	return nil
}
