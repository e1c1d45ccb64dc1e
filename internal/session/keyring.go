package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	keyringService      = "placar-cli"
	defaultPollInterval = 2 * time.Second
)

// KeyringStorage keeps values in the OS keychain or credential manager.
// The keychain has no change feed, so Subscribe polls the token entry.
type KeyringStorage struct {
	service  string
	account  string
	interval time.Duration
}

// NewKeyringStorage scopes entries to account, usually the server URL, so
// sessions against different servers do not collide.
func NewKeyringStorage(account string, interval time.Duration) *KeyringStorage {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &KeyringStorage{
		service:  keyringService,
		account:  account,
		interval: interval,
	}
}

func (k *KeyringStorage) user(key string) string {
	return fmt.Sprintf("%s-%s", key, k.account)
}

func (k *KeyringStorage) Get(key string) (string, bool, error) {
	value, err := keyring.Get(k.service, k.user(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, true, nil
}

func (k *KeyringStorage) Set(key, value string) error {
	if err := keyring.Set(k.service, k.user(key), value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (k *KeyringStorage) Remove(key string) error {
	if err := keyring.Delete(k.service, k.user(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (k *KeyringStorage) Subscribe(fn func()) (func(), error) {
	return poll(k, []string{TokenKey}, k.interval, fn), nil
}
