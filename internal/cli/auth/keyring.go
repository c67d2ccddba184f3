package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/shopdesk-dev/shopdesk/internal/session"
)

const (
	service = "shopdesk-cli"
)

// KeyringStore persists session values in the OS keychain/credential manager.
// Values are namespaced per server so sessions against different servers do
// not overwrite each other.
type KeyringStore struct {
	server string
}

var _ session.Store = (*KeyringStore)(nil)

// NewKeyringStore creates a keyring-backed store for one server
func NewKeyringStore(server string) *KeyringStore {
	return &KeyringStore{server: server}
}

// getKeyringKey returns a unique key for a session value per server
func (s *KeyringStore) getKeyringKey(key string) string {
	return fmt.Sprintf("%s-%s", key, s.server)
}

// Get retrieves a value from the keychain
func (s *KeyringStore) Get(key string) (string, bool, error) {
	value, err := keyring.Get(service, s.getKeyringKey(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a value to the keychain
func (s *KeyringStore) Set(key, value string) error {
	if err := keyring.Set(service, s.getKeyringKey(key), value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Delete removes a value from the keychain
func (s *KeyringStore) Delete(key string) error {
	if err := keyring.Delete(service, s.getKeyringKey(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
