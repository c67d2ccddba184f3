package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopdesk-dev/shopdesk/internal/session"
)

// Backend names accepted by SHOPDESK_SESSION_STORE
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

// StoreFactory builds the session store for a server. Commands take one so
// tests can substitute an in-memory store.
type StoreFactory func(server string) (session.Store, error)

// DefaultStoreFactory picks the backend from SHOPDESK_SESSION_STORE (keyring
// unless set to "file").
func DefaultStoreFactory(server string) (session.Store, error) {
	return OpenStore(os.Getenv("SHOPDESK_SESSION_STORE"), server)
}

// OpenStore opens the named backend for server
func OpenStore(backend, server string) (session.Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendKeyring:
		return NewKeyringStore(server), nil
	case BackendFile:
		path, err := DefaultSessionPath(server)
		if err != nil {
			return nil, err
		}
		return NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("unknown session store %q (expected %q or %q)", backend, BackendKeyring, BackendFile)
	}
}
