// Package credential stores IMAP passwords and tokens in the OS keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// DefaultService is the keyring service name used by the command line tool.
const DefaultService = "imapretriever"

// ErrNotFound is returned when no secret is stored for a key.
var ErrNotFound = errors.New("credential: not found")

// Options selects the keyring. Zero values use the platform backends and a
// file fallback under ~/.config/imapretriever/credentials.
type Options struct {
	Service      string
	Backends     []keyring.BackendType
	FileDir      string
	FilePassword string
}

// Store reads and writes secrets keyed by account.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store for opts.
func Open(opts Options) (*Store, error) {
	if opts.Service == "" {
		opts.Service = DefaultService
	}
	if len(opts.Backends) == 0 {
		opts.Backends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		}
	}
	if opts.FileDir == "" {
		opts.FileDir = "~/.config/" + opts.Service + "/credentials"
	}
	if opts.FilePassword == "" {
		opts.FilePassword = opts.Service + "-file-key"
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              opts.Service,
		AllowedBackends:          opts.Backends,
		FileDir:                  opts.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(opts.FilePassword),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// Key builds the keyring key for an account.
func Key(user, host string) string {
	return user + "@" + host
}

// Get returns the secret stored under key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores value under key.
func (s *Store) Set(key string, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "IMAP credential " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes the secret stored under key.
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
