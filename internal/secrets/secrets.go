// Package secrets resolves provider credentials from flags, secret files and
// the OS keyring.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"

	"github.com/opsnotify/notification-hub/internal/debug"
)

// Well-known secret names.
const (
	JiraToken  = "jira_token"
	SlackToken = "slack_token"
)

// ServiceName identifies nhub items in the OS keyring.
const ServiceName = "nhub"

// ErrNotFound is returned when no source holds the requested secret.
var ErrNotFound = errors.New("secret not found")

// Loader looks secrets up in order: a direct value, a file named after the
// secret under Dir, then Keyring. Either source may be left unset.
type Loader struct {
	Dir     string
	Keyring keyring.Keyring
}

// Lookup returns the first non-empty value for name.
func (l *Loader) Lookup(name, direct string) (string, error) {
	if direct != "" {
		return direct, nil
	}

	if l.Dir != "" {
		path := filepath.Join(l.Dir, name)
		data, err := os.ReadFile(path) // #nosec G304 - path is built from the configured secrets dir
		switch {
		case err == nil:
			if v := strings.TrimSpace(string(data)); v != "" {
				debug.Logger().Debug("secret loaded from file", "name", name, "path", path)
				return v, nil
			}
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("read secret %s: %w", name, err)
		}
	}

	if l.Keyring != nil {
		item, err := l.Keyring.Get(name)
		switch {
		case err == nil:
			if v := strings.TrimSpace(string(item.Data)); v != "" {
				debug.Logger().Debug("secret loaded from keyring", "name", name)
				return v, nil
			}
		case !errors.Is(err, keyring.ErrKeyNotFound):
			return "", fmt.Errorf("getting credential %q: %w", name, err)
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Store saves value under name in the keyring.
func (l *Loader) Store(name, value string) error {
	if l.Keyring == nil {
		return errors.New("keyring not enabled")
	}
	if err := l.Keyring.Set(keyring.Item{Key: name, Label: ServiceName + " " + name, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting credential %q: %w", name, err)
	}
	return nil
}

// Remove deletes name from the keyring.
func (l *Loader) Remove(name string) error {
	if l.Keyring == nil {
		return errors.New("keyring not enabled")
	}
	if err := l.Keyring.Remove(name); err != nil {
		return fmt.Errorf("deleting credential %q: %w", name, err)
	}
	return nil
}

// OpenKeyring opens the platform keyring for service. fileDir backs the
// encrypted-file fallback used where no native keyring exists.
func OpenKeyring(service, fileDir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(service + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}
