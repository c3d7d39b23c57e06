package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	service = "pmctl"
)

// ErrNotSignedIn is returned when no session token is stored for a server
var ErrNotSignedIn = errors.New("not signed in. Please run 'pmctl login' first")

// keyringKey returns the account name the session token for serverURL is stored under
func keyringKey(serverURL string) string {
	return "session-" + strings.TrimRight(serverURL, "/")
}

// SaveToken persists the session token in the OS keychain/credential manager
func SaveToken(serverURL, token string) error {
	if err := keyring.Set(service, keyringKey(serverURL), token); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

// LoadToken retrieves the session token from the OS keychain/credential manager
func LoadToken(serverURL string) (string, error) {
	token, err := keyring.Get(service, keyringKey(serverURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotSignedIn
		}
		return "", fmt.Errorf("failed to load session token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the session token from the OS keychain/credential manager
func DeleteToken(serverURL string) error {
	if err := keyring.Delete(service, keyringKey(serverURL)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}
