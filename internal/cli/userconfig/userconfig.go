package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peoplematter/pmctl/internal/cli/session"
)

const (
	configDirName  = "pmctl"
	configFileName = "config.json"
)

// UserConfig represents the user's local configuration stored in ~/.config/pmctl/config.json
type UserConfig struct {
	SelectedServerURL string                      `json:"selected_server_url"`
	Sessions          map[string]session.Snapshot `json:"sessions,omitempty"` // keyed by server URL
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", configDirName)
	return filepath.Join(configDir, configFileName), nil
}

// Load reads the user configuration file
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config doesn't exist, return empty config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &UserConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Create config directory if it doesn't exist
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	// The file holds profile data, keep it private to the user
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetSelectedServer updates the selected server URL and saves the config
func SetSelectedServer(serverURL string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.SelectedServerURL = serverURL
	return Save(cfg)
}

// GetSelectedServer returns the selected server URL, or empty string if not set
func GetSelectedServer() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.SelectedServerURL, nil
}

func sessionKey(serverURL string) string {
	return strings.TrimRight(serverURL, "/")
}

// SaveSession caches the signed-in user for serverURL
func SaveSession(serverURL string, snap session.Snapshot) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	if cfg.Sessions == nil {
		cfg.Sessions = make(map[string]session.Snapshot)
	}
	cfg.Sessions[sessionKey(serverURL)] = snap
	return Save(cfg)
}

// LoadSession returns the cached session for serverURL, or an empty snapshot
func LoadSession(serverURL string) (session.Snapshot, error) {
	cfg, err := Load()
	if err != nil {
		return session.Snapshot{}, err
	}

	return cfg.Sessions[sessionKey(serverURL)], nil
}

// ClearSession drops the cached session for serverURL
func ClearSession(serverURL string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	key := sessionKey(serverURL)
	if _, ok := cfg.Sessions[key]; !ok {
		return nil
	}
	delete(cfg.Sessions, key)
	return Save(cfg)
}

// SessionCache is the per-server session storage used by commands
type SessionCache interface {
	SaveSession(serverURL string, snap session.Snapshot) error
	LoadSession(serverURL string) (session.Snapshot, error)
	ClearSession(serverURL string) error
}

type fileSessionCache struct{}

// Sessions stores sessions in the user config file
var Sessions SessionCache = fileSessionCache{}

func (fileSessionCache) SaveSession(serverURL string, snap session.Snapshot) error {
	return SaveSession(serverURL, snap)
}

func (fileSessionCache) LoadSession(serverURL string) (session.Snapshot, error) {
	return LoadSession(serverURL)
}

func (fileSessionCache) ClearSession(serverURL string) error {
	return ClearSession(serverURL)
}
