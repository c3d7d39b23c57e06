package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/peoplematter/pmctl/internal/cli/auth"
	"github.com/peoplematter/pmctl/internal/cli/client"
	"github.com/peoplematter/pmctl/internal/cli/config"
	"github.com/peoplematter/pmctl/internal/cli/session"
)

// mockTokenStore is a simple in-memory token store for testing
type mockTokenStore struct {
	tokens map[string]string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{
		tokens: make(map[string]string),
	}
}

func (m *mockTokenStore) SaveToken(serverURL, token string) error {
	m.tokens[serverURL] = token
	return nil
}

func (m *mockTokenStore) LoadToken(serverURL string) (string, error) {
	token, exists := m.tokens[serverURL]
	if !exists {
		return "", auth.ErrNotSignedIn
	}
	return token, nil
}

func (m *mockTokenStore) DeleteToken(serverURL string) error {
	delete(m.tokens, serverURL)
	return nil
}

// memorySessions is an in-memory session cache
type memorySessions struct {
	mu    sync.Mutex
	snaps map[string]session.Snapshot
}

func newMemorySessions() *memorySessions {
	return &memorySessions{snaps: make(map[string]session.Snapshot)}
}

func (m *memorySessions) SaveSession(serverURL string, snap session.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[serverURL] = snap
	return nil
}

func (m *memorySessions) LoadSession(serverURL string) (session.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snaps[serverURL], nil
}

func (m *memorySessions) ClearSession(serverURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, serverURL)
	return nil
}

func (m *memorySessions) get(serverURL string) (session.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[serverURL]
	return snap, ok
}

// mockAPIClient simulates the API client for testing
type mockAPIClient struct {
	shouldFail bool
	email      string
	password   string
	token      string

	jar      string
	checkErr error
	signOuts int
}

func (m *mockAPIClient) SignIn(ctx context.Context, req client.SignInRequest) (*client.User, error) {
	if m.shouldFail || req.Email != m.email || req.Password != m.password {
		return nil, &client.APIError{StatusCode: 401, Message: "invalid credentials"}
	}
	m.jar = m.token
	return &client.User{UserID: "user-123", Email: req.Email, FirstName: "Test", LastName: "User"}, nil
}

func (m *mockAPIClient) SignUp(ctx context.Context, req client.SignUpRequest) (*client.User, error) {
	if req.Email == m.email {
		return nil, &client.APIError{StatusCode: 409, Message: "email not available"}
	}
	m.jar = m.token
	return &client.User{UserID: "user-456", Email: req.Email, Username: req.Username}, nil
}

func (m *mockAPIClient) SignOut(ctx context.Context) error {
	m.signOuts++
	return nil
}

func (m *mockAPIClient) CheckAuth(ctx context.Context) (*client.AuthStatus, error) {
	if m.checkErr != nil {
		return nil, m.checkErr
	}
	return &client.AuthStatus{Authenticated: true}, nil
}

func (m *mockAPIClient) CurrentUser(ctx context.Context) (*client.User, error) {
	return &client.User{UserID: "user-123", Email: m.email}, nil
}

func (m *mockAPIClient) CSRFToken(ctx context.Context) error { return nil }

func (m *mockAPIClient) SessionToken() string { return m.jar }

func (m *mockAPIClient) ClearSession() { m.jar = "" }

// setupTestEnvironment creates a temporary directory with a pmctl.json and an isolated home
func setupTestEnvironment(t *testing.T, servers []config.Server) string {
	t.Helper()

	tempDir := t.TempDir()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("PMCTL_EMAIL", "")
	t.Setenv("PMCTL_PASSWORD", "")

	// nil servers leaves the directory without a pmctl.json
	if servers != nil {
		cfgData, err := json.MarshalIndent(config.Config{Servers: servers}, "", "  ")
		if err != nil {
			t.Fatalf("failed to marshal config: %v", err)
		}

		cfgPath := filepath.Join(tempDir, config.ConfigFileName)
		if err := os.WriteFile(cfgPath, cfgData, 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
	}

	t.Chdir(tempDir)

	prev := serverAlias
	serverAlias = ""
	t.Cleanup(func() { serverAlias = prev })
	nonInteractive(t)

	return tempDir
}

// nonInteractive makes credential prompts behave as if stdin were piped
func nonInteractive(t *testing.T) {
	t.Helper()
	prev := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = prev })
}

// output captures stdout and stderr of a run
type output struct {
	out    bytes.Buffer
	errOut bytes.Buffer
}

func (o *output) option() RunOption {
	return WithOutput(&o.out, &o.errOut)
}

func sessionSnapshot(email string) session.Snapshot {
	now := time.Now()
	return session.Snapshot{User: &client.User{UserID: "1", Email: email}, LastFetch: &now}
}
