package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare host", raw: "pm.example.com", want: "https://pm.example.com"},
		{name: "host and port", raw: "localhost:8080", want: "https://localhost:8080"},
		{name: "http kept", raw: "http://127.0.0.1:3000/", want: "http://127.0.0.1:3000"},
		{name: "whitespace", raw: "  https://pm.example.com  ", want: "https://pm.example.com"},
		{name: "empty", raw: "", wantErr: true},
		{name: "bad scheme", raw: "ftp://pm.example.com", wantErr: true},
		{name: "no host", raw: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg := &Config{Servers: []Server{
		{URL: "https://pm.example.com", Alias: "server-1"},
		{URL: "https://staging.example.com", Alias: "staging"},
	}}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	require.ErrorContains(t, err, "failed to parse config file")
}

func TestFindConfigFile_SearchesParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, Save(filepath.Join(root, ConfigFileName), &Config{}))

	t.Chdir(nested)

	path, err := FindConfigFile()
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(root, ConfigFileName))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestFindConfigFile_Missing(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := FindConfigFile()
	require.ErrorContains(t, err, "pmctl.json not found")
}

func TestLookups(t *testing.T) {
	cfg := &Config{Servers: []Server{
		{URL: "https://pm.example.com", Alias: "production"},
		{URL: "https://staging.example.com", Alias: "staging"},
	}}

	s, err := cfg.GetServerByAlias("staging")
	require.NoError(t, err)
	require.Equal(t, "https://staging.example.com", s.URL)

	_, err = cfg.GetServerByAlias("nope")
	require.Error(t, err)

	s, err = cfg.GetServerByURL("https://pm.example.com/")
	require.NoError(t, err)
	require.Equal(t, "production", s.Alias)

	s, err = cfg.GetDefaultServer()
	require.NoError(t, err)
	require.Equal(t, "production", s.Alias)

	_, err = (&Config{}).GetDefaultServer()
	require.ErrorContains(t, err, "no servers configured")

	require.Equal(t, "production (https://pm.example.com)", cfg.Servers[0].Label())
}

func TestGetServerByAlias_ReturnsElementPointer(t *testing.T) {
	cfg := &Config{Servers: []Server{{URL: "https://a", Alias: "a"}}}

	s, err := cfg.GetServerByAlias("a")
	require.NoError(t, err)
	s.URL = "https://b"
	require.Equal(t, "https://b", cfg.Servers[0].URL)
}
