package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirsLinux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name     string
		resolve  func() (string, error)
		xdgVar   string
		xdgValue string
		want     string
	}{
		{"config honors XDG_CONFIG_HOME", DefaultConfigDir,
			"XDG_CONFIG_HOME", "/tmp/xdg-config", "/tmp/xdg-config/shelf"},
		{"config falls back to ~/.config", DefaultConfigDir,
			"XDG_CONFIG_HOME", "", filepath.Join(home, ".config", "shelf")},
		{"data honors XDG_DATA_HOME", DefaultDataDir,
			"XDG_DATA_HOME", "/tmp/xdg-data", "/tmp/xdg-data/shelf"},
		{"data falls back to ~/.local/share", DefaultDataDir,
			"XDG_DATA_HOME", "", filepath.Join(home, ".local", "share", "shelf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.xdgVar, tt.xdgValue)
			got, err := tt.resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultDirsShareBaseOffLinux(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Skip("covers the non-linux single-base behavior")
	}
	cfg, err := DefaultConfigDir()
	require.NoError(t, err)
	data, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, cfg, data, "shelf keeps one per-user base outside Linux")
}

func TestResolveDataDirPrecedence(t *testing.T) {
	t.Setenv(EnvDataDir, "/tmp/env-data")

	tests := []struct {
		name        string
		flag        string
		configValue string
		want        string
	}{
		{"flag wins", "/tmp/flag-data", "/tmp/config-data", "/tmp/flag-data"},
		{"config value beats env", "", "/tmp/config-data", "/tmp/config-data"},
		{"env beats default", "", "", "/tmp/env-data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDataDir(tt.flag, tt.configValue)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveConfigDirPrecedence(t *testing.T) {
	t.Setenv(EnvConfigDir, "/tmp/env-config")

	got, err := ResolveConfigDir("/tmp/flag-config")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/flag-config", got)

	got, err = ResolveConfigDir("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-config", got)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	want, err := DefaultDataDir()
	require.NoError(t, err)

	got, err := ResolveDataDir("", "")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
