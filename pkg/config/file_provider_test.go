package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, listen string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen: \""+listen+"\"\n"), 0o600))
}

func newTestProvider(t *testing.T, path string) *FileConfigProvider {
	t.Helper()
	provider, err := NewFileConfigProvider(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestFileConfigProviderInitialLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, ":9001")

	provider := newTestProvider(t, path)
	assert.Equal(t, ":9001", provider.Current().Server.Listen)
}

func TestFileConfigProviderMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	provider := newTestProvider(t, path)
	assert.Equal(t, ":8090", provider.Current().Server.Listen)
}

func TestFileConfigProviderSubscribePrimedWithCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, ":9001")

	provider := newTestProvider(t, path)

	select {
	case cfg := <-provider.Subscribe():
		assert.Equal(t, ":9001", cfg.Server.Listen)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the initial snapshot")
	}
}

func TestFileConfigProviderReloadOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, ":9001")

	provider := newTestProvider(t, path)

	updates := provider.Subscribe()
	<-updates // initial snapshot

	writeConfig(t, path, ":9002")

	select {
	case cfg := <-updates:
		assert.Equal(t, ":9002", cfg.Server.Listen)
	case <-time.After(3 * time.Second):
		t.Fatal("subscriber did not receive the reloaded snapshot")
	}

	assert.Equal(t, ":9002", provider.Current().Server.Listen)
}

func TestFileConfigProviderKeepsSnapshotOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, ":9001")

	provider := newTestProvider(t, path)

	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o600))
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, ":9001", provider.Current().Server.Listen)
}

func TestFileConfigProviderIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, ":9001")

	provider := newTestProvider(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("server:\n  listen: \":1\"\n"), 0o600))
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, ":9001", provider.Current().Server.Listen)
}
