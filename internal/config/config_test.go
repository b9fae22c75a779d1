package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9470", cfg.Node.Listen)
	assert.Equal(t, 5*time.Second, cfg.Node.SealInterval)
	assert.Equal(t, "localfs", cfg.Archive.Backend)
	assert.Equal(t, "blocks", cfg.Archive.Options["dir"])
	assert.Equal(t, "state.db", cfg.State.Path)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
node:
  listen: "0.0.0.0:7000"
  sealInterval: 2s
  mempoolLimit: 16
archive:
  backend: memory
  mirrorDir: /var/lib/poe/mirror
state:
  path: /var/lib/poe/state.db
genesis:
  accounts:
    - account: "ed25519:AAAA"
      balance: 100
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Node.Listen)
	assert.Equal(t, 2*time.Second, cfg.Node.SealInterval)
	assert.Equal(t, 16, cfg.Node.MempoolLimit)
	assert.Equal(t, "memory", cfg.Archive.Backend)
	assert.Equal(t, "/var/lib/poe/mirror", cfg.Archive.MirrorDir)
	assert.Equal(t, "/var/lib/poe/state.db", cfg.State.Path)
	require.Len(t, cfg.Genesis.Accounts, 1)
	assert.Equal(t, "ed25519:AAAA", cfg.Genesis.Accounts[0].Account)
	assert.Equal(t, uint64(100), cfg.Genesis.Accounts[0].Balance)
}
