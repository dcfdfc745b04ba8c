package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasHaas/gorelay/pkg/model"
	"github.com/NicolasHaas/gorelay/pkg/server"
	"github.com/NicolasHaas/gorelay/pkg/store"
	"github.com/NicolasHaas/gorelay/pkg/version"
)

// execute runs the command tree with args and returns the config the server
// would have been started with.
func execute(t *testing.T, args ...string) (server.Config, string, error) {
	t.Helper()
	var got server.Config
	cmd := newRootCmd(func(_ context.Context, cfg server.Config) error {
		got = cfg
		return nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return got, out.String(), err
}

func TestDefaults(t *testing.T) {
	cfg, _, err := execute(t)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:44444", cfg.Address())
	assert.Empty(t, cfg.HTTPAddr)
	assert.Empty(t, cfg.DBPath)
}

func TestPositionalHostAndPort(t *testing.T) {
	cfg, _, err := execute(t, "0.0.0.0", "6000")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:6000", cfg.Address())

	cfg, _, err = execute(t, "localhost")
	require.NoError(t, err)
	assert.Equal(t, "localhost:44444", cfg.Address())

	_, _, err = execute(t, "localhost", "not-a-port")
	assert.ErrorContains(t, err, "invalid port")

	_, _, err = execute(t, "a", "1", "extra")
	assert.Error(t, err)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gorelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 7000
http_addr: 127.0.0.1:9000
write_timeout: 3s
log_level: warn
`), 0o600))

	cfg, _, err := execute(t, "--config", path, "--http", "127.0.0.1:9100", "--rooms-file", "rooms.yaml", "--watch-rooms")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port, "file value kept")
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9100", cfg.HTTPAddr, "flag wins over file")
	assert.Equal(t, "rooms.yaml", cfg.RoomsFile)
	assert.True(t, cfg.WatchRooms)
}

func TestInvalidSettingsAreRejected(t *testing.T) {
	_, _, err := execute(t, "--log-level", "loud")
	assert.Error(t, err)

	_, _, err = execute(t, "--watch-rooms")
	assert.Error(t, err, "watching needs a rooms file")

	_, _, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestVersionFlag(t *testing.T) {
	_, out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Full())
}

func TestExportRooms(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "gorelay.db")
	st, err := store.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.SaveRoom(model.Room{Name: "lobby", CreatedBy: "alice"}))
	require.NoError(t, st.SaveRoom(model.Room{Name: "games"}))
	require.NoError(t, st.Close())

	_, out, err := execute(t, "export-rooms", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "name: lobby")
	assert.Contains(t, out, "created_by: alice")
	assert.Contains(t, out, "name: games")

	_, _, err = execute(t, "export-rooms")
	assert.ErrorContains(t, err, "requires --db")
}
