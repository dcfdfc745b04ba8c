package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasHaas/gorelay/pkg/model"
	"github.com/NicolasHaas/gorelay/pkg/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gorelay.yaml")
	writeFile(t, path, `
host: 0.0.0.0
port: 5555
handshake_timeout: 2s
rooms_file: rooms.yaml
`)

	cfg := DefaultConfig()
	require.NoError(t, LoadConfigFile(path, &cfg))

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 5555, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.HandshakeTimeout)
	assert.Equal(t, "rooms.yaml", cfg.RoomsFile)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, "0.0.0.0:5555", cfg.Address())
}

func TestLoadConfigFileErrors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	writeFile(t, unknown, "prot: 1\n")
	cfg := DefaultConfig()
	assert.Error(t, LoadConfigFile(unknown, &cfg), "unknown keys are rejected")

	assert.Error(t, LoadConfigFile(filepath.Join(dir, "missing.yaml"), &cfg))

	empty := filepath.Join(dir, "empty.yaml")
	writeFile(t, empty, "")
	assert.NoError(t, LoadConfigFile(empty, &cfg))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"ephemeral port", func(c *Config) { c.Port = 0 }, false},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"line limit too small", func(c *Config) { c.MaxLineLength = 10 }, true},
		{"negative timeout", func(c *Config) { c.WriteTimeout = -time.Second }, true},
		{"negative retries", func(c *Config) { c.ListenerRetries = -1 }, true},
		{"watch without file", func(c *Config) { c.WatchRooms = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestImportRoomsFromYAML(t *testing.T) {
	srv := newTestServer(t)

	n, err := srv.ImportRoomsFromYAML([]byte("rooms:\n  - name: lobby\n  - name: games\n    created_by: ops\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"lobby", "games"}, srv.rooms.ListRooms())

	n, err = srv.ImportRoomsFromYAML([]byte("rooms:\n  - name: lobby\n  - name: music\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "existing rooms are skipped")

	saved, err := srv.catalog.ListRooms()
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, "ops", saved[1].CreatedBy)

	_, err = srv.ImportRoomsFromYAML([]byte("rooms:\n  - name: two words\n"))
	assert.Error(t, err)
	_, err = srv.ImportRoomsFromYAML([]byte("rooms: [unterminated"))
	assert.Error(t, err)
}

func TestExportRoomsYAML(t *testing.T) {
	catalog := store.NewMemory()
	require.NoError(t, catalog.SaveRoom(modelRoom("lobby", "alice")))
	require.NoError(t, catalog.SaveRoom(modelRoom("games", "")))

	data, err := ExportRoomsYAML(catalog)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: lobby")
	assert.Contains(t, string(data), "created_by: alice")

	rooms, err := ParseRoomsYAML(data)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "alice", rooms[0].CreatedBy)
}

func TestListenProvisionsRooms(t *testing.T) {
	catalog := store.NewMemory()
	require.NoError(t, catalog.SaveRoom(modelRoom("archive", "bob")))

	roomsFile := filepath.Join(t.TempDir(), "rooms.yaml")
	writeFile(t, roomsFile, "rooms:\n  - name: lobby\n  - name: archive\n")

	cfg := testConfig()
	cfg.RoomsFile = roomsFile
	srv := startServer(t, cfg, Dependencies{Catalog: catalog})

	assert.Equal(t, []string{"archive", "lobby"}, srv.rooms.ListRooms())
	saved, err := catalog.ListRooms()
	require.NoError(t, err)
	assert.Len(t, saved, 2, "rooms from the file are recorded in the catalog")
}

func TestWatchRoomsFile(t *testing.T) {
	dir := t.TempDir()
	roomsFile := filepath.Join(dir, "rooms.yaml")
	writeFile(t, roomsFile, "rooms:\n  - name: lobby\n")

	cfg := DefaultConfig()
	cfg.RoomsFile = roomsFile
	cfg.WatchRooms = true
	srv := New(cfg, Dependencies{Clock: fixedClock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.watchRoomsFile(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	// rewrite until the watcher is registered and picks the change up
	require.Eventually(t, func() bool {
		_ = os.WriteFile(roomsFile, []byte("rooms:\n  - name: lobby\n  - name: late\n"), 0o600)
		return srv.rooms.Exists("late")
	}, 5*time.Second, 50*time.Millisecond)
	assert.True(t, srv.rooms.Exists("lobby"))
}

func modelRoom(name, by string) model.Room {
	return model.Room{Name: name, CreatedBy: by}
}
