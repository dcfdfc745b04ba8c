package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/gorelay/pkg/model"
	"github.com/NicolasHaas/gorelay/pkg/store"
)

// RoomYAML represents a room in YAML config.
type RoomYAML struct {
	Name      string `yaml:"name"`
	CreatedBy string `yaml:"created_by,omitempty"`
}

// RoomsConfig is the top-level YAML config for rooms.
type RoomsConfig struct {
	Rooms []RoomYAML `yaml:"rooms"`
}

// LoadConfigFile overlays the settings in a YAML file onto cfg. Keys absent
// from the file keep their current values; unknown keys are an error.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI flag
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ParseRoomsYAML decodes a rooms file and validates every name.
func ParseRoomsYAML(data []byte) ([]model.Room, error) {
	var cfg RoomsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rooms config: %w", err)
	}
	rooms := make([]model.Room, 0, len(cfg.Rooms))
	for i, r := range cfg.Rooms {
		if err := model.ValidateRoomName(r.Name); err != nil {
			return nil, fmt.Errorf("parse rooms config: entry %d: %w", i+1, err)
		}
		rooms = append(rooms, model.Room{Name: r.Name, CreatedBy: r.CreatedBy})
	}
	return rooms, nil
}

// ImportRoomsFromYAML creates every room in data that does not exist yet and
// returns how many were created.
func (s *Server) ImportRoomsFromYAML(data []byte) (int, error) {
	rooms, err := ParseRoomsYAML(data)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, r := range rooms {
		meta, err := s.rooms.CreateRoom(r.Name, nil)
		if err != nil {
			continue // already exists
		}
		meta.CreatedBy = r.CreatedBy
		s.metrics.RoomsCreated.Add(1)
		s.persistRoom(meta)
		slog.Debug("created room from config", "room", r.Name)
		created++
	}
	slog.Info("imported rooms from YAML", "count", len(rooms), "created", created)
	return created, nil
}

// LoadRoomsFile reads a rooms YAML file and imports it.
func (s *Server) LoadRoomsFile(path string) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return 0, fmt.Errorf("read rooms config: %w", err)
	}
	return s.ImportRoomsFromYAML(data)
}

// ExportRoomsYAML renders the rooms recorded in a catalog as a rooms file.
func ExportRoomsYAML(catalog store.RoomCatalog) ([]byte, error) {
	rooms, err := catalog.ListRooms()
	if err != nil {
		return nil, err
	}
	cfg := RoomsConfig{Rooms: make([]RoomYAML, 0, len(rooms))}
	for _, r := range rooms {
		cfg.Rooms = append(cfg.Rooms, RoomYAML{Name: r.Name, CreatedBy: r.CreatedBy})
	}
	return yaml.Marshal(&cfg)
}

// provisionRooms restores the catalog's rooms, then imports the rooms file.
// Failures are logged; the server still starts.
func (s *Server) provisionRooms() {
	if s.catalog != nil {
		rooms, err := s.catalog.ListRooms()
		if err != nil {
			slog.Error("failed to load room catalog", "err", err)
		}
		restored := 0
		for _, r := range rooms {
			if s.rooms.Restore(r) {
				restored++
			}
		}
		if restored > 0 {
			slog.Info("restored rooms from catalog", "count", restored)
		}
	}

	if s.cfg.RoomsFile != "" {
		if _, err := s.LoadRoomsFile(s.cfg.RoomsFile); err != nil {
			slog.Error("failed to load rooms config", "err", err)
		}
	}
}
