// Package store provides SQLite-backed persistence for the room catalog.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NicolasHaas/gorelay/pkg/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// Store is the SQLite RoomCatalog.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}

	// one connection, so the pragmas below hold for every statement
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		// avoid "database is locked" when rooms are created concurrently
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.ensureSchemaMigrations(ctx); err != nil {
		return err
	}
	currentVersion, err := s.getSchemaVersion(ctx)
	if err != nil {
		return err
	}

	migrations := []struct {
		version    int
		statements []string
	}{
		{
			version: 1,
			statements: []string{`
			CREATE TABLE IF NOT EXISTS rooms (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				name       TEXT    NOT NULL UNIQUE CHECK(length(name) > 0),
				created_by TEXT    NOT NULL DEFAULT '',
				created_at TEXT    NOT NULL DEFAULT (datetime('now'))
			)`},
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("store: migrate v%d: %w", m.version, err)
			}
		}
		if _, err := s.db.ExecContext(ctx, "UPDATE schema_migrations SET version = ?", m.version); err != nil {
			return fmt.Errorf("store: set schema version: %w", err)
		}
	}
	return nil
}

func (s *Store) ensureSchemaMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("store: create schema_migrations: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return fmt.Errorf("store: check schema_migrations: %w", err)
	}
	if count == 0 {
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (0)"); err != nil {
			return fmt.Errorf("store: init schema_migrations: %w", err)
		}
	}
	return nil
}

func (s *Store) getSchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("store: read schema version: %w", err)
	}
	return version, nil
}

func formatDBTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func parseDBTime(value string) (time.Time, error) {
	return time.ParseInLocation(dbTimeLayout, value, time.UTC)
}

// SaveRoom records a room; an already recorded name is left untouched.
func (s *Store) SaveRoom(room model.Room) error {
	if err := model.ValidateRoomName(room.Name); err != nil {
		return fmt.Errorf("store: save room: %w", err)
	}
	createdAt := room.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(
		context.Background(),
		"INSERT OR IGNORE INTO rooms (name, created_by, created_at) VALUES (?, ?, ?)",
		room.Name,
		room.CreatedBy,
		formatDBTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("store: save room: %w", err)
	}
	return nil
}

// ListRooms returns all rooms in insertion order.
func (s *Store) ListRooms() ([]model.Room, error) {
	rows, err := s.db.QueryContext(context.Background(), "SELECT name, created_by, created_at FROM rooms ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: list rooms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rooms []model.Room
	for rows.Next() {
		var r model.Room
		var createdAt string
		if err := rows.Scan(&r.Name, &r.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan room: %w", err)
		}
		parsed, err := parseDBTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("store: scan room: %w", err)
		}
		r.CreatedAt = parsed
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}
