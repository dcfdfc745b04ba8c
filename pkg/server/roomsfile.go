package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchRoomsFile re-imports Config.RoomsFile whenever it is written or
// replaced, until ctx is cancelled. Rooms are only ever added.
func (s *Server) watchRoomsFile(ctx context.Context) error {
	path := filepath.Clean(s.cfg.RoomsFile)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("server: rooms watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	// Watch the directory: editors often replace the file by renaming over it.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("server: watch %s: %w", path, err)
	}
	slog.Info("watching rooms file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			slog.Debug("rooms file changed", "op", ev.Op.String())
			if _, err := s.LoadRoomsFile(path); err != nil {
				slog.Warn("rooms file reload failed", "err", err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("rooms watcher error", "err", err)
		}
	}
}
