package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run binds the listener and serves until ctx is cancelled or a component
// fails, then shuts down. The accept loop, admin HTTP server, rooms file
// watcher and periodic metrics log share one errgroup.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	// A direct Shutdown call stops Run too.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(s.Serve)

	if s.cfg.HTTPAddr != "" {
		g.Go(func() error { return s.serveHTTP(gctx) })
	}
	if s.cfg.WatchRooms && s.cfg.RoomsFile != "" {
		g.Go(func() error { return s.watchRoomsFile(gctx) })
	}
	if s.cfg.MetricsInterval > 0 {
		g.Go(func() error {
			s.metrics.LogPeriodically(s.cfg.MetricsInterval, gctx.Done())
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		return s.Shutdown(s.cfg.ShutdownTimeout)
	})

	err := g.Wait()
	s.metrics.LogSummary()
	return err
}

// Shutdown stops accepting, closes every connection and waits up to timeout
// for the session goroutines to finish their teardown. Calls after the first
// return nil immediately.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	ln := s.listener
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	s.cancel()
	if ln != nil {
		_ = ln.Close()
	}
	for _, sess := range s.sessions.All() {
		_ = sess.Close()
	}
	// connections still in handshake
	for _, c := range conns {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		slog.Info("shutdown complete")
		return nil
	case <-timer.C:
		slog.Warn("shutdown timed out waiting for sessions", "remaining", s.sessions.Count())
		return context.DeadlineExceeded
	}
}
