package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler returns the admin HTTP handler: health, metrics, read-only state
// and the WebSocket gateway.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok\n")
	})
	r.GET("/metrics", s.handleMetrics)
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api")
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": s.rooms.Snapshot()})
	})
	api.GET("/members", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"members": s.presence.ListMembers()})
	})
	api.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": s.sessions.Infos()})
	})
	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.metrics.Snapshot())
	})
	return r
}

// serveHTTP runs the admin HTTP server on Config.HTTPAddr until ctx is done.
func (s *Server) serveHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin HTTP listening", "addr", s.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: admin http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("admin HTTP shutdown", "err", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: admin http: %w", err)
	}
	return nil
}
