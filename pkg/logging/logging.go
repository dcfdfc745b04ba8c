// Package logging configures structured logging for the GoRelay server.
//
// The server logs through the standard log/slog package. Setup installs the
// default logger; New builds one without touching global state, which tests
// use to capture output.
//
//	logging.Setup(logging.Options{Level: "debug", Format: "json"})
//	slog.Info("client connected", "nick", nick, "session", id)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options controls how logging is configured.
type Options struct {
	Level  string    // "debug", "info", "warn", "error" (default: "info")
	Format string    // "text" or "json" (default: "text")
	Output io.Writer // default: os.Stdout
}

// ParseLevel converts a level name to slog.Level.
// Unrecognized names map to slog.LevelInfo; use Validate to reject them.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate returns an error if the level or format is not recognized.
func Validate(opts Options) error {
	switch strings.ToLower(strings.TrimSpace(opts.Level)) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("unknown log level %q (valid: %s)", opts.Level, LevelNames())
	}
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "text", "json", "":
	default:
		return fmt.Errorf("unknown log format %q (valid: text, json)", opts.Format)
	}
	return nil
}

// New builds a logger from opts.
func New(opts Options) (*slog.Logger, error) {
	if err := Validate(opts); err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level := ParseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler), nil
}

// Setup installs a logger built from opts as the slog default.
// Call it early in main() before any logging occurs.
func Setup(opts Options) error {
	logger, err := New(opts)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// LevelNames returns all valid level names, for --help text.
func LevelNames() string {
	return "debug, info, warn, error"
}
