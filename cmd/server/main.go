// Command gorelay-server runs the GoRelay text chat relay.
//
//	gorelay-server [host] [port] [flags]
//	gorelay-server export-rooms --db gorelay.db
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/NicolasHaas/gorelay/pkg/logging"
	"github.com/NicolasHaas/gorelay/pkg/server"
	"github.com/NicolasHaas/gorelay/pkg/store"
	"github.com/NicolasHaas/gorelay/pkg/version"
)

func main() {
	if err := newRootCmd(runServer).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// options holds flag values; a flag only overrides the config file when it
// was set explicitly.
type options struct {
	configFile string
	httpAddr   string
	dbPath     string
	roomsFile  string
	watchRooms bool
	logLevel   string
	logFormat  string
}

// newRootCmd builds the command tree; run is called with the final config.
func newRootCmd(run func(context.Context, server.Config) error) *cobra.Command {
	var opts options
	defaults := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "gorelay-server [host] [port]",
		Short: "Line-oriented TCP chat relay with rooms and presence",
		Long: `gorelay-server accepts plain TCP clients, asks each for a nickname and
relays broadcasts and room messages between them.

Host and port default to ` + defaults.Address() + `.`,
		Args:         cobra.MaximumNArgs(2),
		Version:      version.Full(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, opts, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "YAML config file")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite room catalog path (empty: rooms are not persisted)")
	pf.StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "Log level: "+logging.LevelNames())
	pf.StringVar(&opts.logFormat, "log-format", defaults.LogFormat, "Log format: text or json")

	f := cmd.Flags()
	f.StringVar(&opts.httpAddr, "http", "", "Admin HTTP and WebSocket bind address (empty to disable)")
	f.StringVar(&opts.roomsFile, "rooms-file", "", "YAML file of rooms to create on startup")
	f.BoolVar(&opts.watchRooms, "watch-rooms", false, "Re-import --rooms-file when it changes")

	cmd.AddCommand(newExportRoomsCmd(&opts))
	return cmd
}

func newExportRoomsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export-rooms",
		Short: "Print the room catalog as a rooms YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(cmd, *opts, nil)
			if err != nil {
				return err
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("export-rooms requires --db or db_path in the config file")
			}
			st, err := store.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			data, err := server.ExportRoomsYAML(st)
			if err != nil {
				return fmt.Errorf("export rooms: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// buildConfig layers defaults, the config file, positional host and port,
// and explicitly set flags, in that order.
func buildConfig(cmd *cobra.Command, opts options, args []string) (server.Config, error) {
	cfg := server.DefaultConfig()
	if opts.configFile != "" {
		if err := server.LoadConfigFile(opts.configFile, &cfg); err != nil {
			return cfg, err
		}
	}

	if len(args) > 0 {
		cfg.Host = args[0]
	}
	if len(args) > 1 {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return cfg, fmt.Errorf("invalid port %q", args[1])
		}
		cfg.Port = port
	}

	flags := cmd.Flags()
	if flags.Changed("http") {
		cfg.HTTPAddr = opts.httpAddr
	}
	if flags.Changed("db") {
		cfg.DBPath = opts.dbPath
	}
	if flags.Changed("rooms-file") {
		cfg.RoomsFile = opts.roomsFile
	}
	if flags.Changed("watch-rooms") {
		cfg.WatchRooms = opts.watchRooms
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := logging.Validate(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runServer(ctx context.Context, cfg server.Config) error {
	if err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	}); err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var deps server.Dependencies
	if cfg.DBPath != "" {
		st, err := store.New(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		deps.Catalog = st
	}

	slog.Info("GoRelay server starting", "version", version.String(), "addr", cfg.Address())
	if err := server.New(cfg, deps).Run(ctx); err != nil {
		slog.Error("server error", "err", err)
		return err
	}
	return nil
}
