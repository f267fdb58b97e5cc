package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/cs2log/internal/server"
	"github.com/ccollicutt/cs2log/pkg/config"
	"github.com/ccollicutt/cs2log/pkg/logging"
	"github.com/ccollicutt/cs2log/pkg/store"
	"github.com/ccollicutt/cs2log/pkg/webhook"
)

// ServeOptions holds command-line options for the serve command.
type ServeOptions struct {
	ConfigPath string
	Listen     string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the log ingestion and parse-test API",
		Long: `Run the HTTP API.

Routes:
  GET  /health             Liveness check
  POST /logs/:server_id    Ingest log lines from a game server
  POST /api/parse-test     Classify lines without storing them
  GET  /api/logs           Browse stored lines (raw, parsed, failed)
  GET  /api/event-types    Stored event type counts
  GET  /api/servers        Active game servers

Game servers are declared in the config file. The server stops gracefully
on SIGINT or SIGTERM.`,
		Example: `  cs2log serve --config cs2log.yaml
  CS2LOG_API_TOKENS=secret cs2log serve -c cs2log.yaml --listen :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config file (defaults only when empty)")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "Override the listen address")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var notifier *webhook.Notifier
	if len(cfg.Webhooks) > 0 {
		notifier = webhook.NewNotifier(webhook.NewClient(), cfg.Webhooks, logger)
	}

	srv := server.New(st, notifier, logger, server.Options{
		Mode:         cfg.Mode,
		MaxLines:     cfg.MaxLines,
		MaxBodyBytes: cfg.MaxBodyBytes,
		APITokens:    cfg.APITokens,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting cs2log",
		zap.String("version", Version),
		zap.String("database", cfg.Database),
		zap.Int("servers", len(cfg.Servers)),
		zap.Int("webhooks", len(cfg.Webhooks)))

	return srv.Run(ctx, cfg.Listen)
}

// openStore opens the configured database and registers the declared servers.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Database, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	specs := make([]store.ServerSpec, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		specs = append(specs, store.ServerSpec{ID: s.ID, Name: s.Name, APIKey: s.APIKey})
	}
	if err := st.SyncServers(ctx, specs); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("registering servers: %w", err)
	}

	return st, nil
}
