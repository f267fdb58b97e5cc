package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/cs2log/pkg/config"
	"github.com/ccollicutt/cs2log/pkg/logging"
	"github.com/ccollicutt/cs2log/pkg/store"
)

// NewDBCommand creates the db command and its subcommands.
func NewDBCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the log database",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (defaults only when empty)")

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, configPath, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				versions, err := st.SchemaVersions(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", cfg.Database)
				fmt.Fprintf(out, "Applied migrations: %d\n", len(versions))
				for _, v := range versions {
					fmt.Fprintf(out, "  - %s\n", v)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recent schema migration",
		Long: `Revert the most recent schema migration.

The next command that opens the database applies it again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, configPath, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				version, err := st.RollbackMigration(ctx)
				if err != nil {
					return fmt.Errorf("rolling back: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back migration %s\n", version)
				return nil
			})
		},
	})

	return cmd
}

func withStore(cmd *cobra.Command, configPath string, fn func(context.Context, *config.Config, *store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewWriter(cmd.ErrOrStderr(), "warn")
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Database, store.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	return fn(ctx, cfg, st)
}
