package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/cs2log/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a cs2log configuration file without starting the server.

Checks:
  - YAML syntax
  - Mode, log level and log format values
  - Request limits
  - Server ids (format, duplicates)
  - Webhook URLs and triggers`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Listen:     %s (%s mode)\n", cfg.Listen, cfg.Mode)
	fmt.Fprintf(out, "  Database:   %s\n", cfg.Database)
	fmt.Fprintf(out, "  Max lines:  %d per request\n", cfg.MaxLines)
	fmt.Fprintf(out, "  API tokens: %d\n", len(cfg.APITokens))
	fmt.Fprintf(out, "  Servers:    %d\n", len(cfg.Servers))
	fmt.Fprintf(out, "  Webhooks:   %d\n", len(cfg.Webhooks))

	if len(cfg.Servers) > 0 {
		fmt.Fprintf(out, "\nServers:\n")
		for i, srv := range cfg.Servers {
			auth := "no api key"
			if srv.APIKey != "" {
				auth = "api key set"
			}
			fmt.Fprintf(out, "  %d. %s (%s, %s)\n", i+1, srv.ID, srv.Name, auth)
		}
	} else {
		fmt.Fprintf(out, "\nWarning: No servers declared; ingestion will reject every request\n")
	}

	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(out, "\nWebhooks:\n")
		for i, wh := range cfg.Webhooks {
			fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, wh.Trigger, webhookName(wh))
		}
	}

	return nil
}
