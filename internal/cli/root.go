// Package cli provides the command-line interface for cs2log.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/cs2log/internal/cli/commands"
	"github.com/ccollicutt/cs2log/internal/cli/plugins"
)

// Execute runs the root command with os.Args and returns the exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	commands.ExitCode = 0

	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// An unknown first word may be a plugin.
	potential := ""
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' && !isBuiltinCommand(rootCmd, args[0]) {
		potential = args[0]
		if pluginPath, err := plugins.FindPlugin(potential, plugins.SearchDirs()); err == nil {
			return plugins.Execute(pluginPath, args[1:])
		}
	}

	if err := rootCmd.Execute(); err != nil {
		if potential != "" {
			_, _ = fmt.Fprintln(stderr, plugins.FormatNotFoundError(potential))
			return 2
		}
		// SilenceErrors keeps cobra from printing this itself.
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return commands.ExitCode
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cs2log",
		Short: "Classify and collect Counter-Strike 2 server logs",
		Long: `cs2log classifies Counter-Strike 2 server log lines into typed events
(kills, purchases, round and match events, chat, connections and more).

It runs as an HTTP service that game servers push logs to, and as a local
tool for classifying log files.

PLUGINS:
  Unknown commands run a standalone binary named cs2log-<command>, searched
  for in order:
    1. Same directory as the cs2log binary
    2. ~/.cs2log/plugins/
    3. Anywhere in PATH`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewDBCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
