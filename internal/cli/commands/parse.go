package commands

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/cs2log/pkg/output"
	"github.com/ccollicutt/cs2log/pkg/parser"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	Output      string
	Verbose     bool
	Quiet       bool
	Concurrency int
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <log-file>...",
		Short: "Classify CS2 log files",
		Long: `Classify every line of one or more CS2 server log files.

Arguments may be globs. Use "-" to read from standard input.
Each non-blank line is matched against the known event grammars and
reported as parsed (with its event type and data) or failed.

Exit codes:
  0 - Every line parsed
  1 - At least one line failed to parse
  2 - Runtime error`,
		Example: `  cs2log parse console.log
  cs2log parse -o json 'logs/*.log'
  tail -n 200 console.log | cs2log parse -v -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show every parsed line, not just failures")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "j", runtime.NumCPU(), "Number of files classified in parallel")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	files, err := parser.ExpandGlobs(args)
	if err != nil {
		return fmt.Errorf("expanding log files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no log files matched patterns: %v", args)
	}

	started := time.Now()
	reports, err := classifyFiles(ctx, files, cmd.InOrStdin(), opts.Concurrency)
	if err != nil {
		return err
	}
	report := output.NewReport(reports, started, time.Now())

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if report.HasFailures() {
		ExitCode = 1
	}
	return nil
}

// classifyFiles classifies each file concurrently. Reports keep the order of files.
// The path "-" reads from stdin.
func classifyFiles(ctx context.Context, files []string, stdin io.Reader, concurrency int) ([]output.FileReport, error) {
	reports := make([]output.FileReport, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			var src *parser.FileSource
			if file == parser.StdinPath {
				src = parser.NewReaderSource(stdin, parser.StdinPath)
			} else {
				src = parser.NewFileSource([]string{file})
			}
			defer src.Close()

			lines, err := parser.ReadAll(ctx, src)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			reports[i] = output.FileReport{Source: file, Result: parser.Parse(lines)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
