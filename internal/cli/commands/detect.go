package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/cs2log/pkg/detector"
	"github.com/ccollicutt/cs2log/pkg/parser"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Detect the line prefix format of a CS2 log file",
		Long: `Sample a CS2 log file and report which line prefixes it uses and how
much of it the classifier recognizes.

Prefix layers:
  - Ingestion envelope ("[<iso8601>] <server-id>: ") or bare server id
  - Server clock ("L MM/DD/YYYY - HH:MM:SS.mmm - ", "L MM/DD/YYYY - HH:MM:SS: ")

Optionally generates a starter config with --write-config, declaring every
server id seen in the sample.

Use "-" to read from standard input.`,
		Example: `  cs2log detect console.log
  cs2log detect --sample 500 console.log
  cs2log detect -w cs2log.yaml ingested.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 100, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected formats, not just the best match per layer")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))
	var result *detector.DetectionResult
	var err error
	if logFile == parser.StdinPath {
		result, err = d.DetectFromReader(ctx, cmd.InOrStdin())
	} else {
		if _, statErr := os.Stat(logFile); os.IsNotExist(statErr) {
			return fmt.Errorf("log file not found: %s", logFile)
		}
		result, err = d.DetectFromFile(ctx, logFile)
	}
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.WriteConfig != "" {
		if err := writeStarterConfig(result, logFile, opts.WriteConfig); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote starter config to: %s\n\n", opts.WriteConfig)
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(out, result, logFile, opts)
	case "text", "":
		outputDetectText(out, result, logFile, opts)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (must be text or json)", opts.Output)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) {
	fmt.Fprintln(w, "=== CS2 Log Format Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintln(w)

	if result.SampledLines == 0 {
		fmt.Fprintln(w, "No non-blank lines found.")
		return
	}

	for _, layer := range []detector.Layer{detector.LayerEnvelope, detector.LayerClock} {
		best := result.BestMatch(layer)
		if best == nil {
			fmt.Fprintf(w, "%s: none\n", layerTitle(layer))
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", layerTitle(layer), best.Format.Name)
		fmt.Fprintf(w, "  Confidence: %.1f%% (%d/%d lines matched)\n",
			best.Confidence*100, best.MatchCount, result.SampledLines)
		fmt.Fprintf(w, "  Sample: %s\n", truncate(best.SampleLine, 100))
		if !best.ParsedTime.IsZero() {
			fmt.Fprintf(w, "  Parsed as: %s\n", best.ParsedTime.Format("2006-01-02 15:04:05.000 MST"))
		}
	}
	fmt.Fprintln(w)

	if len(result.ServerIDs) > 0 {
		fmt.Fprintf(w, "Server ids: %s\n\n", strings.Join(result.ServerIDs, ", "))
	}

	cov := result.Coverage
	fmt.Fprintf(w, "Classifier coverage: %.1f%% (%d parsed, %d failed)\n",
		cov.Ratio()*100, cov.ParsedCount, cov.FailedCount)
	if cov.FirstFailure != "" {
		fmt.Fprintf(w, "  First unrecognized line: %s\n", truncate(cov.FirstFailure, 100))
	}
	fmt.Fprintln(w)

	if opts.ShowAll && len(result.Matches) > 0 {
		fmt.Fprintln(w, "--- All formats detected ---")
		for i, m := range result.Matches {
			fmt.Fprintf(w, "%d. [%s] %s (%.1f%% confidence)\n", i+1, m.Format.Layer, m.Format.Name, m.Confidence*100)
			fmt.Fprintf(w, "   pattern: '%s'\n", m.Format.PatternStr)
		}
		fmt.Fprintln(w)
	}
}

func layerTitle(layer detector.Layer) string {
	if layer == detector.LayerEnvelope {
		return "Envelope"
	}
	return "Clock"
}

// JSONMatch represents a format match in JSON output.
type JSONMatch struct {
	Name       string  `json:"name"`
	Layer      string  `json:"layer"`
	Pattern    string  `json:"pattern"`
	Layout     string  `json:"layout,omitempty"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	SampleLine string  `json:"sample_line"`
}

// JSONCoverage is the classifier coverage in JSON output.
type JSONCoverage struct {
	ParsedCount  int                      `json:"parsed_count"`
	FailedCount  int                      `json:"failed_count"`
	Ratio        float64                  `json:"ratio"`
	EventTypes   map[parser.EventType]int `json:"event_types"`
	FirstFailure string                   `json:"first_failure,omitempty"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File         string       `json:"file"`
	SampledLines int          `json:"sampled_lines"`
	Matches      []JSONMatch  `json:"matches"`
	ServerIDs    []string     `json:"server_ids"`
	Coverage     JSONCoverage `json:"coverage"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	out := JSONOutput{
		File:         logFile,
		SampledLines: result.SampledLines,
		Matches:      make([]JSONMatch, 0),
		ServerIDs:    make([]string, 0, len(result.ServerIDs)),
		Coverage: JSONCoverage{
			ParsedCount:  result.Coverage.ParsedCount,
			FailedCount:  result.Coverage.FailedCount,
			Ratio:        result.Coverage.Ratio(),
			EventTypes:   result.Coverage.EventTypes,
			FirstFailure: result.Coverage.FirstFailure,
		},
	}
	out.ServerIDs = append(out.ServerIDs, result.ServerIDs...)
	if out.Coverage.EventTypes == nil {
		out.Coverage.EventTypes = map[parser.EventType]int{}
	}

	var matches []detector.FormatMatch
	if opts.ShowAll {
		matches = result.Matches
	} else {
		for _, layer := range []detector.Layer{detector.LayerEnvelope, detector.LayerClock} {
			if best := result.BestMatch(layer); best != nil {
				matches = append(matches, *best)
			}
		}
	}

	for _, m := range matches {
		out.Matches = append(out.Matches, JSONMatch{
			Name:       m.Format.Name,
			Layer:      string(m.Format.Layer),
			Pattern:    m.Format.PatternStr,
			Layout:     m.Format.Layout,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter config file from the detection result.
func writeStarterConfig(result *detector.DetectionResult, logFile, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if !result.HasMatch() {
		return fmt.Errorf("cannot generate config: no CS2 log prefix detected in %s", logFile)
	}

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(generateStarterConfig(result, logFile)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateStarterConfig creates a YAML config template.
func generateStarterConfig(result *detector.DetectionResult, logFile string) string {
	var b strings.Builder

	b.WriteString("# cs2log configuration\n")
	b.WriteString("# Generated by: cs2log detect " + logFile + "\n")
	for _, layer := range []detector.Layer{detector.LayerEnvelope, detector.LayerClock} {
		if m := result.BestMatch(layer); m != nil {
			fmt.Fprintf(&b, "# Detected %s: %s (%.0f%% confidence)\n", layer, m.Format.Name, m.Confidence*100)
		}
	}
	fmt.Fprintf(&b, "# Classifier coverage: %.0f%% of %d sampled lines\n", result.Coverage.Ratio()*100, result.SampledLines)

	b.WriteString(`
listen: ":9090"
database: "cs2log.db"
log_level: info
log_format: json

# Bearer tokens for /api routes. Leave empty for an open API.
# api_tokens:
#   - ${CS2LOG_API_TOKEN}

`)

	if len(result.ServerIDs) == 0 {
		b.WriteString(`# Game servers allowed to POST /logs/<id>:
# servers:
#   - id: my-server
#     name: "My server"
#     api_key: ${MY_SERVER_KEY}
`)
	} else {
		b.WriteString("servers:\n")
		for _, id := range result.ServerIDs {
			fmt.Fprintf(&b, "  - id: %q\n", id)
			b.WriteString("    # api_key: ${CS2LOG_SERVER_KEY}\n")
		}
	}

	b.WriteString(`
# Notify an endpoint when a match ends:
# webhooks:
#   - name: match-results
#     url: https://example.com/hooks/cs2
#     trigger: on_game_over
`)

	return b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
