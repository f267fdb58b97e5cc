package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/cs2log/pkg/config"
	"github.com/ccollicutt/cs2log/pkg/detector"
	"github.com/ccollicutt/cs2log/pkg/store"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	ConfigPath string
	Verbose    bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose [log-file...]",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks:
- Config file syntax and structure
- Database location and applied migrations
- Declared game servers and their api keys
- Webhook definitions (and reachability with -v)
- How well the classifier recognizes the given sample log files

Example:
  cs2log diagnose -c cs2log.yaml
  cs2log diagnose -c cs2log.yaml -v console.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			runDiagnose(ctx, cmd.OutOrStdout(), args, opts)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config file (defaults only when empty)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, logFiles []string, opts *DiagnoseOptions) {
	results := []DiagnosticResult{}

	if opts.ConfigPath != "" {
		result := checkConfigExists(opts.ConfigPath)
		results = append(results, result)
		if result.Status == "error" {
			printDiagnostics(w, results, opts)
			return
		}
	}

	cfg, result := checkConfigParseable(ctx, opts.ConfigPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return
	}

	results = append(results, checkDatabase(ctx, cfg))
	results = append(results, checkServers(cfg)...)
	results = append(results, checkWebhooks(ctx, cfg, opts)...)
	results = append(results, checkLogSamples(ctx, logFiles, opts)...)

	printDiagnostics(w, results, opts)
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'cs2log detect <log-file> --write-config cs2log.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to load config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	if path == "" {
		result.Message = "No config file given, using defaults"
	} else {
		result.Message = "Config file parsed successfully"
	}
	result.Details = []string{
		fmt.Sprintf("Listen: %s", cfg.Listen),
		fmt.Sprintf("Servers: %d", len(cfg.Servers)),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

func checkDatabase(ctx context.Context, cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Database: %s", cfg.Database),
	}

	info, err := os.Stat(cfg.Database)
	if os.IsNotExist(err) {
		dir := filepath.Dir(cfg.Database)
		if dirInfo, err := os.Stat(dir); err != nil || !dirInfo.IsDir() {
			result.Status = "error"
			result.Message = fmt.Sprintf("Parent directory does not exist: %s", dir)
			result.Suggests = []string{"Create the directory or change the database path"}
			return result
		}
		result.Status = "ok"
		result.Message = "Database does not exist yet; serve will create it"
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access database: %v", err)
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot open database: %v", err)
		result.Suggests = []string{"Check that the file is a cs2log SQLite database"}
		return result
	}
	defer st.Close()

	versions, err := st.SchemaVersions(ctx)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot read schema versions: %v", err)
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Schema up to date (%d migration(s) applied)", len(versions))
	result.Details = versions
	return result
}

func checkServers(cfg *config.Config) []DiagnosticResult {
	if len(cfg.Servers) == 0 {
		return []DiagnosticResult{{
			Check:   "Servers",
			Status:  "warning",
			Message: "No game servers declared; every ingest request will be rejected",
			Suggests: []string{
				"Add a servers section to your config",
				"Example: servers:\n        - id: my-server\n          api_key: ${MY_SERVER_KEY}",
			},
		}}
	}

	results := []DiagnosticResult{}
	for _, srv := range cfg.Servers {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Server: %s", srv.ID),
		}

		if srv.APIKey == "" {
			result.Status = "warning"
			result.Message = "No api_key; anyone can push logs for this server"
			result.Suggests = []string{"Set api_key (env vars like ${MY_SERVER_KEY} must be exported before start)"}
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Name: %s", srv.Name)
			result.Details = []string{fmt.Sprintf("Ingest URL: POST /logs/%s?key=...", srv.ID)}
		}

		results = append(results, result)
	}

	return results
}

func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", webhookName(wh)),
		}

		result.Status = "ok"
		result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
		if wh.Trigger == config.WebhookTriggerNever {
			result.Status = "warning"
			result.Message = "Trigger is never; this webhook is disabled"
		}
		if opts.Verbose {
			result.Details = []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			}
			if wh.Token != "" {
				result.Details = append(result.Details, "Token: configured")
			}
		}

		results = append(results, result)
	}

	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			result := checkWebhookConnectivity(ctx, wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", webhookName(wh))
			results = append(results, result)
		}
	}

	return results
}

func webhookName(wh config.WebhookConfig) string {
	if wh.Name != "" {
		return wh.Name
	}
	return wh.URL
}

func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}
	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may only accept POST (deliveries will still work)",
			"Check authentication if using a token",
		}
	}

	return result
}

func checkLogSamples(ctx context.Context, logFiles []string, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	d := detector.New(detector.WithSampleSize(50))
	for _, file := range logFiles {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Sample: %s", filepath.Base(file)),
		}

		det, err := d.DetectFromFile(ctx, file)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot read file: %v", err)
			results = append(results, result)
			continue
		}

		cov := det.Coverage
		ratio := cov.Ratio()
		switch {
		case det.SampledLines == 0:
			result.Status = "warning"
			result.Message = "File has no non-blank lines"
		case cov.ParsedCount == 0:
			result.Status = "error"
			result.Message = fmt.Sprintf("Classifier recognized none of %d sample lines", det.SampledLines)
			result.Suggests = []string{
				"Check that this is a CS2 server log",
				"Use 'cs2log detect " + file + "' to inspect the line prefixes",
			}
		case ratio < 0.5:
			result.Status = "warning"
			result.Message = fmt.Sprintf("Classifier recognized %d/%d sample lines", cov.ParsedCount, det.SampledLines)
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Classifier recognized %d/%d sample lines", cov.ParsedCount, det.SampledLines)
		}

		if cov.FirstFailure != "" && (opts.Verbose || result.Status != "ok") {
			result.Details = append(result.Details, "First unrecognized line:", truncate(cov.FirstFailure, 80))
		}

		results = append(results, result)
	}

	return results
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== cs2log Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before running the server.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}
