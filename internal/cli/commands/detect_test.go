package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/cs2log/pkg/config"
	"github.com/ccollicutt/cs2log/pkg/detector"
)

const serverUUID = "18a5c248-c891-42a6-b72e-af0b184937c1"

func envelopeLog() string {
	return strings.Join([]string{
		"[2025-08-19T15:12:44Z] " + serverUUID + ": " + roundStartLine,
		"[2025-08-19T15:12:45Z] " + serverUUID + ": " + purchaseLine,
		"[2025-08-19T15:12:46Z] " + serverUUID + ": " + rconLine,
	}, "\n") + "\n"
}

func TestRunDetect_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ingested.log", envelopeLog())

	out, err := execute(t, NewDetectCommand(), path)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	for _, want := range []string{
		"=== CS2 Log Format Detection ===",
		"Lines sampled: 3",
		"Envelope: Ingestion envelope",
		"Clock: L marker, millisecond clock",
		"100.0% (3/3 lines matched)",
		"Server ids: " + serverUUID,
		"Classifier coverage: 66.7% (2 parsed, 1 failed)",
		"First unrecognized line:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "All formats detected") {
		t.Error("alternatives shown without --all")
	}
}

func TestRunDetect_Stdin(t *testing.T) {
	cmd := NewDetectCommand()
	cmd.SetIn(strings.NewReader(envelopeLog()))

	out, err := execute(t, cmd, "-")
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(out, "File: -") || !strings.Contains(out, "Lines sampled: 3") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRunDetect_NoMatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.log", "hello\nworld\n")

	out, err := execute(t, NewDetectCommand(), path)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(out, "Envelope: none") || !strings.Contains(out, "Clock: none") {
		t.Errorf("expected no layers detected:\n%s", out)
	}
	if !strings.Contains(out, "Classifier coverage: 0.0% (0 parsed, 2 failed)") {
		t.Errorf("unexpected coverage:\n%s", out)
	}
}

func TestRunDetect_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ingested.log", envelopeLog())

	out, err := execute(t, NewDetectCommand(), "-o", "json", path)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	var got JSONOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}

	if got.SampledLines != 3 {
		t.Errorf("SampledLines = %d, want 3", got.SampledLines)
	}
	if len(got.Matches) != 2 {
		t.Fatalf("Matches = %+v, want best envelope and best clock", got.Matches)
	}
	if got.Matches[0].Layer != "envelope" || got.Matches[1].Layer != "clock" {
		t.Errorf("match layers = %s, %s", got.Matches[0].Layer, got.Matches[1].Layer)
	}
	if len(got.ServerIDs) != 1 || got.ServerIDs[0] != serverUUID {
		t.Errorf("ServerIDs = %v", got.ServerIDs)
	}
	if got.Coverage.ParsedCount != 2 || got.Coverage.FailedCount != 1 {
		t.Errorf("Coverage = %+v", got.Coverage)
	}
	if got.Coverage.EventTypes["purchase"] != 1 {
		t.Errorf("EventTypes = %v", got.Coverage.EventTypes)
	}
}

func TestRunDetect_ShowAll(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mixed.log", roundStartLine+"\n"+`L 08/19/2025 - 18:13:04: World triggered "Round_End"`+"\n")

	out, err := execute(t, NewDetectCommand(), "--all", path)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(out, "--- All formats detected ---") {
		t.Fatalf("expected alternatives section:\n%s", out)
	}
	for _, name := range []string{"L marker, millisecond clock", "L marker, classic clock"} {
		if !strings.Contains(out, name) {
			t.Errorf("output missing %q", name)
		}
	}
}

func TestRunDetect_Errors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "console.log", roundStartLine+"\n")

	if _, err := execute(t, NewDetectCommand(), "/nonexistent/console.log"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
	if _, err := execute(t, NewDetectCommand(), "-o", "xml", path); err == nil {
		t.Error("Expected error for unknown output format")
	}
}

func TestRunDetect_WriteConfig(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "ingested.log", envelopeLog())
	configPath := filepath.Join(dir, "cs2log.yaml")

	out, err := execute(t, NewDetectCommand(), "-w", configPath, logPath)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(out, "Wrote starter config to: "+configPath) {
		t.Errorf("missing write confirmation:\n%s", out)
	}

	cfg, err := config.Load(context.Background(), configPath)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if len(cfg.Servers) != 1 || cfg.Servers[0].ID != serverUUID {
		t.Errorf("Servers = %+v, want the detected server", cfg.Servers)
	}

	// second run must refuse to overwrite
	if _, err := execute(t, NewDetectCommand(), "-w", configPath, logPath); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %v, want already exists", err)
	}
}

func TestWriteStarterConfig_NoMatch(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cs2log.yaml")

	err := writeStarterConfig(&detector.DetectionResult{SampledLines: 5}, "app.log", configPath)
	if err == nil {
		t.Fatal("Expected error when nothing was detected")
	}
	if _, err := os.Stat(configPath); !os.IsNotExist(err) {
		t.Error("Config file should not be created")
	}
}

func TestGenerateStarterConfig_NoServers(t *testing.T) {
	result := detector.New().DetectFromLines([]string{roundStartLine, purchaseLine})

	content := generateStarterConfig(result, "console.log")

	for _, want := range []string{
		"# Generated by: cs2log detect console.log",
		"# Detected clock: L marker, millisecond clock (100% confidence)",
		"# Classifier coverage: 100% of 2 sampled lines",
		"# servers:",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("config missing %q:\n%s", want, content)
		}
	}

	path := writeFile(t, t.TempDir(), "cs2log.yaml", content)
	cfg, err := config.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if len(cfg.Servers) != 0 {
		t.Errorf("Servers = %+v, want none", cfg.Servers)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
