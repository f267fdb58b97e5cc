package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runArgs(t, "version")
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(stdout, "cs2log ") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRun_ParseExitCodes(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.log")
	bad := filepath.Join(dir, "bad.log")
	if err := os.WriteFile(good, []byte(`L 08/19/2025 - 18:13:03: World triggered "Round_Start"`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("not a cs2 line\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"all parsed", []string{"parse", "-q", good}, 0},
		{"failures", []string{"parse", "-q", bad}, 1},
		{"runtime error", []string{"parse", "-o", "xml", good}, 2},
		{"all parsed after failures", []string{"parse", "-q", good}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runArgs(t, tt.args...)
			if code != tt.want {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.want, stderr)
			}
		})
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	code, _, stderr := runArgs(t, "bogus-cmd-xyz")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "cs2log-bogus-cmd-xyz") {
		t.Errorf("stderr = %q, want plugin hint", stderr)
	}
}

func TestRun_Plugin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script plugins need a unix shell")
	}
	dir := t.TempDir()
	plugin := filepath.Join(dir, "cs2log-hello")
	if err := os.WriteFile(plugin, []byte("#!/bin/sh\n[ \"$1\" = \"--flag\" ] && exit 7\nexit 0\n"), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	if code, _, _ := runArgs(t, "hello"); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if code, _, _ := runArgs(t, "hello", "--flag"); code != 7 {
		t.Errorf("exit code = %d, want 7 from plugin", code)
	}
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"serve", "parse", "detect", "diagnose", "validate", "db", "version", "help", "completion"} {
		if !isBuiltinCommand(root, name) {
			t.Errorf("%s is not a builtin command", name)
		}
	}
	if isBuiltinCommand(root, "hello") {
		t.Error("hello should not be builtin")
	}
}
