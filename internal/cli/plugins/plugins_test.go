package plugins

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writePlugin(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 3\n"), 0755); err != nil {
		t.Fatalf("failed to create test plugin: %v", err)
	}
	return path
}

func TestFindPlugin_NotFound(t *testing.T) {
	_, err := FindPlugin("nonexistent-plugin-xyz", []string{t.TempDir()})
	if !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestFindPlugin_RejectsPaths(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, Prefix+"x")

	for _, cmd := range []string{"", "../x", "a/b"} {
		if _, err := FindPlugin(cmd, []string{dir}); !errors.Is(err, ErrPluginNotFound) {
			t.Errorf("FindPlugin(%q) error = %v, want ErrPluginNotFound", cmd, err)
		}
	}
}

func TestFindPlugin_SearchOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writePlugin(t, second, Prefix+"replay")

	found, err := FindPlugin("replay", []string{first, second})
	if err != nil {
		t.Fatalf("expected to find plugin, got error: %v", err)
	}
	if found != filepath.Join(second, Prefix+"replay") {
		t.Errorf("found %s", found)
	}

	want := writePlugin(t, first, Prefix+"replay")
	found, err = FindPlugin("replay", []string{first, second})
	if err != nil {
		t.Fatalf("expected to find plugin, got error: %v", err)
	}
	if found != want {
		t.Errorf("expected %s to win, got %s", want, found)
	}
}

func TestFindPlugin_InPath(t *testing.T) {
	dir := t.TempDir()
	want := writePlugin(t, dir, Prefix+"pathplugin")
	t.Setenv("PATH", dir)

	found, err := FindPlugin("pathplugin", nil)
	if err != nil {
		t.Fatalf("expected to find plugin in PATH, got error: %v", err)
	}
	if found != want {
		t.Errorf("expected %s, got %s", want, found)
	}
}

func TestExecute_ExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script plugins need a unix shell")
	}
	path := writePlugin(t, t.TempDir(), Prefix+"fail")

	if code := Execute(path, nil); code != 3 {
		t.Errorf("Execute() = %d, want 3", code)
	}
}

func TestFormatNotFoundError(t *testing.T) {
	err := FormatNotFoundError("replay")

	for _, want := range []string{`"replay"`, "cs2log-replay", "~/.cs2log/plugins/", "cs2log --help"} {
		if !strings.Contains(err, want) {
			t.Errorf("expected error to contain %q, got:\n%s", want, err)
		}
	}
}

func TestSearchDirs(t *testing.T) {
	dirs := SearchDirs()
	if len(dirs) == 0 {
		t.Fatal("expected at least one search dir")
	}
	for _, d := range dirs[1:] {
		if !strings.HasSuffix(d, filepath.Join(".cs2log", "plugins")) {
			t.Errorf("unexpected search dir %s", d)
		}
	}
}

func TestIsExecutable(t *testing.T) {
	tmpDir := t.TempDir()

	nonExec := filepath.Join(tmpDir, "nonexec")
	if err := os.WriteFile(nonExec, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if isExecutable(nonExec) {
		t.Error("non-executable file should not be detected as executable")
	}

	exec := filepath.Join(tmpDir, "exec")
	if err := os.WriteFile(exec, []byte("test"), 0755); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if !isExecutable(exec) {
		t.Error("executable file should be detected as executable")
	}

	if isExecutable(tmpDir) {
		t.Error("directory should not be detected as executable")
	}
	if isExecutable(filepath.Join(tmpDir, "nonexistent")) {
		t.Error("non-existent file should not be detected as executable")
	}
}
