package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/webviewplus/internal/version"
	"pkt.systems/webviewplus/schema"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"preview", "doctor", "settings", "init-config", "version"} {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected root command to include %s", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, version.Get().Module+" ") {
		t.Fatalf("unexpected version output %q", out)
	}
	out, err = execute(t, "version", "--short")
	if err != nil {
		t.Fatalf("version --short: %v", err)
	}
	if strings.TrimSpace(out) != version.Current() {
		t.Fatalf("unexpected short version %q", out)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := execute(t, "settings", "set", "-c", cfgPath, "WebViewPlus", "ExtensionList", "md,txt"); err != nil {
		t.Fatalf("settings set: %v", err)
	}
	if _, err := execute(t, "settings", "set", "-c", cfgPath, "global", "ShowTrayIcon", "False"); err != nil {
		t.Fatalf("settings set global: %v", err)
	}
	out, err := execute(t, "settings", "get", "-c", cfgPath, "WebViewPlus", "ExtensionList")
	if err != nil {
		t.Fatalf("settings get: %v", err)
	}
	if strings.TrimSpace(out) != "md,txt" {
		t.Fatalf("unexpected value %q", out)
	}
	out, err = execute(t, "settings", "get", "-c", cfgPath, "GLOBAL", "ShowTrayIcon")
	if err != nil {
		t.Fatalf("settings get global: %v", err)
	}
	if strings.TrimSpace(out) != "False" {
		t.Fatalf("unexpected global value %q", out)
	}
	if _, err := execute(t, "settings", "get", "-c", cfgPath, "WebViewPlus", "Missing"); err == nil {
		t.Fatalf("expected error for unset key")
	}
}

func TestDoctorReportsMissingBrowser(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := execute(t, "doctor", "-c", cfgPath)
	if !errors.Is(err, schema.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if !strings.Contains(out, "webviewplus: "+version.Get().String()) {
		t.Fatalf("expected build version in doctor output, got %q", out)
	}
	if !strings.Contains(out, "browser: unavailable") || !strings.Contains(out, "Download: https://") {
		t.Fatalf("unexpected doctor output %q", out)
	}
}

func TestPreviewShowsFallbackWithoutBrowser(t *testing.T) {
	cfgPath := writeTestConfig(t)
	file := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(file, []byte("# hi\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	out, err := execute(t, "preview", "-c", cfgPath, file)
	if !errors.Is(err, schema.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if !strings.Contains(out, "requires Google Chrome") {
		t.Fatalf("expected install prompt, got %q", out)
	}
}

func TestInitConfigWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := execute(t, "init-config", "-c", path); err != nil {
		t.Fatalf("init-config: %v", err)
	}
	if _, err := execute(t, "init-config", "-c", path); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := execute(t, "init-config", "-c", path, "--force"); err != nil {
		t.Fatalf("init-config --force: %v", err)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeTestConfig points the data dir at a temp dir and the browser at a
// path that does not exist.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "config_version: 1\n" +
		"data_dir: " + filepath.Join(dir, "data") + "\n" +
		"plugin_dir: " + filepath.Join(dir, "plugin") + "\n" +
		"language: en-US\n" +
		"engine:\n" +
		"  exec_path: " + filepath.Join(dir, "no-such-browser") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
