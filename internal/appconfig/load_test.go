package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 7
data_dir: /tmp/webviewplus
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
data_dir: /tmp/webviewplus
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsInvalidApprovedURI(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
app:
  approved_uri: index.html
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "app.approved_uri") {
		t.Fatalf("expected approved_uri error, got %v", err)
	}
}

func TestLoadRejectsInvalidMinVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
engine:
  min_version: 0
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "engine.min_version") {
		t.Fatalf("expected min_version error, got %v", err)
	}
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	t.Setenv("WEBVIEWPLUS_HOME_TEST", "/srv/wvp")
	path := writeConfig(t, `
config_version: 1
data_dir: $WEBVIEWPLUS_HOME_TEST/data
engine:
  exec_path: /usr/bin/chromium
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/srv/wvp/data" {
		t.Fatalf("expected expanded data dir, got %q", cfg.DataDir)
	}
	if cfg.Engine.ExecPath != "/usr/bin/chromium" || cfg.Engine.MinVersion != 90 {
		t.Fatalf("unexpected engine config %+v", cfg.Engine)
	}
	if cfg.App.ApprovedURI == "" || cfg.Engine.DownloadURL == "" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("WEBVIEWPLUS_ENGINE_HEADLESS", "true")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Engine.Headless {
		t.Fatalf("expected env override to enable headless")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected written default to load: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
