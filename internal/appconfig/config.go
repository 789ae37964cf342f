package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/webviewplus/internal/engine"
	"pkt.systems/webviewplus/internal/panel"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int          `mapstructure:"config_version" yaml:"config_version"`
	DataDir       string       `mapstructure:"data_dir" yaml:"data_dir"`
	PluginDir     string       `mapstructure:"plugin_dir" yaml:"plugin_dir"`
	Language      string       `mapstructure:"language" yaml:"language"`
	Engine        EngineConfig `mapstructure:"engine" yaml:"engine"`
	App           AppConfig    `mapstructure:"app" yaml:"app"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// EngineConfig controls browser discovery and launch.
type EngineConfig struct {
	ExecPath    string `mapstructure:"exec_path" yaml:"exec_path"`
	MinVersion  int    `mapstructure:"min_version" yaml:"min_version"`
	Headless    bool   `mapstructure:"headless" yaml:"headless"`
	DownloadURL string `mapstructure:"download_url" yaml:"download_url"`
}

// AppConfig controls which web app document the engine is locked to.
type AppConfig struct {
	ApprovedURI string `mapstructure:"approved_uri" yaml:"approved_uri"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	pluginDir := ""
	if exe, err := os.Executable(); err == nil {
		pluginDir = filepath.Dir(exe)
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		DataDir:       filepath.Join(home, ".webviewplus"),
		PluginDir:     pluginDir,
		Language:      "",
		Engine: EngineConfig{
			ExecPath:    "",
			MinVersion:  engine.DefaultMinVersion,
			Headless:    false,
			DownloadURL: engine.DefaultDownloadURL,
		},
		App: AppConfig{
			ApprovedURI: panel.DefaultApprovedURI,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".webviewplus", "config.yaml"), nil
}
