package main

import (
	"context"
	"fmt"
	"path/filepath"

	"pkt.systems/pslog"
	"pkt.systems/webviewplus/internal/appconfig"
	"pkt.systems/webviewplus/internal/engine"
	"pkt.systems/webviewplus/internal/engine/chrome"
	"pkt.systems/webviewplus/internal/panel"
	"pkt.systems/webviewplus/internal/plugin"
	"pkt.systems/webviewplus/internal/prefs"
	"pkt.systems/webviewplus/internal/restart"
	"pkt.systems/webviewplus/internal/settings"
)

// app is the wiring shared by the subcommands: loaded config, the settings
// file under the data directory and the preferences on top of it.
type app struct {
	cfg      appconfig.Config
	store    *settings.FileStore
	prefs    *prefs.Prefs
	language string
	log      pslog.Logger
}

func loadApp(ctx context.Context, cfgPath string) (*app, error) {
	logger := pslog.Ctx(ctx)
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	store, err := settings.Open(filepath.Join(cfg.DataDir, settings.DefaultFileName), logger)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return &app{
		cfg:      cfg,
		store:    store,
		prefs:    prefs.New(store),
		language: appconfig.ResolveLanguage(cfg.Language),
		log:      logger,
	}, nil
}

func (a *app) detect(ctx context.Context) engine.Availability {
	return engine.Detect(ctx, engine.DetectConfig{
		ExecPath:   a.cfg.Engine.ExecPath,
		MinVersion: a.cfg.Engine.MinVersion,
	})
}

func (a *app) newEngine(_ context.Context, avail engine.Availability) (engine.Engine, error) {
	width, height := a.prefs.WindowSize()
	return chrome.New(chrome.Config{
		ExecPath:     avail.ExecPath,
		UserDataDir:  chrome.DefaultUserDataDir(a.cfg.DataDir),
		Language:     a.language,
		Headless:     a.cfg.Engine.Headless,
		Origins:      []string{a.cfg.App.ApprovedURI},
		WindowWidth:  int(width),
		WindowHeight: int(height),
		Logger:       a.log,
	}), nil
}

func (a *app) newPanel() *panel.Panel {
	return panel.New(panel.Config{
		Prefs:       a.prefs,
		Relauncher:  &restart.Relauncher{Log: a.log},
		Language:    a.language,
		ApprovedURI: a.cfg.App.ApprovedURI,
		DataDir:     a.cfg.DataDir,
		PluginDir:   a.cfg.PluginDir,
		DownloadURL: a.cfg.Engine.DownloadURL,
		Detect:      a.detect,
		NewEngine:   a.newEngine,
		Logger:      a.log,
	})
}

func (a *app) newViewer() *plugin.Viewer {
	return plugin.NewViewer(a.prefs, a.newPanel, a.log)
}
