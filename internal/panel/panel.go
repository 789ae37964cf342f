// Package panel owns the browser engine instance and drives the preview of
// one file at a time.
package panel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"pkt.systems/pslog"
	"pkt.systems/webviewplus/internal/engine"
	"pkt.systems/webviewplus/internal/logx"
	"pkt.systems/webviewplus/internal/navguard"
	"pkt.systems/webviewplus/internal/prefs"
	"pkt.systems/webviewplus/internal/protocol"
	"pkt.systems/webviewplus/internal/transfer"
	"pkt.systems/webviewplus/schema"
)

// DefaultApprovedURI is the document the engine is locked to when no
// override URL is configured.
const DefaultApprovedURI = "https://webviewplus.mooflu.com/index.html"

// WebAppDirName is the folder holding an unpacked web app build.
const WebAppDirName = "webviewplus"

// State is the panel lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateActive
	StateBrowserEngineMissing
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateBrowserEngineMissing:
		return "browser-engine-missing"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Fallback describes the install prompt shown when no usable engine exists.
type Fallback struct {
	Reason      string
	DownloadURL string
}

// Config wires a Panel.
type Config struct {
	Prefs      *prefs.Prefs
	Relauncher protocol.Relauncher
	// Language is the UI language, e.g. "en-US".
	Language string
	// ApprovedURI overrides DefaultApprovedURI.
	ApprovedURI string
	// DataDir holds the user-writable web app override folder.
	DataDir string
	// PluginDir holds the bundled web app folder.
	PluginDir   string
	DownloadURL string
	// Detect checks engine availability; nil means always available.
	Detect func(ctx context.Context) engine.Availability
	// NewEngine creates the engine once detection passed.
	NewEngine func(ctx context.Context, avail engine.Availability) (engine.Engine, error)
	// OpenURL opens a link with the desktop; defaults to the OS opener.
	OpenURL func(link string) error
	// ID tags log lines; defaults to a process-unique sequence number.
	ID     string
	Logger pslog.Logger
}

var panelSeq atomic.Uint64

// Panel is safe for concurrent use; every call is serialised on its loop.
type Panel struct {
	cfg  Config
	id   string
	log  pslog.Logger
	loop *loop

	state    State
	fallback Fallback
	eng      engine.Engine
	guard    *navguard.Guard
	router   *protocol.Router
	transfer *transfer.Transfer
	active   *schema.ActiveFile
	source   string
	activeCh chan struct{}
	initErr  error
}

// New returns an uninitialized panel.
func New(cfg Config) *Panel {
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	if cfg.DownloadURL == "" {
		cfg.DownloadURL = engine.DefaultDownloadURL
	}
	if cfg.OpenURL == nil {
		cfg.OpenURL = openURL
	}
	id := cfg.ID
	if id == "" {
		id = fmt.Sprintf("%d", panelSeq.Add(1))
	}
	return &Panel{
		cfg:      cfg,
		id:       id,
		log:      log.With("panel", id),
		loop:     newLoop(),
		activeCh: make(chan struct{}),
	}
}

func (p *Panel) do(fn func()) error {
	if !p.loop.Do(fn) {
		return schema.ErrPanelDisposed
	}
	return nil
}

// Init looks for the engine and starts it. A missing engine is not an error:
// the panel moves to StateBrowserEngineMissing and exposes a Fallback.
func (p *Panel) Init(ctx context.Context) error {
	ctx = logx.ContextWithPanelLogger(ctx, p.log, p.id)
	var err error
	if derr := p.do(func() { err = p.init(ctx) }); derr != nil {
		return derr
	}
	return err
}

func (p *Panel) init(ctx context.Context) error {
	if p.state != StateUninitialized {
		return nil
	}
	avail := engine.Availability{}
	if p.cfg.Detect != nil {
		avail = p.cfg.Detect(ctx)
	}
	if !avail.Available() {
		p.missing(avail.Reason)
		return nil
	}
	if p.cfg.NewEngine == nil {
		p.missing("no browser engine configured")
		return nil
	}
	eng, err := p.cfg.NewEngine(ctx, avail)
	if err != nil {
		p.missing(err.Error())
		return nil
	}
	p.eng = eng
	p.transfer = transfer.New(eng, p.log)
	p.router = protocol.New(protocol.Config{
		Poster:     eng,
		Transfer:   p.transfer,
		Prefs:      p.cfg.Prefs,
		Relauncher: p.cfg.Relauncher,
		Language:   p.cfg.Language,
		ActiveFile: p.activeFile,
		Logger:     p.log,
	})
	p.state = StateInitializing
	p.log.Info("panel initializing", "engine", avail.ExecPath, "version", avail.Version)
	if err := eng.Start(ctx, p.handlers(ctx)); err != nil {
		_ = eng.Close()
		p.eng = nil
		p.missing(err.Error())
	}
	return nil
}

func (p *Panel) missing(reason string) {
	if strings.TrimSpace(reason) == "" {
		reason = schema.ErrEngineUnavailable.Error()
	}
	p.state = StateBrowserEngineMissing
	p.fallback = Fallback{Reason: reason, DownloadURL: p.cfg.DownloadURL}
	p.initErr = fmt.Errorf("%w: %s", schema.ErrEngineUnavailable, reason)
	p.log.Warn("panel browser engine missing", "reason", reason)
	p.signalSettled()
}

func (p *Panel) signalSettled() {
	select {
	case <-p.activeCh:
	default:
		close(p.activeCh)
	}
}

func (p *Panel) handlers(ctx context.Context) engine.Handlers {
	return engine.Handlers{
		Initialized: func(err error) {
			_ = p.do(func() { p.onInitialized(ctx, err) })
		},
		NavigationStarting: func(ev *engine.NavigationEvent) {
			if p.do(func() { p.onNavigationStarting(ev) }) != nil {
				ev.Cancel = true
			}
		},
		FrameNavigationStarting: func(ev *engine.NavigationEvent) {
			if p.do(func() { p.onFrameNavigationStarting(ev) }) != nil {
				ev.Cancel = true
			}
		},
		NewWindowRequested: func(ev *engine.NavigationEvent) {
			if p.do(func() { p.onNewWindowRequested(ev) }) != nil {
				ev.Cancel = true
			}
		},
		WebMessage: func(json string) {
			_ = p.do(func() { p.onWebMessage(ctx, json) })
		},
	}
}

func (p *Panel) onInitialized(ctx context.Context, err error) {
	if p.state != StateInitializing {
		return
	}
	if err != nil {
		if p.eng != nil {
			_ = p.eng.Close()
			p.eng = nil
		}
		p.missing(err.Error())
		return
	}
	uri := p.resolveWebApp()
	if err := p.eng.ClearBrowsingData(ctx); err != nil {
		p.log.Warn("panel clear browsing data failed", "err", err)
	}
	p.guard = navguard.New(uri)
	p.source = uri
	p.state = StateActive
	p.signalSettled()
	if err := p.eng.Navigate(uri); err != nil {
		p.log.Error("panel navigate failed", "uri", uri, "err", err)
		return
	}
	p.log.Info("panel active", "uri", uri)
}

// resolveWebApp picks the web app source: an override URL from settings, a
// build in the data directory, then the build bundled with the plugin. Local
// builds are served under the approved URI's host.
func (p *Panel) resolveWebApp() string {
	if override := p.cfg.Prefs.WebAppURL(); override != "" {
		if u, err := url.Parse(override); err == nil && u.IsAbs() {
			p.log.Info("panel web app from url", "url", override)
			return override
		}
		p.log.Warn("panel web app url invalid", "url", override)
	}
	approved := p.cfg.ApprovedURI
	if approved == "" {
		approved = DefaultApprovedURI
	}
	u, err := url.Parse(approved)
	if err != nil || u.Host == "" {
		p.log.Warn("panel approved uri invalid", "uri", approved)
		return approved
	}
	for _, candidate := range []struct {
		origin string
		dir    string
	}{
		{"data", webAppDir(p.cfg.DataDir)},
		{"plugin", webAppDir(p.cfg.PluginDir)},
	} {
		if candidate.dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(candidate.dir, "index.html")); err != nil {
			continue
		}
		if err := p.eng.MapVirtualHost(u.Hostname(), candidate.dir); err != nil {
			p.log.Warn("panel virtual host failed", "dir", candidate.dir, "err", err)
			continue
		}
		p.log.Info("panel web app from folder", "origin", candidate.origin, "dir", candidate.dir)
		break
	}
	return approved
}

func webAppDir(base string) string {
	if strings.TrimSpace(base) == "" {
		return ""
	}
	return filepath.Join(base, WebAppDirName)
}

func (p *Panel) onNavigationStarting(ev *engine.NavigationEvent) {
	if p.guard == nil {
		ev.Cancel = true
		return
	}
	d := p.guard.CheckTopLevel(ev.URI)
	ev.Cancel = d.Cancel
	if d.Cancel {
		p.log.Debug("panel navigation cancelled", "uri", ev.URI)
	}
}

func (p *Panel) onFrameNavigationStarting(ev *engine.NavigationEvent) {
	if p.guard == nil {
		ev.Cancel = true
		return
	}
	d := p.guard.CheckFrame(ev.URI)
	ev.Cancel = d.Cancel
	if d.Cancel {
		p.log.Debug("panel frame navigation cancelled", "uri", ev.URI)
	}
	if d.Notify && p.router != nil {
		_ = p.router.SendFrameNavigationRejected()
	}
}

func (p *Panel) onNewWindowRequested(ev *engine.NavigationEvent) {
	d := navguard.Decision{Cancel: true, Notify: true}
	if p.guard != nil {
		d = p.guard.CheckNewWindow(ev.URI)
	}
	ev.Cancel = d.Cancel
	p.log.Debug("panel new window suppressed", "uri", ev.URI)
	if d.Notify && p.router != nil {
		_ = p.router.SendNewWindowRejected()
	}
}

func (p *Panel) onWebMessage(ctx context.Context, json string) {
	if p.router == nil || p.state != StateActive {
		return
	}
	if err := p.router.HandleMessage(ctx, json); err != nil {
		logx.WithPanel(ctx, p.id).Error("panel message failed", "err", err)
	}
}

func (p *Panel) activeFile() (schema.ActiveFile, bool) {
	if p.active == nil {
		return schema.ActiveFile{}, false
	}
	return *p.active, true
}

// WaitSettled blocks until the panel is Active or BrowserEngineMissing.
func (p *Panel) WaitSettled(ctx context.Context) error {
	select {
	case <-p.activeCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the lifecycle state.
func (p *Panel) State() State {
	s := StateDisposed
	_ = p.do(func() { s = p.state })
	return s
}

// Ready reports whether the web app completed the readiness handshake.
func (p *Panel) Ready() bool {
	ready := false
	_ = p.do(func() { ready = p.router != nil && p.router.Ready() })
	return ready
}

// Source is the approved document URI once Active.
func (p *Panel) Source() string {
	var s string
	_ = p.do(func() { s = p.source })
	return s
}

// Fallback returns the install prompt when the engine is missing.
func (p *Panel) Fallback() (Fallback, bool) {
	var (
		fb Fallback
		ok bool
	)
	_ = p.do(func() {
		fb, ok = p.fallback, p.state == StateBrowserEngineMissing
	})
	return fb, ok
}

// Err reports why the engine is unavailable, or nil.
func (p *Panel) Err() error {
	var err error
	_ = p.do(func() { err = p.initErr })
	return err
}

// OpenDownload opens the fallback download link.
func (p *Panel) OpenDownload() error {
	fb, ok := p.Fallback()
	if !ok {
		return errors.New("browser engine is available")
	}
	return p.cfg.OpenURL(fb.DownloadURL)
}

// Extensions returns the current allow-list.
func (p *Panel) Extensions() prefs.Extensions {
	var exts prefs.Extensions
	if err := p.do(func() {
		if p.router != nil {
			exts = p.router.Extensions()
			return
		}
		exts = p.cfg.Prefs.Extensions()
	}); err != nil {
		return p.cfg.Prefs.Extensions()
	}
	return exts
}

// NavigateToFile makes path the active file. Once the web app is ready the
// file is sent immediately; before that it is sent on readiness.
func (p *Panel) NavigateToFile(ctx context.Context, path string) error {
	file, err := schema.NewActiveFile(path)
	if err != nil {
		return err
	}
	var sendErr error
	if err := p.do(func() {
		if p.state == StateDisposed {
			sendErr = schema.ErrPanelDisposed
			return
		}
		p.active = &file
		log := logx.WithFile(p.log, file)
		if p.router == nil || !p.router.Ready() {
			log.Debug("panel file pending")
			return
		}
		sendErr = p.router.SendFile(ctx, file)
		if sendErr != nil {
			log.Error("panel file send failed", "err", sendErr)
		}
	}); err != nil {
		return err
	}
	return sendErr
}

// Unload drops the active file and its buffer. The engine and readiness
// survive for the next file.
func (p *Panel) Unload() error {
	var sendErr error
	if err := p.do(func() {
		p.active = nil
		if p.transfer != nil {
			p.transfer.Release()
		}
		if p.router != nil {
			sendErr = p.router.SendUnload()
		}
	}); err != nil {
		return err
	}
	return sendErr
}

// Dispose tears the engine down. The panel is unusable afterwards; normal
// operation only calls Unload.
func (p *Panel) Dispose() error {
	var closeErr error
	if err := p.do(func() {
		p.active = nil
		if p.transfer != nil {
			p.transfer.Release()
		}
		if p.router != nil {
			p.router.Reset()
		}
		if p.eng != nil {
			closeErr = p.eng.Close()
			p.eng = nil
		}
		p.state = StateDisposed
		p.signalSettled()
		p.log.Info("panel disposed")
	}); err != nil {
		return nil
	}
	p.loop.Stop()
	return closeErr
}
