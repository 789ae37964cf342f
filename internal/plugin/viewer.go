// Package plugin adapts the panel to the preview host's viewer contract:
// Init, CanHandle, Prepare, View, Cleanup.
package plugin

import (
	"context"
	"os"
	"path/filepath"

	"pkt.systems/pslog"
	"pkt.systems/webviewplus/internal/panel"
	"pkt.systems/webviewplus/internal/prefs"
	"pkt.systems/webviewplus/schema"
)

// Priority is reported to hosts that rank competing viewers.
const Priority = 1

// Size is a width/height pair in host units.
type Size struct {
	Width  float64
	Height float64
}

// HostContext is the host window a viewer renders into.
type HostContext interface {
	// SetPreferredSizeFit asks for size, scaled down to fit within the given
	// fraction of the screen.
	SetPreferredSizeFit(size Size, fit float64)
	SetViewerContent(p *panel.Panel)
	SetTitle(title string)
	SetBusy(busy bool)
	// ContentSize is the current size of the viewer content.
	ContentSize() Size
}

// Viewer keeps one warm panel for the life of the process.
type Viewer struct {
	prefs    *prefs.Prefs
	newPanel func() *panel.Panel
	log      pslog.Logger

	panel *panel.Panel
	host  HostContext
}

// NewViewer returns a viewer creating its panel with newPanel on Init.
func NewViewer(p *prefs.Prefs, newPanel func() *panel.Panel, logger pslog.Logger) *Viewer {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Viewer{prefs: p, newPanel: newPanel, log: logger}
}

// Init creates and starts the panel once.
func (v *Viewer) Init(ctx context.Context) error {
	if v.panel != nil {
		return nil
	}
	v.panel = v.newPanel()
	return v.panel.Init(ctx)
}

// Panel returns the warm panel, or nil before Init.
func (v *Viewer) Panel() *panel.Panel { return v.panel }

// CanHandle reports whether path is a file with an allowed extension.
func (v *Viewer) CanHandle(path string) bool {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return false
	}
	ext := schema.Extension(path)
	if ext == "" {
		return false
	}
	if v.panel != nil {
		return v.panel.Extensions().Contains(ext)
	}
	return v.prefs.Extensions().Contains(ext)
}

// Prepare requests the persisted window size.
func (v *Viewer) Prepare(_ string, host HostContext) {
	width, height := v.prefs.WindowSize()
	host.SetPreferredSizeFit(Size{Width: width, Height: height}, prefs.WindowFit)
}

// View binds the panel to host and starts the preview of path.
func (v *Viewer) View(ctx context.Context, path string, host HostContext) error {
	if v.panel == nil {
		if err := v.Init(ctx); err != nil {
			return err
		}
	}
	v.host = host
	host.SetViewerContent(v.panel)
	host.SetTitle(title(path))
	err := v.panel.NavigateToFile(ctx, path)
	host.SetBusy(false)
	if err != nil {
		v.log.Error("viewer navigate failed", "path", path, "err", err)
	}
	return err
}

// Cleanup persists the content size and unloads the panel. The engine stays
// warm for the next View.
func (v *Viewer) Cleanup() {
	if v.host != nil {
		size := v.host.ContentSize()
		if err := v.prefs.SaveWindowSize(size.Width, size.Height); err != nil {
			v.log.Warn("viewer window size save failed", "err", err)
		}
		v.host = nil
	}
	if v.panel == nil {
		return
	}
	if err := v.panel.Unload(); err != nil {
		v.log.Warn("viewer unload failed", "err", err)
	}
}

// Close disposes the panel. Only call at process exit.
func (v *Viewer) Close() error {
	if v.panel == nil {
		return nil
	}
	err := v.panel.Dispose()
	v.panel = nil
	return err
}

func title(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Base(path)
	}
	return path
}
