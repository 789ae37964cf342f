package main

import (
	"fmt"
	"io"
	"sync"

	"pkt.systems/webviewplus/internal/panel"
	"pkt.systems/webviewplus/internal/plugin"
)

// consoleHost stands in for a desktop window: it tracks the requested size
// and reports title and busy changes on out.
type consoleHost struct {
	mu  sync.Mutex
	out io.Writer
	// screen bounds the window; zero means unbounded.
	screen  plugin.Size
	size    plugin.Size
	title   string
	busy    bool
	content *panel.Panel
}

func newConsoleHost(out io.Writer) *consoleHost {
	return &consoleHost{out: out, busy: true}
}

// SetPreferredSizeFit keeps size unless it exceeds fit times the screen, in
// which case it is scaled down with its aspect ratio intact.
func (h *consoleHost) SetPreferredSizeFit(size plugin.Size, fit float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.size = fitSize(size, h.screen, fit)
}

func fitSize(size, screen plugin.Size, fit float64) plugin.Size {
	if fit <= 0 || fit > 1 {
		fit = 1
	}
	if screen.Width <= 0 || screen.Height <= 0 || size.Width <= 0 || size.Height <= 0 {
		return size
	}
	scale := min((screen.Width*fit)/size.Width, (screen.Height*fit)/size.Height)
	if scale >= 1 {
		return size
	}
	return plugin.Size{Width: size.Width * scale, Height: size.Height * scale}
}

func (h *consoleHost) SetViewerContent(p *panel.Panel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.content = p
}

func (h *consoleHost) SetTitle(title string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.title = title
	_, _ = fmt.Fprintf(h.out, "viewing %s\n", title)
}

func (h *consoleHost) SetBusy(busy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.busy = busy
}

func (h *consoleHost) ContentSize() plugin.Size {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

func (h *consoleHost) Title() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.title
}

func (h *consoleHost) Busy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.busy
}
