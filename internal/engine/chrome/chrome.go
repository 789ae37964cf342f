// Package chrome implements engine.Engine on a Chromium-family browser driven
// over the DevTools protocol.
package chrome

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"
	"pkt.systems/webviewplus/internal/engine"
	"pkt.systems/webviewplus/schema"
)

// UserDataDirName is the profile folder created under the data directory.
const UserDataDirName = "WebViewPlus_Data"

// clearedStorage lists what ClearBrowsingData drops. Local storage is kept.
// Download history, autofill, saved passwords and site settings are profile
// wide in Chrome and have no per-origin DevTools call, so they are not cleared.
const clearedStorage = "file_systems,indexeddb,websql,cache_storage,service_workers,cookies"

// Config controls the browser launch.
type Config struct {
	ExecPath    string
	UserDataDir string
	Language    string
	Headless    bool
	// Origins are cleared by ClearBrowsingData in addition to mapped hosts.
	Origins      []string
	WindowWidth  int
	WindowHeight int
	Logger       pslog.Logger
}

// Engine drives one browser page.
type Engine struct {
	cfg Config
	log pslog.Logger

	mu       sync.Mutex
	handlers engine.Handlers
	ctx      context.Context
	cancel   context.CancelFunc
	hosts    map[string]*host
	buffers  map[string]*engine.RegionBuffer
	source   string
	started  bool
	closed   bool
	mainID   target.ID
	queue    *eventQueue
	initDone chan struct{}
}

var _ engine.Engine = (*Engine)(nil)

// New returns an engine that launches the browser on Start.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Engine{
		cfg:      cfg,
		log:      log.With("engine", "chrome"),
		hosts:    make(map[string]*host),
		buffers:  make(map[string]*engine.RegionBuffer),
		initDone: make(chan struct{}),
	}
}

func (e *Engine) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", e.cfg.Headless),
		chromedp.Flag("hide-scrollbars", false),
		chromedp.Flag("mute-audio", false),
		chromedp.Flag("disable-extensions", true),
	)
	if e.cfg.Headless {
		opts = append(opts,
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		)
	}
	if e.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(e.cfg.ExecPath))
	}
	if e.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(e.cfg.UserDataDir))
	}
	if e.cfg.Language != "" {
		opts = append(opts, chromedp.Flag("lang", e.cfg.Language))
	}
	if e.cfg.WindowWidth > 0 && e.cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(e.cfg.WindowWidth, e.cfg.WindowHeight))
	}
	return opts
}

// Start launches the browser in the background. Handlers.Initialized reports
// the outcome.
func (e *Engine) Start(ctx context.Context, h engine.Handlers) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return schema.ErrEngineClosed
	}
	if e.started {
		e.mu.Unlock()
		return errors.New("chrome engine already started")
	}
	e.started = true
	e.handlers = h
	e.queue = newEventQueue()
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), e.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(e.logf))
	e.ctx = tabCtx
	e.cancel = func() {
		tabCancel()
		allocCancel()
	}
	e.mu.Unlock()

	go e.launch(tabCtx)
	return nil
}

func (e *Engine) logf(format string, args ...any) {
	e.log.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
}

func (e *Engine) launch(ctx context.Context) {
	defer close(e.initDone)
	err := chromedp.Run(ctx)
	if err == nil {
		c := chromedp.FromContext(ctx)
		e.mu.Lock()
		e.mainID = c.Target.TargetID
		e.mu.Unlock()
		chromedp.ListenTarget(ctx, e.onTargetEvent)
		chromedp.ListenBrowser(ctx, e.onBrowserEvent)
		err = chromedp.Run(ctx,
			page.Enable(),
			runtime.Enable(),
			runtime.AddBinding(bindingName),
			chromedp.ActionFunc(func(ctx context.Context) error {
				_, err := page.AddScriptToEvaluateOnNewDocument(shimScript).Do(ctx)
				return err
			}),
			fetch.Enable().WithPatterns([]*fetch.RequestPattern{{
				URLPattern:   "*",
				RequestStage: fetch.RequestStageRequest,
			}}),
		)
	}
	if err != nil {
		e.log.Warn("chrome start failed", "err", err)
	} else {
		e.log.Info("chrome started", "target", e.mainID)
	}
	h := e.currentHandlers()
	e.queue.push(func() {
		if h.Initialized != nil {
			h.Initialized(err)
		}
	})
}

func (e *Engine) currentHandlers() engine.Handlers {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handlers
}

func (e *Engine) onTargetEvent(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventBindingCalled:
		if ev.Name != bindingName {
			return
		}
		payload := ev.Payload
		h := e.currentHandlers()
		e.queue.push(func() {
			if h.WebMessage != nil {
				h.WebMessage(payload)
			}
		})
	case *fetch.EventRequestPaused:
		go e.onRequestPaused(ev)
	case *page.EventJavascriptDialogOpening:
		go func() {
			if err := e.run(page.HandleJavaScriptDialog(false)); err != nil {
				e.log.Debug("chrome dialog dismiss failed", "err", err)
			}
		}()
	}
}

func (e *Engine) onBrowserEvent(ev any) {
	created, ok := ev.(*target.EventTargetCreated)
	if !ok || created.TargetInfo == nil {
		return
	}
	info := created.TargetInfo
	e.mu.Lock()
	mainID := e.mainID
	e.mu.Unlock()
	if info.Type != "page" || info.OpenerID == "" || info.OpenerID != mainID {
		return
	}
	h := e.currentHandlers()
	e.queue.push(func() {
		nav := &engine.NavigationEvent{URI: info.URL, Cancel: true}
		if h.NewWindowRequested != nil {
			h.NewWindowRequested(nav)
		}
		if !nav.Cancel {
			return
		}
		go e.closeTarget(info.TargetID)
	})
}

func (e *Engine) closeTarget(id target.ID) {
	e.mu.Lock()
	ctx := e.ctx
	e.mu.Unlock()
	if ctx == nil {
		return
	}
	c := chromedp.FromContext(ctx)
	if c == nil || c.Browser == nil {
		return
	}
	if err := target.CloseTarget(id).Do(cdp.WithExecutor(ctx, c.Browser)); err != nil {
		e.log.Debug("chrome close window failed", "target", id, "err", err)
	}
}

func (e *Engine) run(actions ...chromedp.Action) error {
	e.mu.Lock()
	ctx, closed := e.ctx, e.closed
	e.mu.Unlock()
	if closed || ctx == nil {
		return schema.ErrEngineClosed
	}
	return chromedp.Run(ctx, actions...)
}

func (e *Engine) onRequestPaused(ev *fetch.EventRequestPaused) {
	if ev.Request == nil {
		_ = e.run(fetch.ContinueRequest(ev.RequestID))
		return
	}
	if ev.ResourceType == network.ResourceTypeDocument {
		if !e.allowDocument(ev) {
			if err := e.run(fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient)); err != nil {
				e.log.Debug("chrome block request failed", "err", err)
			}
			return
		}
	}
	u, err := url.Parse(ev.Request.URL)
	if err != nil {
		_ = e.run(fetch.FailRequest(ev.RequestID, network.ErrorReasonFailed))
		return
	}
	if strings.HasPrefix(u.Path, bufferPathPrefix) {
		e.serveBuffer(ev.RequestID, strings.TrimPrefix(u.Path, bufferPathPrefix))
		return
	}
	e.mu.Lock()
	h := e.hosts[strings.ToLower(u.Hostname())]
	e.mu.Unlock()
	if h != nil && (u.Scheme == "https" || u.Scheme == "http") {
		e.fulfill(ev.RequestID, h.serve(u.Path))
		return
	}
	if err := e.run(fetch.ContinueRequest(ev.RequestID)); err != nil {
		e.log.Debug("chrome continue request failed", "err", err)
	}
}

// allowDocument runs the navigation hooks for a document request and reports
// whether it may proceed. Main-frame requests carry the target id as frame id.
func (e *Engine) allowDocument(ev *fetch.EventRequestPaused) bool {
	e.mu.Lock()
	mainID := e.mainID
	e.mu.Unlock()
	h := e.currentHandlers()
	hook := h.FrameNavigationStarting
	if ev.FrameID == cdp.FrameID(mainID) {
		hook = h.NavigationStarting
	}
	if hook == nil {
		return true
	}
	nav := &engine.NavigationEvent{URI: ev.Request.URL}
	hook(nav)
	return !nav.Cancel
}

func (e *Engine) serveBuffer(id fetch.RequestID, token string) {
	e.mu.Lock()
	buf := e.buffers[token]
	e.mu.Unlock()
	if buf == nil {
		e.fulfill(id, response{status: 404})
		return
	}
	data, err := buf.Snapshot()
	if err != nil {
		e.fulfill(id, response{status: 410})
		return
	}
	e.fulfill(id, response{status: 200, contentType: "application/octet-stream", body: data})
}

func (e *Engine) fulfill(id fetch.RequestID, r response) {
	headers := []*fetch.HeaderEntry{
		{Name: "Cache-Control", Value: "no-store"},
	}
	if r.contentType != "" {
		headers = append(headers, &fetch.HeaderEntry{Name: "Content-Type", Value: r.contentType})
	}
	action := fetch.FulfillRequest(id, int64(r.status)).WithResponseHeaders(headers)
	if len(r.body) > 0 {
		action = action.WithBody(base64.StdEncoding.EncodeToString(r.body))
	}
	if err := e.run(action); err != nil {
		e.log.Debug("chrome fulfill failed", "status", r.status, "err", err)
	}
}

func (e *Engine) MapVirtualHost(hostname, dir string) error {
	h, err := newHost(dir)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		_ = h.close()
		return schema.ErrEngineClosed
	}
	key := strings.ToLower(hostname)
	if prev := e.hosts[key]; prev != nil {
		_ = prev.close()
	}
	e.hosts[key] = h
	e.log.Debug("chrome virtual host mapped", "host", key, "dir", dir)
	return nil
}

// Navigate loads uri in the background.
func (e *Engine) Navigate(uri string) error {
	e.mu.Lock()
	if e.closed || e.ctx == nil {
		e.mu.Unlock()
		return schema.ErrEngineClosed
	}
	e.source = uri
	e.mu.Unlock()
	go func() {
		if err := e.run(chromedp.Navigate(uri)); err != nil {
			e.log.Warn("chrome navigate failed", "uri", uri, "err", err)
		}
	}()
	return nil
}

func (e *Engine) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

func (e *Engine) ClearBrowsingData(ctx context.Context) error {
	e.mu.Lock()
	origins := append([]string(nil), e.cfg.Origins...)
	for hostname := range e.hosts {
		origins = append(origins, "https://"+hostname)
	}
	e.mu.Unlock()
	actions := []chromedp.Action{
		network.ClearBrowserCache(),
		network.ClearBrowserCookies(),
	}
	seen := make(map[string]bool, len(origins))
	for _, origin := range origins {
		origin = originOf(origin)
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		actions = append(actions, storage.ClearDataForOrigin(origin, clearedStorage))
	}
	if err := e.run(actions...); err != nil {
		return fmt.Errorf("clear browsing data: %w", err)
	}
	return nil
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func (e *Engine) CreateSharedBuffer(size int64) (engine.SharedBuffer, error) {
	return engine.NewRegionBuffer(size)
}

// PostSharedBuffer publishes buf to the page. Read-only buffers are sealed
// first; the page fetches the contents from a one-off same-origin URL.
func (e *Engine) PostSharedBuffer(buf engine.SharedBuffer, access engine.Access, additionalData string) error {
	rb, ok := buf.(*engine.RegionBuffer)
	if !ok {
		return errors.New("chrome: shared buffer was not created by this engine")
	}
	if access == engine.AccessReadOnly {
		if err := rb.Seal(); err != nil {
			return err
		}
	}
	token := rb.ID() + "-" + rand.Text()
	e.mu.Lock()
	for k, b := range e.buffers {
		if b.Closed() {
			delete(e.buffers, k)
		}
	}
	e.buffers[token] = rb
	e.mu.Unlock()
	return e.eval("buffer", token, additionalData)
}

func (e *Engine) PostString(msg string) error {
	return e.eval("message", msg)
}

func (e *Engine) eval(fn string, args ...string) error {
	quoted := make([]string, len(args))
	for i, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			return err
		}
		quoted[i] = string(data)
	}
	expr := fmt.Sprintf("window.__webviewplus && window.__webviewplus.%s(%s)", fn, strings.Join(quoted, ","))
	return e.run(chromedp.Evaluate(expr, nil))
}

// Close shuts the browser down.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	cancel := e.cancel
	queue := e.queue
	hosts := e.hosts
	e.hosts = make(map[string]*host)
	e.buffers = make(map[string]*engine.RegionBuffer)
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if queue != nil {
		queue.close()
	}
	for _, h := range hosts {
		_ = h.close()
	}
	e.log.Info("chrome closed")
	return nil
}

// DefaultUserDataDir returns the profile directory under dataDir.
func DefaultUserDataDir(dataDir string) string {
	return filepath.Join(dataDir, UserDataDirName)
}
