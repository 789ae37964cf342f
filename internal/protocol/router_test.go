package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/webviewplus/internal/engine"
	"pkt.systems/webviewplus/internal/engine/enginetest"
	"pkt.systems/webviewplus/internal/prefs"
	"pkt.systems/webviewplus/internal/settings"
	"pkt.systems/webviewplus/internal/transfer"
	"pkt.systems/webviewplus/schema"
)

type fakeRelauncher struct {
	calls int
	err   error
}

func (f *fakeRelauncher) Relaunch() error {
	f.calls++
	return f.err
}

type harness struct {
	fake     *enginetest.Fake
	router   *Router
	store    settings.Store
	restart  *fakeRelauncher
	active   *schema.ActiveFile
	transfer *transfer.Transfer
}

func newHarness(t *testing.T, store settings.Store) *harness {
	t.Helper()
	h := &harness{
		fake:    enginetest.New(),
		store:   store,
		restart: &fakeRelauncher{},
	}
	h.transfer = transfer.New(h.fake, nil)
	h.router = New(Config{
		Poster:     h.fake,
		Transfer:   h.transfer,
		Prefs:      prefs.New(store),
		Relauncher: h.restart,
		Language:   "en-US",
		ActiveFile: func() (schema.ActiveFile, bool) {
			if h.active == nil {
				return schema.ActiveFile{}, false
			}
			return *h.active, true
		},
	})
	return h
}

func (h *harness) setActive(t *testing.T, name string, data []byte) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	file, err := schema.NewActiveFile(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	h.active = &file
}

func (h *harness) send(t *testing.T, cmd schema.Command) {
	t.Helper()
	raw, err := schema.EncodeCommand(cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := h.router.HandleMessage(context.Background(), string(raw)); err != nil {
		t.Fatalf("handle %s: %v", cmd.Name(), err)
	}
}

func TestReadyWithoutActiveFileSendsInitDataOnly(t *testing.T) {
	h := newHarness(t, settings.NewMemoryStore())
	h.send(t, schema.AppReadyForData{})
	if !h.router.Ready() {
		t.Fatalf("expected Ready")
	}
	msgs := h.fake.Strings()
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %v", msgs)
	}
	init, err := schema.ParseInitData(msgs[0])
	if err != nil {
		t.Fatalf("parse init data: %v", err)
	}
	want := schema.InitData{LangCode: "en-US", DetectEncoding: false, ShowTrayIcon: true, UseTransparency: true}
	if init != want {
		t.Fatalf("unexpected init data %+v", init)
	}
	if len(h.fake.Posts()) != 0 {
		t.Fatalf("expected no payload without an active file")
	}
}

func TestReadyTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t, settings.NewMemoryStore())
	h.setActive(t, "report.pdf", []byte("%PDF-1.7"))
	h.send(t, schema.AppReadyForData{})
	h.send(t, schema.AppReadyForData{})

	if !h.router.Ready() {
		t.Fatalf("expected Ready")
	}
	posts := h.fake.Posts()
	if len(posts) != 2 {
		t.Fatalf("expected file re-sent on second ready, got %d posts", len(posts))
	}
	if h.fake.LiveBuffers() != 1 {
		t.Fatalf("expected exactly one live buffer, got %d", h.fake.LiveBuffers())
	}
	for _, msg := range h.fake.Strings() {
		if !strings.HasPrefix(msg, "initData:") {
			t.Fatalf("unexpected string message %q", msg)
		}
	}
}

func TestSendFileBinaryPayload(t *testing.T) {
	h := newHarness(t, settings.NewMemoryStore())
	h.setActive(t, "report.pdf", []byte("%PDF-1.7 binary"))
	h.send(t, schema.AppReadyForData{})

	posts := h.fake.Posts()
	if len(posts) != 1 {
		t.Fatalf("expected one post, got %d", len(posts))
	}
	post := posts[0]
	if post.Access != engine.AccessReadOnly {
		t.Fatalf("expected read-only access, got %v", post.Access)
	}
	if string(post.Data) != "%PDF-1.7 binary" || post.Size != 15 {
		t.Fatalf("unexpected buffer %q (%d)", post.Data, post.Size)
	}
	var data schema.FileData
	if err := json.Unmarshal([]byte(post.AdditionalData), &data); err != nil {
		t.Fatalf("decode sidecar: %v", err)
	}
	if !data.IsBinary || data.FileName != "report.pdf" || data.TextContent != "" || data.FileSize != 15 {
		t.Fatalf("unexpected sidecar %+v", data)
	}
	out := h.fake.Outbound()
	if len(out) != 2 {
		t.Fatalf("expected two deliveries, got %+v", out)
	}
	if out[0].Kind != enginetest.OutboundString || !strings.HasPrefix(out[0].Payload, "initData:") {
		t.Fatalf("expected init data first, got %+v", out[0])
	}
	if out[1].Kind != enginetest.OutboundBuffer || out[1].Payload != post.AdditionalData {
		t.Fatalf("expected payload second, got %+v", out[1])
	}
}

func TestSendFileTextPayloadIgnoresBuffer(t *testing.T) {
	h := newHarness(t, settings.NewMemoryStore())
	h.setActive(t, "main.go", []byte("package main\n"))
	h.send(t, schema.AppReadyForData{})

	post := h.fake.Posts()[0]
	if post.Size != 1 {
		t.Fatalf("text payload must use the 1 byte placeholder, got %d", post.Size)
	}
	if !strings.Contains(post.AdditionalData, `"textContent":"package main\n"`) {
		t.Fatalf("text not inline in sidecar: %s", post.AdditionalData)
	}
	if !strings.Contains(post.AdditionalData, `"isBinary":false`) {
		t.Fatalf("expected isBinary false: %s", post.AdditionalData)
	}
}

func TestNothingSentBeforeReady(t *testing.T) {
	h := newHarness(t, settings.NewMemoryStore())
	h.setActive(t, "a.txt", []byte("a"))
	if err := h.router.SendFile(context.Background(), *h.active); !errors.Is(err, schema.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	for _, send := range []func() error{
		h.router.SendUnload,
		h.router.SendNewWindowRejected,
		h.router.SendFrameNavigationRejected,
	} {
		if err := send(); err != nil {
			t.Fatalf("notice before ready: %v", err)
		}
	}
	if len(h.fake.Strings()) != 0 || len(h.fake.Posts()) != 0 {
		t.Fatalf("messages sent before ready: %v", h.fake.Strings())
	}
	if h.fake.LiveBuffers() != 0 {
		t.Fatalf("buffer allocated before ready")
	}
}

func TestNoticesAfterReady(t *testing.T) {
	h := newHarness(t, settings.NewMemoryStore())
	h.send(t, schema.AppReadyForData{})
	_ = h.router.SendFrameNavigationRejected()
	_ = h.router.SendNewWindowRejected()
	_ = h.router.SendUnload()
	got := h.fake.Strings()[1:]
	want := []string{"frameNavigationRejected", "newWindowRejected", "unload"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected notices %v", got)
	}
	h.router.Reset()
	if h.router.Ready() {
		t.Fatalf("expected NotReady after reset")
	}
}

func TestUpdateExtensionsPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), settings.DefaultFileName)
	store, err := settings.Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	h := newHarness(t, store)
	if !h.router.Extensions().Contains("md") || h.router.Extensions().Contains("foo") {
		t.Fatalf("unexpected default allow-list")
	}
	h.send(t, schema.UpdateExtensions{Extensions: []string{"foo", "bar"}})
	if !h.router.Extensions().Contains("foo") || h.router.Extensions().Contains("md") {
		t.Fatalf("allow-list not replaced: %v", h.router.Extensions().List())
	}

	reopened, err := settings.Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	restarted := newHarness(t, reopened)
	if !restarted.router.Extensions().Contains("bar") || restarted.router.Extensions().Contains("md") {
		t.Fatalf("allow-list did not survive restart: %v", restarted.router.Extensions().List())
	}
}

func TestPreferenceCommands(t *testing.T) {
	store := settings.NewMemoryStore()
	h := newHarness(t, store)
	h.send(t, schema.SetDetectEncoding{Enabled: true})
	h.send(t, schema.SetShowTrayIcon{Enabled: false})
	h.send(t, schema.SetUseTransparency{Enabled: false})
	if !h.router.DetectEncoding() {
		t.Fatalf("expected detect encoding reloaded")
	}
	h.send(t, schema.AppReadyForData{})
	init, err := schema.ParseInitData(h.fake.Strings()[0])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !init.DetectEncoding || init.ShowTrayIcon || init.UseTransparency {
		t.Fatalf("init data does not reflect stored preferences: %+v", init)
	}
	if v, _ := store.Get(settings.GlobalScope, prefs.KeyShowTrayIcon); v != "false" {
		t.Fatalf("tray icon not persisted globally: %q", v)
	}
}

func TestRestartCommand(t *testing.T) {
	h := newHarness(t, settings.NewMemoryStore())
	h.send(t, schema.RequestRestart{})
	if h.restart.calls != 1 {
		t.Fatalf("expected one relaunch, got %d", h.restart.calls)
	}
	h.restart.err = errors.New("spawn failed")
	if err := h.router.HandleMessage(context.Background(), `{"command":"Restart"}`); err == nil {
		t.Fatalf("expected relaunch error")
	}
}

func TestUnknownAndMalformedIgnored(t *testing.T) {
	h := newHarness(t, settings.NewMemoryStore())
	for _, raw := range []string{`{"command":"Bogus","data":["x"]}`, `not json`, `[]`, ``} {
		if err := h.router.HandleMessage(context.Background(), raw); err != nil {
			t.Fatalf("handle %q: %v", raw, err)
		}
	}
	if h.router.Ready() || len(h.fake.Strings()) != 0 {
		t.Fatalf("ignored messages had side effects")
	}
}

func TestReadySendFailureSurfaces(t *testing.T) {
	h := newHarness(t, settings.NewMemoryStore())
	h.setActive(t, "gone.txt", []byte("x"))
	if err := os.Remove(h.active.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	err := h.router.HandleMessage(context.Background(), `{"command":"AppReadyForData"}`)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if !h.router.Ready() {
		t.Fatalf("readiness must not depend on the file send")
	}
}
