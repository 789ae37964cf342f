package chrome

import (
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/webviewplus/internal/engine"
)

const testApproved = "https://webviewplus.test/index.html"

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping long test in -short mode")
	}
}

func requireBrowser(t *testing.T) engine.Availability {
	t.Helper()
	avail := engine.Detect(context.Background(), engine.DetectConfig{})
	if !avail.Available() {
		t.Skipf("no usable browser: %s", avail.Reason)
	}
	if _, err := exec.LookPath(avail.ExecPath); err != nil && !filepath.IsAbs(avail.ExecPath) {
		t.Skipf("browser not executable: %v", err)
	}
	return avail
}

type recorder struct {
	mu       sync.Mutex
	messages chan string
	frames   []string
	tops     []string
	init     chan error
}

func newRecorder() *recorder {
	return &recorder{messages: make(chan string, 16), init: make(chan error, 1)}
}

func (r *recorder) handlers() engine.Handlers {
	return engine.Handlers{
		Initialized: func(err error) { r.init <- err },
		NavigationStarting: func(ev *engine.NavigationEvent) {
			r.mu.Lock()
			r.tops = append(r.tops, ev.URI)
			r.mu.Unlock()
			ev.Cancel = ev.URI != testApproved
		},
		FrameNavigationStarting: func(ev *engine.NavigationEvent) {
			r.mu.Lock()
			r.frames = append(r.frames, ev.URI)
			r.mu.Unlock()
			ev.Cancel = true
		},
		WebMessage: func(json string) { r.messages <- json },
	}
}

func (r *recorder) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case raw := <-r.messages:
		msg := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			t.Fatalf("decode web message %q: %v", raw, err)
		}
		return msg
	case <-time.After(20 * time.Second):
		t.Fatalf("timed out waiting for web message")
	}
	return nil
}

func TestEngineRoundTrip(t *testing.T) {
	requireLong(t)
	avail := requireBrowser(t)

	eng := New(Config{
		ExecPath:    avail.ExecPath,
		UserDataDir: filepath.Join(t.TempDir(), UserDataDirName),
		Language:    "en-US",
		Headless:    true,
		Origins:     []string{testApproved},
	})
	defer eng.Close()
	rec := newRecorder()
	if err := eng.Start(context.Background(), rec.handlers()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case err := <-rec.init:
		if err != nil {
			t.Skipf("browser failed to start: %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatalf("timed out waiting for browser start")
	}

	if err := eng.MapVirtualHost("webviewplus.test", filepath.Join("testdata", "app")); err != nil {
		t.Fatalf("map: %v", err)
	}
	if err := eng.ClearBrowsingData(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := eng.Navigate(testApproved); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if msg := rec.next(t); msg["command"] != "AppReadyForData" {
		t.Fatalf("expected ready message, got %v", msg)
	}

	if err := eng.PostString("initData:{}"); err != nil {
		t.Fatalf("post string: %v", err)
	}
	buf, err := eng.CreateSharedBuffer(5)
	if err != nil {
		t.Fatalf("create buffer: %v", err)
	}
	defer buf.Close()
	copy(buf.Bytes(), "hello")
	if err := eng.PostSharedBuffer(buf, engine.AccessReadOnly, `{"fileName":"hello.bin","fileSize":5,"isBinary":true,"textContent":""}`); err != nil {
		t.Fatalf("post buffer: %v", err)
	}

	msg := rec.next(t)
	if data := joinData(msg); data != "message|initData:{}" {
		t.Fatalf("unexpected string echo %q", data)
	}
	msg = rec.next(t)
	if data := joinData(msg); data != "buffer|hello.bin|hello" {
		t.Fatalf("unexpected buffer echo %q", data)
	}
	if !buf.(*engine.RegionBuffer).ReadOnly() {
		t.Fatalf("read-only post must seal the buffer")
	}

	rec.mu.Lock()
	frames := append([]string(nil), rec.frames...)
	rec.mu.Unlock()
	found := false
	for _, f := range frames {
		if strings.HasPrefix(f, "https://example.invalid/") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected frame navigation hook for the foreign iframe, saw %v", frames)
	}

	if err := eng.Navigate("https://example.invalid/elsewhere"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec.mu.Lock()
		tops := append([]string(nil), rec.tops...)
		rec.mu.Unlock()
		if len(tops) > 0 && tops[len(tops)-1] == "https://example.invalid/elsewhere" {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("top-level navigation hook not called for a foreign URL")
}

func joinData(msg map[string]any) string {
	raw, _ := msg["data"].([]any)
	parts := make([]string, 0, len(raw))
	for _, v := range raw {
		s, _ := v.(string)
		parts = append(parts, s)
	}
	return strings.Join(parts, "|")
}

func TestEventQueueOrder(t *testing.T) {
	q := newEventQueue()
	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		q.push(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 99 {
				close(done)
			}
		})
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("queue stalled")
	}
	q.close()
	<-q.done
	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %v", i, got)
		}
	}
	q.push(func() { t.Fatalf("push after close must be dropped") })
}

func TestStartAfterClose(t *testing.T) {
	eng := New(Config{})
	if err := eng.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := eng.Start(context.Background(), engine.Handlers{}); err == nil {
		t.Fatalf("expected start after close to fail")
	}
	if err := eng.Navigate(testApproved); err == nil {
		t.Fatalf("expected navigate after close to fail")
	}
}
