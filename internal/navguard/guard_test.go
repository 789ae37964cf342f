package navguard

import "testing"

const approved = "https://webviewplus.mooflu.com/index.html"

func TestCheckTopLevel(t *testing.T) {
	g := New(approved)
	cases := []struct {
		uri    string
		cancel bool
	}{
		{approved, false},
		{"HTTPS://WebViewPlus.Mooflu.com/index.html", false},
		{approved + "#section", false},
		{"https://webviewplus.mooflu.com/index.html?x=1", true},
		{"https://webviewplus.mooflu.com/index.html/other", true},
		{"https://webviewplus.mooflu.com/", true},
		{"https://webviewplus.mooflu.com.evil.example/index.html", true},
		{"http://webviewplus.mooflu.com/index.html", true},
		{"https://evil.example", true},
		{"", true},
		{"not a url", true},
		{"::", true},
	}
	for _, tc := range cases {
		got := g.CheckTopLevel(tc.uri)
		if got.Cancel != tc.cancel {
			t.Fatalf("CheckTopLevel(%q) cancel=%v, want %v", tc.uri, got.Cancel, tc.cancel)
		}
		if got.Notify {
			t.Fatalf("top-level rejections are silent, got notify for %q", tc.uri)
		}
	}
}

func TestCheckTopLevelInvalidApproved(t *testing.T) {
	g := New("relative/index.html")
	if !g.CheckTopLevel("relative/index.html").Cancel {
		t.Fatalf("expected guard without an absolute approved URI to cancel")
	}
}

func TestCheckFrame(t *testing.T) {
	g := New(approved)
	for _, uri := range []string{"blob:https://webviewplus.mooflu.com/1234", "blob:x", "about:blank", "ABOUT:srcdoc"} {
		if d := g.CheckFrame(uri); d.Cancel || d.Notify {
			t.Fatalf("expected %q allowed, got %+v", uri, d)
		}
	}
	for _, uri := range []string{"https://evil.example", approved, "data:text/html,hi", "", "javascript:alert(1)"} {
		d := g.CheckFrame(uri)
		if !d.Cancel || !d.Notify {
			t.Fatalf("expected %q cancelled with notice, got %+v", uri, d)
		}
	}
}

func TestCheckNewWindow(t *testing.T) {
	g := New(approved)
	for _, uri := range []string{approved, "https://example.com", ""} {
		d := g.CheckNewWindow(uri)
		if !d.Cancel || !d.Notify {
			t.Fatalf("expected new window %q rejected, got %+v", uri, d)
		}
	}
}
