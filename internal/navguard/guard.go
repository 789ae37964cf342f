// Package navguard decides which navigations the embedded browser may take.
// Every check fails closed.
package navguard

import (
	"net/url"
	"strings"
)

// Decision is the outcome of a navigation check. Notify is set when the web
// app should be told about the rejection.
type Decision struct {
	Cancel bool
	Notify bool
}

var allowed = Decision{}

// Guard holds the approved document URI.
type Guard struct {
	approved *url.URL
	raw      string
}

// New builds a guard for approved. An unparseable approved URI yields a guard
// that rejects every top-level navigation.
func New(approved string) *Guard {
	g := &Guard{raw: approved}
	if u, ok := parse(approved); ok && u.IsAbs() {
		g.approved = u
	}
	return g
}

// Approved returns the URI the guard was built with.
func (g *Guard) Approved() string { return g.raw }

// CheckTopLevel allows uri only when it is the approved document. The
// comparison is whole-URI equality with case-insensitive scheme and host; the
// fragment is ignored.
func (g *Guard) CheckTopLevel(uri string) Decision {
	if g.approved == nil {
		return Decision{Cancel: true}
	}
	u, ok := parse(uri)
	if !ok || !sameDocument(g.approved, u) {
		return Decision{Cancel: true}
	}
	return allowed
}

// CheckFrame allows in-page blob: and about: frames only.
func (g *Guard) CheckFrame(uri string) Decision {
	u, ok := parse(uri)
	if ok {
		switch strings.ToLower(u.Scheme) {
		case "blob", "about":
			return allowed
		}
	}
	return Decision{Cancel: true, Notify: true}
}

// CheckNewWindow rejects every new window.
func (g *Guard) CheckNewWindow(string) Decision {
	return Decision{Cancel: true, Notify: true}
}

func parse(uri string) (*url.URL, bool) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, false
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	return u, true
}

func sameDocument(a, b *url.URL) bool {
	if !strings.EqualFold(a.Scheme, b.Scheme) || !strings.EqualFold(a.Host, b.Host) {
		return false
	}
	if a.User.String() != b.User.String() || a.Opaque != b.Opaque {
		return false
	}
	return escapedPath(a) == escapedPath(b) && a.RawQuery == b.RawQuery
}

func escapedPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" && u.Host != "" {
		return "/"
	}
	return p
}
