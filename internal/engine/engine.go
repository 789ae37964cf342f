// Package engine describes the embedded browser engine the preview panel
// drives. The engine owns script isolation, shared buffers and browsing data;
// the panel only reacts to its events.
package engine

import "context"

// Access restricts what the receiving script may do with a shared buffer.
type Access int

const (
	// AccessReadOnly lets the page read but not modify the buffer.
	AccessReadOnly Access = iota
	// AccessReadWrite lets the page modify the buffer.
	AccessReadWrite
)

func (a Access) String() string {
	switch a {
	case AccessReadOnly:
		return "read-only"
	case AccessReadWrite:
		return "read-write"
	default:
		return "unknown"
	}
}

// SharedBuffer is a memory region readable by the page without a
// serialise/copy round trip.
type SharedBuffer interface {
	// Size is the exact region length.
	Size() int64
	// Bytes is the writable region. It must be filled before the buffer is posted.
	Bytes() []byte
	// Close releases the region. It must not be called while the page may
	// still be reading it.
	Close() error
}

// NavigationEvent is delivered before a navigation or window open proceeds.
// Handlers set Cancel synchronously.
type NavigationEvent struct {
	URI    string
	Cancel bool
}

// Handlers receives engine events. Unset handlers are skipped. Events for one
// engine are delivered one at a time.
type Handlers struct {
	Initialized             func(err error)
	NavigationStarting      func(ev *NavigationEvent)
	FrameNavigationStarting func(ev *NavigationEvent)
	NewWindowRequested      func(ev *NavigationEvent)
	WebMessage              func(json string)
}

// Allocator creates shared buffers.
type Allocator interface {
	CreateSharedBuffer(size int64) (SharedBuffer, error)
}

// Poster delivers messages to the page.
type Poster interface {
	PostSharedBuffer(buf SharedBuffer, access Access, additionalData string) error
	PostString(msg string) error
}

// Engine is a single browser instance hosting the web app.
type Engine interface {
	Allocator
	Poster
	// Start begins initialization and returns immediately; completion is
	// reported through Handlers.Initialized.
	Start(ctx context.Context, h Handlers) error
	// MapVirtualHost serves dir under https://host/ for this instance.
	MapVirtualHost(host, dir string) error
	// Navigate starts loading uri and returns without waiting for it.
	Navigate(uri string) error
	// Source is the last URI passed to Navigate.
	Source() string
	// ClearBrowsingData drops everything except local storage.
	ClearBrowsingData(ctx context.Context) error
	// Close tears the instance down.
	Close() error
}
