// Package enginetest provides an in-memory engine.Engine for tests.
package enginetest

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/webviewplus/internal/engine"
	"pkt.systems/webviewplus/schema"
)

// Post is one shared buffer delivery as the page would see it.
type Post struct {
	BufferID       string
	Size           int64
	Data           []byte
	Access         engine.Access
	AdditionalData string
}

// OutboundKind tells string messages and buffer posts apart in Outbound.
type OutboundKind int

const (
	OutboundString OutboundKind = iota
	OutboundBuffer
)

func (k OutboundKind) String() string {
	if k == OutboundBuffer {
		return "buffer"
	}
	return "string"
}

// Outbound is one message delivered to the page, in delivery order. Payload
// is the string message or the buffer sidecar.
type Outbound struct {
	Kind    OutboundKind
	Payload string
}

// Fake records everything the panel does to it. Events are fired from the
// test goroutine through the Fire* methods.
type Fake struct {
	mu          sync.Mutex
	handlers    engine.Handlers
	started     bool
	closed      bool
	source      string
	navigations []string
	hosts       map[string]string
	strings     []string
	posts       []Post
	outbound    []Outbound
	buffers     []*engine.RegionBuffer
	clears      int

	// StartErr is returned from Start when set.
	StartErr error
	// PostErr is returned from PostSharedBuffer and PostString when set.
	PostErr error
}

var _ engine.Engine = (*Fake)(nil)

// New returns an unstarted fake engine.
func New() *Fake {
	return &Fake{hosts: make(map[string]string)}
}

func (f *Fake) Start(_ context.Context, h engine.Handlers) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	f.handlers = h
	f.started = true
	return nil
}

func (f *Fake) MapVirtualHost(host, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return schema.ErrEngineClosed
	}
	f.hosts[host] = dir
	return nil
}

func (f *Fake) Navigate(uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return schema.ErrEngineClosed
	}
	f.source = uri
	f.navigations = append(f.navigations, uri)
	return nil
}

func (f *Fake) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.source
}

func (f *Fake) ClearBrowsingData(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return schema.ErrEngineClosed
	}
	f.clears++
	return nil
}

func (f *Fake) CreateSharedBuffer(size int64) (engine.SharedBuffer, error) {
	buf, err := engine.NewRegionBuffer(size)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.buffers = append(f.buffers, buf)
	f.mu.Unlock()
	return buf, nil
}

func (f *Fake) PostSharedBuffer(buf engine.SharedBuffer, access engine.Access, additionalData string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return schema.ErrEngineClosed
	}
	if f.PostErr != nil {
		return f.PostErr
	}
	rb, ok := buf.(*engine.RegionBuffer)
	if !ok {
		return errors.New("enginetest: foreign shared buffer")
	}
	if access == engine.AccessReadOnly {
		if err := rb.Seal(); err != nil {
			return err
		}
	}
	data, err := rb.Snapshot()
	if err != nil {
		return err
	}
	f.posts = append(f.posts, Post{
		BufferID:       rb.ID(),
		Size:           rb.Size(),
		Data:           data,
		Access:         access,
		AdditionalData: additionalData,
	})
	f.outbound = append(f.outbound, Outbound{Kind: OutboundBuffer, Payload: additionalData})
	return nil
}

func (f *Fake) PostString(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return schema.ErrEngineClosed
	}
	if f.PostErr != nil {
		return f.PostErr
	}
	f.strings = append(f.strings, msg)
	f.outbound = append(f.outbound, Outbound{Kind: OutboundString, Payload: msg})
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Started reports whether Start succeeded.
func (f *Fake) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Navigations returns every URI passed to Navigate.
func (f *Fake) Navigations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigations...)
}

// VirtualHosts returns the host to folder mappings.
func (f *Fake) VirtualHosts() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.hosts))
	for k, v := range f.hosts {
		out[k] = v
	}
	return out
}

// Strings returns the posted string messages in order.
func (f *Fake) Strings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.strings...)
}

// Posts returns the posted shared buffers in order.
func (f *Fake) Posts() []Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Post(nil), f.posts...)
}

// Outbound returns string messages and buffer posts interleaved in the order
// they were delivered.
func (f *Fake) Outbound() []Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Outbound(nil), f.outbound...)
}

// LiveBuffers counts buffers created and not yet closed.
func (f *Fake) LiveBuffers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.buffers {
		if !b.Closed() {
			n++
		}
	}
	return n
}

// Clears counts ClearBrowsingData calls.
func (f *Fake) Clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

func (f *Fake) current() engine.Handlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers
}

// Initialize completes startup with err.
func (f *Fake) Initialize(err error) {
	if h := f.current(); h.Initialized != nil {
		h.Initialized(err)
	}
}

// Message delivers a web message as the page would send it.
func (f *Fake) Message(json string) {
	if h := f.current(); h.WebMessage != nil {
		h.WebMessage(json)
	}
}

// NavigationStarting fires a top-level navigation and reports whether it was
// cancelled.
func (f *Fake) NavigationStarting(uri string) bool {
	return fire(f.current().NavigationStarting, uri)
}

// FrameNavigationStarting fires a subframe navigation and reports whether it
// was cancelled.
func (f *Fake) FrameNavigationStarting(uri string) bool {
	return fire(f.current().FrameNavigationStarting, uri)
}

// NewWindowRequested fires a window.open and reports whether it was cancelled.
func (f *Fake) NewWindowRequested(uri string) bool {
	return fire(f.current().NewWindowRequested, uri)
}

func fire(fn func(*engine.NavigationEvent), uri string) bool {
	if fn == nil {
		return false
	}
	ev := &engine.NavigationEvent{URI: uri}
	fn(ev)
	return ev.Cancel
}
