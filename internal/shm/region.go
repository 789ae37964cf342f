// Package shm provides fixed-size memory regions that back the shared
// transfer buffers handed to the browser engine.
package shm

import (
	"errors"
	"sync"
)

// ErrClosed is returned when a region is used after Close.
var ErrClosed = errors.New("shm: region closed")

// Region is a fixed-size byte region. The zero value is not usable; call New.
type Region struct {
	mu       sync.Mutex
	mem      []byte
	size     int
	readOnly bool
	closed   bool
}

// New allocates a region of exactly size bytes. A zero size is rounded up
// to one byte since mappings cannot be empty.
func New(size int) (*Region, error) {
	if size < 0 {
		return nil, errors.New("shm: negative size")
	}
	alloc := size
	if alloc == 0 {
		alloc = 1
	}
	data, err := allocate(alloc)
	if err != nil {
		return nil, err
	}
	return &Region{mem: data, size: size}, nil
}

// Size reports the region length in bytes.
func (r *Region) Size() int {
	return r.size
}

// Bytes exposes the region memory. Writes after Seal fault on platforms
// with memory protection, so callers fill the region before sealing it.
func (r *Region) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	return r.mem[:r.size]
}

// Seal makes the region read-only.
func (r *Region) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.readOnly {
		return nil
	}
	if err := protect(r.mem); err != nil {
		return err
	}
	r.readOnly = true
	return nil
}

// ReadOnly reports whether Seal has been applied.
func (r *Region) ReadOnly() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readOnly
}

// Snapshot returns a copy of the region contents.
func (r *Region) Snapshot() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	out := make([]byte, r.size)
	copy(out, r.mem[:r.size])
	return out, nil
}

// Close releases the region. Closing twice is a no-op.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	mem := r.mem
	r.mem = nil
	return release(mem)
}

// Closed reports whether Close has been called.
func (r *Region) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
