// Package transfer loads a file into a shared buffer for the web app.
//
// Binary files travel in a buffer of exactly their size. Text files are
// decoded on the host and travel inline in the FileData sidecar; their buffer
// is a single placeholder byte the receiver never reads.
package transfer

import (
	"fmt"
	"io"

	"pkt.systems/pslog"
	"pkt.systems/webviewplus/internal/classify"
	"pkt.systems/webviewplus/internal/engine"
	"pkt.systems/webviewplus/schema"
)

// placeholderSize is the buffer length used for text payloads.
const placeholderSize = 1

// Transfer owns the single live shared buffer. It is not safe for concurrent
// use; the panel loop serialises calls.
type Transfer struct {
	alloc engine.Allocator
	live  engine.SharedBuffer
	log   pslog.Logger
}

// New returns a Transfer allocating from alloc.
func New(alloc engine.Allocator, logger pslog.Logger) *Transfer {
	return &Transfer{alloc: alloc, log: logger}
}

// Prepare releases the previous buffer, then loads file into a new one. The
// returned buffer stays live until the next Prepare or Release.
func (t *Transfer) Prepare(file schema.ActiveFile, detectEncoding bool) (engine.SharedBuffer, schema.FileData, error) {
	t.Release()

	class := classify.Classify(file.Path)
	f, err := OpenShared(file.Path)
	if err != nil {
		return nil, schema.FileData{}, fmt.Errorf("open %s: %w", file.Path, err)
	}
	defer f.Close()

	data := schema.FileData{
		FileName: file.Name,
		FileSize: file.Size,
		IsBinary: class.IsBinary,
	}
	if class.IsBinary {
		// Re-stat so the buffer matches what is on disk now rather than at
		// navigation time.
		size := file.Size
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
		buf, err := t.alloc.CreateSharedBuffer(size)
		if err != nil {
			return nil, schema.FileData{}, err
		}
		if _, err := io.ReadFull(f, buf.Bytes()); err != nil {
			_ = buf.Close()
			return nil, schema.FileData{}, fmt.Errorf("read %s: %w", file.Path, err)
		}
		data.FileSize = size
		t.live = buf
		if t.log != nil {
			t.log.Debug("transfer binary ready", "file", file.Name, "bytes", size)
		}
		return buf, data, nil
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, schema.FileData{}, fmt.Errorf("read %s: %w", file.Path, err)
	}
	text, enc := classify.Decode(raw, detectEncoding)
	buf, err := t.alloc.CreateSharedBuffer(placeholderSize)
	if err != nil {
		return nil, schema.FileData{}, err
	}
	data.TextContent = text
	t.live = buf
	if t.log != nil {
		t.log.Debug("transfer text ready", "file", file.Name, "bytes", len(raw), "encoding", enc)
	}
	return buf, data, nil
}

// Release closes the live buffer, if any.
func (t *Transfer) Release() {
	if t.live == nil {
		return
	}
	if err := t.live.Close(); err != nil && t.log != nil {
		t.log.Warn("transfer release failed", "err", err)
	}
	t.live = nil
}

// Live returns the buffer handed out by the last Prepare, or nil.
func (t *Transfer) Live() engine.SharedBuffer {
	return t.live
}
