package engine

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"pkt.systems/webviewplus/internal/shm"
	"pkt.systems/webviewplus/schema"
)

var bufferSeq atomic.Uint64

// RegionBuffer is a SharedBuffer backed by an shm.Region. Engines hand these
// out from CreateSharedBuffer.
type RegionBuffer struct {
	region *shm.Region
	id     string
}

// NewRegionBuffer allocates a buffer of exactly size bytes.
func NewRegionBuffer(size int64) (*RegionBuffer, error) {
	if size < 0 || size > math.MaxInt {
		return nil, fmt.Errorf("shared buffer size %d out of range", size)
	}
	region, err := shm.New(int(size))
	if err != nil {
		return nil, fmt.Errorf("allocate shared buffer: %w", err)
	}
	return &RegionBuffer{
		region: region,
		id:     strconv.FormatUint(bufferSeq.Add(1), 10),
	}, nil
}

// ID is unique within the process.
func (b *RegionBuffer) ID() string { return b.id }

func (b *RegionBuffer) Size() int64 { return int64(b.region.Size()) }

func (b *RegionBuffer) Bytes() []byte { return b.region.Bytes() }

// Seal makes the buffer read-only for the rest of its life.
func (b *RegionBuffer) Seal() error {
	if err := b.region.Seal(); err != nil {
		if err == shm.ErrClosed {
			return schema.ErrBufferClosed
		}
		return err
	}
	return nil
}

// ReadOnly reports whether Seal has been applied.
func (b *RegionBuffer) ReadOnly() bool { return b.region.ReadOnly() }

// Snapshot copies the current contents.
func (b *RegionBuffer) Snapshot() ([]byte, error) {
	data, err := b.region.Snapshot()
	if err == shm.ErrClosed {
		return nil, schema.ErrBufferClosed
	}
	return data, err
}

func (b *RegionBuffer) Close() error { return b.region.Close() }

// Closed reports whether Close has been called.
func (b *RegionBuffer) Closed() bool { return b.region.Closed() }
