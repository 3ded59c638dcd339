package pool

import (
	"io"
	"sync"
)

const (
	// PayloadBufferDefaultSize is the initial capacity of pooled payload buffers.
	// Sized for a simulated dataset of a few thousand rows and a handful of columns.
	PayloadBufferDefaultSize = 64 * 1024
	// PayloadBufferMaxThreshold is the largest buffer the pool retains.
	// Buffers that grew beyond this are dropped to avoid memory bloat.
	PayloadBufferMaxThreshold = 8 * 1024 * 1024
)

// ByteBuffer is a growable byte slice used to assemble dataset payloads
// before compression. The underlying slice B is exported so callers can use
// binary append helpers directly:
//
//	buf.B = engine.AppendUint64(buf.B, bits)
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates a ByteBuffer with the given initial capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Len returns the current length of the buffer.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Reset empties the buffer while retaining its capacity.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// Write appends data to the buffer, growing it as needed. Never fails.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the buffer contents to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

var payloadBufferPool = sync.Pool{
	New: func() any { return NewByteBuffer(PayloadBufferDefaultSize) },
}

// GetPayloadBuffer retrieves an empty ByteBuffer from the payload pool.
func GetPayloadBuffer() *ByteBuffer {
	bb, _ := payloadBufferPool.Get().(*ByteBuffer)
	return bb
}

// PutPayloadBuffer returns a ByteBuffer to the payload pool for reuse.
// Oversized buffers are discarded rather than retained.
func PutPayloadBuffer(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if cap(bb.B) > PayloadBufferMaxThreshold {
		return
	}

	bb.Reset()
	payloadBufferPool.Put(bb)
}
