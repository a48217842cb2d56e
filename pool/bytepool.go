// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-size byte buffer pool backed by a bounded channel. Used for the
// transport read path and audio chunk staging so steady-state operation does
// not allocate per read.

package pool

// BytePool recycles equally sized byte buffers.
type BytePool struct {
	ch   chan []byte
	size int
}

// NewBytePool creates a pool of buffers of the given size, retaining at most
// capacity buffers for reuse.
func NewBytePool(size, capacity int) *BytePool {
	if size <= 0 {
		size = 2048
	}
	if capacity <= 0 {
		capacity = 64
	}
	return &BytePool{
		ch:   make(chan []byte, capacity),
		size: size,
	}
}

// BufferSize returns the size of buffers handed out by Get.
func (b *BytePool) BufferSize() int {
	return b.size
}

// Get returns a buffer from the pool, allocating when the pool is empty.
func (b *BytePool) Get() []byte {
	select {
	case buf := <-b.ch:
		return buf[:b.size]
	default:
		return make([]byte, b.size)
	}
}

// Put returns a buffer to the pool. Buffers of a different size class and
// overflow beyond the pool capacity are dropped for the GC to reclaim.
func (b *BytePool) Put(buf []byte) {
	if cap(buf) < b.size {
		return
	}
	select {
	case b.ch <- buf[:b.size]:
	default:
	}
}
