package engine

import (
	"errors"
	"sync/atomic"
)

var (
	ErrBufferFull = errors.New("buffer is full")
	ErrBufferSize = errors.New("size must be a power of 2")
)

// RingBuffer is a fixed-size circular buffer of entries.
// It is safe for a single writer and a single reader. Writers sharing one buffer
// (e.g. many TCP connections) must serialize Push themselves.
type RingBuffer struct {
	data [][]byte
	head atomic.Uint64
	tail atomic.Uint64
	mask uint64
	size uint64

	dropped atomic.Uint64
}

// NewRingBuffer creates a ring buffer with the specified size (must be power of 2).
func NewRingBuffer(size uint64) (*RingBuffer, error) {
	if size == 0 || (size&(size-1)) != 0 {
		return nil, ErrBufferSize
	}
	return &RingBuffer{
		data: make([][]byte, size),
		mask: size - 1,
		size: size,
	}, nil
}

// Push adds an item to the buffer.
// If the buffer is full, it drops the item and returns ErrBufferFull.
func (rb *RingBuffer) Push(item []byte) error {
	head := rb.head.Load()
	tail := rb.tail.Load()

	if head-tail >= rb.size {
		rb.dropped.Add(1)
		return ErrBufferFull
	}

	rb.data[head&rb.mask] = item
	rb.head.Store(head + 1)
	return nil
}

// Pop removes an item from the buffer.
// Returns nil if empty.
func (rb *RingBuffer) Pop() []byte {
	tail := rb.tail.Load()
	head := rb.head.Load()

	if tail == head {
		return nil
	}

	slot := tail & rb.mask
	item := rb.data[slot]
	rb.data[slot] = nil
	rb.tail.Store(tail + 1)
	return item
}

// DroppedCount returns the number of entries rejected because the buffer was full.
func (rb *RingBuffer) DroppedCount() uint64 {
	return rb.dropped.Load()
}

// Usage returns the number of items currently in the buffer.
func (rb *RingBuffer) Usage() uint64 {
	return rb.head.Load() - rb.tail.Load()
}

// Capacity returns the total size of the buffer.
func (rb *RingBuffer) Capacity() uint64 {
	return rb.size
}
