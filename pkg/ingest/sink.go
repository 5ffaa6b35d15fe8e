package ingest

import (
	"sync"

	"streamguard/pkg/engine"
)

// Sink serializes pushes from every ingestor and connection into the single-writer ring
// buffer. Ingestors sharing a buffer must share one Sink.
type Sink struct {
	mu     sync.Mutex
	buffer *engine.RingBuffer
}

func NewSink(buffer *engine.RingBuffer) *Sink {
	return &Sink{buffer: buffer}
}

// Push adds an entry, returning engine.ErrBufferFull when the buffer is full.
func (s *Sink) Push(entry []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Push(entry)
}
