package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

)

const (
	defaultReadSize    = 4096
	defaultMaxLineSize = 1 << 20
)

// TCPIngestor listens for TCP connections and pushes newline-delimited entries to the buffer.
// Long lines arrive from the reader in fragments; with a guard set, every fragment is
// scanned in order as one logical stream, so a marker run split between fragments is
// still caught.
type TCPIngestor struct {
	addr  string
	sink  *Sink
	guard *Guard

	readSize    int
	maxLineSize int

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}

	rejected atomic.Uint64
	logger   zerolog.Logger
}

func NewTCPIngestor(addr string, sink *Sink) *TCPIngestor {
	return &TCPIngestor{
		addr:        addr,
		sink:        sink,
		readSize:    defaultReadSize,
		maxLineSize: defaultMaxLineSize,
		ready:       make(chan struct{}),
		logger:      log.With().Str("component", "ingest_tcp").Logger(),
	}
}

// WithGuard enables ingest-time rejection of suspicious lines.
func (t *TCPIngestor) WithGuard(g *Guard) *TCPIngestor {
	t.guard = g
	return t
}

// Start begins listening on the TCP address. Blocking call; returns nil after Close.
func (t *TCPIngestor) Start() error {
	if _, err := t.guard.newScanner(); err != nil {
		return fmt.Errorf("tcp guard: %w", err)
	}

	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.listener = listener
	t.mu.Unlock()
	close(t.ready)

	t.logger.Info().Str("addr", listener.Addr().String()).Bool("guard", t.guard != nil).Msg("TCP ingestor listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			t.logger.Error().Err(err).Msg("Error accepting connection")
			continue
		}
		go t.handleConnection(conn)
	}
}

// Ready is closed once the listener is bound.
func (t *TCPIngestor) Ready() <-chan struct{} {
	return t.ready
}

// Addr returns the bound address, or nil before Start.
func (t *TCPIngestor) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Close stops accepting connections.
func (t *TCPIngestor) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}

// Rejected returns the number of lines rejected at ingest.
func (t *TCPIngestor) Rejected() uint64 {
	return t.rejected.Load()
}

func (t *TCPIngestor) handleConnection(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReaderSize(conn, t.readSize)
	sc, err := t.guard.newScanner()
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to build connection guard")
		return
	}

	var line []byte
	var bad, tooLong bool

	for {
		frag, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err != io.EOF {
				t.logger.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("Read error")
			}
			return
		}

		if sc != nil && !bad {
			bad = sc.Scan(frag)
		}
		if !tooLong {
			if len(line)+len(frag) > t.maxLineSize {
				tooLong = true
				line = nil
			} else {
				// frag is only valid until the next read.
				line = append(line, frag...)
			}
		}
		if isPrefix {
			continue
		}

		switch {
		case bad, tooLong:
			t.rejected.Add(1)
			t.logger.Debug().
				Bool("suspicious", bad).
				Bool("too_long", tooLong).
				Str("remote", conn.RemoteAddr().String()).
				Msg("Line rejected")
		default:
			// The newline is framing, not payload; outputs add their own delimiter.
			// On buffer full, silently drop (tail drop strategy).
			if line == nil {
				line = []byte{}
			}
			_ = t.sink.Push(line)
		}

		line, bad, tooLong = nil, false, false
		if sc != nil {
			sc.Reset()
		}
	}
}
