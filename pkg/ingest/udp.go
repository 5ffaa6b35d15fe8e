package ingest

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// UDPIngestor listens for UDP packets and pushes each one to the buffer as an entry.
type UDPIngestor struct {
	addr  string
	sink  *Sink
	guard *Guard

	mu    sync.Mutex
	conn  *net.UDPConn
	ready chan struct{}

	rejected atomic.Uint64
	logger   zerolog.Logger
}

func NewUDPIngestor(addr string, sink *Sink) *UDPIngestor {
	return &UDPIngestor{
		addr:   addr,
		sink:   sink,
		ready:  make(chan struct{}),
		logger: log.With().Str("component", "ingest_udp").Logger(),
	}
}

// WithGuard enables ingest-time rejection of suspicious packets.
func (u *UDPIngestor) WithGuard(g *Guard) *UDPIngestor {
	u.guard = g
	return u
}

// Start begins listening on the UDP address. Blocking call; returns nil after Close.
func (u *UDPIngestor) Start() error {
	sc, err := u.guard.newScanner()
	if err != nil {
		return fmt.Errorf("udp guard: %w", err)
	}

	addr, err := net.ResolveUDPAddr("udp", u.addr)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	u.mu.Lock()
	u.conn = conn
	u.mu.Unlock()
	close(u.ready)

	u.logger.Info().Str("addr", conn.LocalAddr().String()).Bool("guard", u.guard != nil).Msg("UDP ingestor listening")

	// Max UDP payload; the read buffer is reused so every packet is copied out.
	buf := make([]byte, 65535)

	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			u.logger.Error().Err(err).Msg("UDP read error")
			continue
		}

		payload := trimLineEnding(buf[:n])

		if sc != nil {
			sc.Reset()
			if sc.Scan(payload) {
				u.rejected.Add(1)
				continue
			}
		}

		packet := make([]byte, len(payload))
		copy(packet, payload)

		// On buffer full, silently drop (tail drop strategy).
		_ = u.sink.Push(packet)
	}
}

// Ready is closed once the socket is bound.
func (u *UDPIngestor) Ready() <-chan struct{} {
	return u.ready
}

// Addr returns the bound address, or nil before Start.
func (u *UDPIngestor) Addr() net.Addr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr()
}

// Close stops the ingestor.
func (u *UDPIngestor) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}

// Rejected returns the number of packets rejected at ingest.
func (u *UDPIngestor) Rejected() uint64 {
	return u.rejected.Load()
}

// trimLineEnding strips one trailing "\n" or "\r\n", the framing added by line-oriented
// senders such as `echo x | nc -u`. Anything before it is payload and still scanned.
func trimLineEnding(p []byte) []byte {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
		if n := len(p); n > 0 && p[n-1] == '\r' {
			p = p[:n-1]
		}
	}
	return p
}
