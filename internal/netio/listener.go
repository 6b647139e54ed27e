// Package netio owns the UDP ingest path: a deadline-driven listener
// feeding raw datagrams into a sink, and an asynchronous forwarder for
// re-publishing traffic to another host.
package netio

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"
)

// PacketSink receives every datagram the listener reads. The payload
// slice is only valid for the duration of the call; implementations
// that retain it must copy.
type PacketSink interface {
	HandlePacket(src *net.UDPAddr, arrival time.Time, payload []byte)
}

// ListenerConfig configures a Listener. Zero values get sensible
// defaults in NewListener.
type ListenerConfig struct {
	Address string // host:port to bind, ":8808" typical
	RcvBuf  int    // kernel receive buffer request, bytes
	// ErrorFunc is invoked on socket errors that are not timeouts.
	// The listener keeps running; nil means log-only.
	ErrorFunc func(err error)
}

// Listener reads sensor datagrams from a bound UDP socket. Bind and
// Run are split so callers can surface bind failures synchronously
// and learn the bound address before the loop starts.
type Listener struct {
	address   string
	rcvBuf    int
	errorFunc func(error)
	conn      *net.UDPConn
	sink      PacketSink
}

func NewListener(cfg ListenerConfig, sink PacketSink) *Listener {
	if cfg.Address == "" {
		cfg.Address = ":8808"
	}
	if cfg.RcvBuf == 0 {
		cfg.RcvBuf = 8 << 20
	}
	return &Listener{
		address:   cfg.Address,
		rcvBuf:    cfg.RcvBuf,
		errorFunc: cfg.ErrorFunc,
		sink:      sink,
	}
}

// Bind resolves and opens the UDP socket.
func (l *Listener) Bind() error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", l.address, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", l.address, err)
	}
	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		log.Printf("netio: could not set receive buffer to %d: %v", l.rcvBuf, err)
	}
	l.conn = conn
	return nil
}

// LocalAddr returns the bound address, or nil before Bind.
func (l *Listener) LocalAddr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Run reads datagrams until ctx is cancelled. Short read deadlines
// keep the loop responsive to cancellation without busy-waiting.
func (l *Listener) Run(ctx context.Context) error {
	if l.conn == nil {
		return fmt.Errorf("listener not bound")
	}
	defer l.conn.Close()

	buffer := make([]byte, 2048) // headroom over the 1500-byte packet cap
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			l.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			n, src, err := l.conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("netio: read error: %v", err)
				if l.errorFunc != nil {
					l.errorFunc(err)
				}
				continue
			}
			l.sink.HandlePacket(src, time.Now(), buffer[:n])
		}
	}
}

// Close tears down the socket; a blocked Run returns shortly after.
func (l *Listener) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}
