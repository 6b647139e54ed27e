package netio

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync/atomic"
)

// Forwarder re-publishes raw sensor datagrams to another UDP target.
// Forwarding is best-effort: when the queue is full the packet is
// dropped and counted rather than blocking the ingest path.
type Forwarder struct {
	target  string
	queue   chan []byte
	dropped atomic.Uint64
	sent    atomic.Uint64
}

// NewForwarder creates a forwarder for target (host:port). queueSize
// of zero defaults to 1000 packets.
func NewForwarder(target string, queueSize int) *Forwarder {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &Forwarder{
		target: target,
		queue:  make(chan []byte, queueSize),
	}
}

// Start dials the target and drains the queue until ctx is cancelled.
func (f *Forwarder) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", f.target)
	if err != nil {
		return fmt.Errorf("resolve forward target %q: %w", f.target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("dial forward target %q: %w", f.target, err)
	}
	go func() {
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case pkt := <-f.queue:
				if _, err := conn.Write(pkt); err != nil {
					log.Printf("netio: forward write: %v", err)
				} else {
					f.sent.Add(1)
				}
			}
		}
	}()
	log.Printf("netio: forwarding packets to %s", f.target)
	return nil
}

// ForwardAsync queues a copy of payload for forwarding. Never blocks.
func (f *Forwarder) ForwardAsync(payload []byte) {
	pkt := make([]byte, len(payload))
	copy(pkt, payload)
	select {
	case f.queue <- pkt:
	default:
		f.dropped.Add(1)
	}
}

// Stats returns packets sent and packets dropped since start.
func (f *Forwarder) Stats() (sent, dropped uint64) {
	return f.sent.Load(), f.dropped.Load()
}
