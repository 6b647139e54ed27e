// Package capture reads and writes sensor packet captures in pcap
// format. Files are processed with the pure-Go pcap implementation so
// replay works anywhere the SDK compiles, with no libpcap dependency.
package capture

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sort"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Sentinel errors wrapped into open and scan failures so callers can
// classify them without string matching.
var (
	// ErrFormat: the file is not a pcap capture.
	ErrFormat = errors.New("not a pcap capture")
	// ErrCorrupt: the capture ends or breaks mid-packet.
	ErrCorrupt = errors.New("corrupt capture")
)

// Packet is one UDP datagram lifted out of a capture file.
type Packet struct {
	TimestampMicros int64 // capture timestamp
	SrcIP           net.IP
	SrcPort         uint16
	DstPort         uint16
	Payload         []byte
}

// Reader iterates the UDP packets of a capture file matching a port
// filter. The whole file is scanned once at open to build a timestamp
// index, which makes duration and position queries cheap and gives
// seeks a packet-accurate target; pcap files are not random-access,
// so seeking backward reopens the file and skips forward.
//
// Reader is not safe for concurrent use; the replay layer serializes
// access.
type Reader struct {
	path string
	port uint16

	f      *os.File
	source *gopacket.PacketSource

	index []int64 // capture timestamps (micros) of matching packets
	pos   int     // next matching packet to deliver
}

// Open scans path, indexes packets matching the port filter (0 means
// every UDP packet with a payload; otherwise source or destination
// port must match, like the classic "udp port N" filter), and leaves
// the reader positioned at the first packet.
func Open(path string, port uint16) (*Reader, error) {
	r := &Reader{path: path, port: port}
	if err := r.reopen(); err != nil {
		return nil, err
	}
	if err := r.scan(); err != nil {
		r.f.Close()
		return nil, err
	}
	if err := r.reopen(); err != nil {
		return nil, err
	}
	return r, nil
}

// reopen (re)starts decoding from the top of the file.
func (r *Reader) reopen() error {
	if r.f != nil {
		r.f.Close()
		r.f = nil
	}
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	pr, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrFormat, r.path, err)
	}
	r.f = f
	r.source = gopacket.NewPacketSource(pr, pr.LinkType())
	r.pos = 0
	return nil
}

// scan walks the whole file once, recording the capture timestamp of
// every matching packet.
func (r *Reader) scan() error {
	r.index = r.index[:0]
	for {
		pkt, err := r.source.NextPacket()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: packet %d: %v", ErrCorrupt, r.path, len(r.index), err)
		}
		if _, ok := r.matchUDP(pkt); ok {
			r.index = append(r.index, pkt.Metadata().Timestamp.UnixMicro())
		}
	}
}

// matchUDP applies the port filter and extracts the UDP layer.
func (r *Reader) matchUDP(pkt gopacket.Packet) (*layers.UDP, bool) {
	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil, false
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok || len(udp.Payload) == 0 {
		return nil, false
	}
	if r.port != 0 && uint16(udp.SrcPort) != r.port && uint16(udp.DstPort) != r.port {
		return nil, false
	}
	return udp, true
}

// Next returns the next matching packet, or io.EOF past the last one.
func (r *Reader) Next() (*Packet, error) {
	if r.pos >= len(r.index) {
		return nil, io.EOF
	}
	for {
		pkt, err := r.source.NextPacket()
		if err == io.EOF {
			// The index said more packets exist; the file changed or
			// broke underneath us.
			return nil, fmt.Errorf("%w: %s: file shorter than index", ErrCorrupt, r.path)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, r.path, err)
		}
		udp, ok := r.matchUDP(pkt)
		if !ok {
			continue
		}
		out := &Packet{
			TimestampMicros: pkt.Metadata().Timestamp.UnixMicro(),
			SrcPort:         uint16(udp.SrcPort),
			DstPort:         uint16(udp.DstPort),
			Payload:         udp.Payload,
		}
		if ip4, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
			out.SrcIP = ip4.SrcIP
		}
		r.pos++
		return out, nil
	}
}

// Rewind repositions at the first packet.
func (r *Reader) Rewind() error {
	return r.reopen()
}

// SeekIndex positions the reader so the next packet delivered is the
// i'th matching packet. i == PacketCount() positions at end.
func (r *Reader) SeekIndex(i int) error {
	if i < 0 || i > len(r.index) {
		return fmt.Errorf("seek index %d out of range [0, %d]", i, len(r.index))
	}
	if i < r.pos {
		if err := r.reopen(); err != nil {
			return err
		}
	}
	for r.pos < i {
		if _, err := r.Next(); err != nil {
			return err
		}
	}
	return nil
}

// Seek positions at the first packet at or after the given offset in
// seconds from the capture start.
func (r *Reader) Seek(seconds float64) error {
	if seconds < 0 {
		return fmt.Errorf("seek position %v is negative", seconds)
	}
	if len(r.index) == 0 {
		return nil
	}
	target := r.index[0] + int64(seconds*1e6)
	i := sort.Search(len(r.index), func(i int) bool { return r.index[i] >= target })
	return r.SeekIndex(i)
}

// StartTimeMicros returns the capture timestamp of the first matching
// packet, or 0 for an empty capture.
func (r *Reader) StartTimeMicros() int64 {
	if len(r.index) == 0 {
		return 0
	}
	return r.index[0]
}

// Position returns the offset in seconds of the next packet relative
// to the capture start; past the end it equals Duration.
func (r *Reader) Position() float64 {
	if len(r.index) == 0 || r.pos == 0 {
		return 0
	}
	if r.pos >= len(r.index) {
		return r.Duration()
	}
	return float64(r.index[r.pos]-r.index[0]) / 1e6
}

// Duration returns the capture's span in seconds, first matching
// packet to last.
func (r *Reader) Duration() float64 {
	if len(r.index) < 2 {
		return 0
	}
	return float64(r.index[len(r.index)-1]-r.index[0]) / 1e6
}

// AtEnd reports whether every matching packet has been delivered.
func (r *Reader) AtEnd() bool {
	return r.pos >= len(r.index)
}

// PacketCount returns the number of matching packets in the file.
func (r *Reader) PacketCount() int {
	return len(r.index)
}

// Pos returns the index of the next packet to deliver.
func (r *Reader) Pos() int {
	return r.pos
}

// Path returns the capture file path.
func (r *Reader) Path() string {
	return r.path
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
