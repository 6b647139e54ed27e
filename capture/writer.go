package capture

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Frame synthesis defaults for recorded packets. Sensor traffic is
// captured as payload plus addressing, so the Ethernet/IP envelope is
// rebuilt with locally-administered MACs.
var (
	writerSrcMAC = net.HardwareAddr{0x02, 0x53, 0x54, 0x52, 0x58, 0x01}
	writerDstMAC = net.HardwareAddr{0x02, 0x53, 0x54, 0x52, 0x58, 0x02}
)

// Writer records UDP datagrams into a pcap file that Open can read
// back. It synthesizes the Ethernet/IPv4/UDP envelope around each
// payload.
type Writer struct {
	f     *os.File
	w     *pcapgo.Writer
	buf   gopacket.SerializeBuffer
	count int
}

// Create starts a new capture file, truncating any existing file at
// path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture: %w", err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return nil, fmt.Errorf("write capture header: %w", err)
	}
	return &Writer{f: f, w: w, buf: gopacket.NewSerializeBuffer()}, nil
}

// WritePacket appends one datagram. Nil addresses default to private
// placeholders so fixture writers only need to care about ports and
// payload.
func (w *Writer) WritePacket(ts time.Time, srcIP, dstIP net.IP, srcPort, dstPort uint16, payload []byte) error {
	if srcIP == nil {
		srcIP = net.IPv4(192, 168, 95, 60)
	}
	if dstIP == nil {
		dstIP = net.IPv4(192, 168, 95, 1)
	}
	eth := layers.Ethernet{
		SrcMAC:       writerSrcMAC,
		DstMAC:       writerDstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP.To4(),
		DstIP:    dstIP.To4(),
	}
	udp := layers.UDP{
		SrcPort: layers.UDPPort(srcPort),
		DstPort: layers.UDPPort(dstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(&ip); err != nil {
		return fmt.Errorf("checksum setup: %w", err)
	}
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(w.buf, opts, &eth, &ip, &udp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("serialize packet: %w", err)
	}
	data := w.buf.Bytes()
	ci := gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(data), Length: len(data)}
	if err := w.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	w.count++
	return nil
}

// PacketCount returns the number of packets written so far.
func (w *Writer) PacketCount() int {
	return w.count
}

// Close flushes and closes the capture file.
func (w *Writer) Close() error {
	return w.f.Close()
}
