package strixsdk

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Handle identifies a sensor for the lifetime of an SDK instance. Live
// sensors derive their handle from the IPv4 source address of their
// packets; sensors synthesized by capture replay or MockNetworkReceive
// carry HandleFlagMock on top.
type Handle uint64

const (
	// HandleNone is never assigned to a sensor. Errors not tied to a
	// particular sensor are reported against it.
	HandleNone Handle = 0
	// HandleFlagMock marks replayed or manually injected sensors.
	HandleFlagMock Handle = 1 << 32
)

// IsMock reports whether the handle was synthesized rather than
// derived from live traffic.
func (h Handle) IsMock() bool {
	return h&HandleFlagMock != 0
}

func (h Handle) String() string {
	if h.IsMock() {
		return fmt.Sprintf("mock-%08x", uint64(h&^HandleFlagMock))
	}
	return fmt.Sprintf("%08x", uint64(h))
}

// handleFromIP maps an IPv4 source address to a live handle. Non-IPv4
// sources fall back to HandleNone and are tracked as one sensor.
func handleFromIP(ip net.IP) Handle {
	ip4 := ip.To4()
	if ip4 == nil {
		return HandleNone
	}
	return Handle(binary.BigEndian.Uint32(ip4))
}

// mockHandleFromIP maps a capture packet's source address to a replay
// handle.
func mockHandleFromIP(ip net.IP) Handle {
	return handleFromIP(ip) | HandleFlagMock
}
