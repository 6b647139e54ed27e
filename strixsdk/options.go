package strixsdk

import "fmt"

// DefaultPort is the UDP port Strix sensors stream to out of the box.
const DefaultPort = 8808

// Control holds SDK behavior flags, combined with bitwise or. Bit 0 is
// reserved.
type Control uint32

const (
	// ControlDisableNetwork skips binding the UDP socket; packets
	// arrive only through MockNetworkReceive or capture replay.
	ControlDisableNetwork Control = 1 << 1
	// ControlDisableImageClip keeps points outside the image window
	// valid instead of clipping them.
	ControlDisableImageClip Control = 1 << 2
	// ControlDisableDistanceClip keeps points outside the distance
	// window valid instead of clipping them.
	ControlDisableDistanceClip Control = 1 << 3
	// ControlEnableMultipleReturns keeps secondary returns valid;
	// without it only the first return of each measurement survives.
	ControlEnableMultipleReturns Control = 1 << 4

	controlAll = ControlDisableNetwork | ControlDisableImageClip |
		ControlDisableDistanceClip | ControlEnableMultipleReturns
)

// FrameMode selects how incoming points are grouped before delivery to
// the image-frame callback.
type FrameMode uint8

const (
	// FrameStreaming delivers each packet's points as they arrive.
	FrameStreaming FrameMode = iota
	// FrameTimed delivers frames covering a fixed span of device time.
	FrameTimed
	// FrameCover delivers one frame per completed scan sweep.
	FrameCover
	// FrameCycle delivers one frame per full scan cycle.
	FrameCycle
)

func (m FrameMode) String() string {
	switch m {
	case FrameStreaming:
		return "streaming"
	case FrameTimed:
		return "timed"
	case FrameCover:
		return "cover"
	case FrameCycle:
		return "cycle"
	default:
		return fmt.Sprintf("frame-mode(%d)", uint8(m))
	}
}

// FrameOptions configures frame aggregation. The zero value streams.
type FrameOptions struct {
	Mode FrameMode
	// Length is the frame span in seconds; required for FrameTimed,
	// ignored otherwise.
	Length float64
}

// Options configures Initialize. The zero value listens on DefaultPort
// with clipping enabled and streaming frames.
type Options struct {
	// Port is the UDP listen port; 0 means DefaultPort.
	Port int
	// RcvBuf is the kernel receive buffer request in bytes; 0 keeps
	// the listener default.
	RcvBuf  int
	Control Control
	Frame   FrameOptions
}
