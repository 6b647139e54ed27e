// Package frame batches decoded points into frames according to the
// configured aggregation mode. One Accumulator serves one sensor;
// emission happens synchronously on the ingest goroutine so manual
// packet injection observes its callbacks before returning.
package frame

import (
	"fmt"

	"github.com/strix-photonics/strix-sdk-go/internal/packet"
)

// Mode selects how points batch into frames.
type Mode uint8

const (
	// ModeStreaming delivers each packet's points as soon as they
	// decode, one callback per packet.
	ModeStreaming Mode = iota
	// ModeTimed accumulates until the frame spans the configured
	// length in sensor time.
	ModeTimed
	// ModeCover delivers one frame per completed scan sweep.
	ModeCover
	// ModeCycle delivers one frame per full scan cycle, detected when
	// the sweep id wraps.
	ModeCycle
)

func (m Mode) String() string {
	switch m {
	case ModeStreaming:
		return "streaming"
	case ModeTimed:
		return "timed"
	case ModeCover:
		return "cover"
	case ModeCycle:
		return "cycle"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Config selects the aggregation policy. Length is in seconds and
// only applies to ModeTimed.
type Config struct {
	Mode   Mode
	Length float64
}

// Accumulator batches one sensor's points. Not safe for concurrent
// use; the ingest path serializes access per sensor.
type Accumulator struct {
	cfg  Config
	emit func([]packet.ImagePoint)

	buf         []packet.ImagePoint
	segments    uint8
	returns     uint8
	startMicros int64
	sweep       uint8
	haveSweep   bool
}

// NewAccumulator returns an accumulator delivering frames to emit.
func NewAccumulator(cfg Config, emit func([]packet.ImagePoint)) *Accumulator {
	return &Accumulator{cfg: cfg, emit: emit}
}

// AddPacket folds a decoded points packet into the current frame,
// emitting any frame the packet completes. Grid order is preserved:
// a frame is the concatenation of its packets' grids.
func (a *Accumulator) AddPacket(p *packet.PointsPacket) {
	if len(p.Points) == 0 {
		return
	}
	if a.cfg.Mode == ModeStreaming {
		a.emit(p.Points)
		return
	}

	// A geometry change invalidates the grid factors of the open
	// frame; close it first.
	if len(a.buf) > 0 && (p.SegmentCount != a.segments || p.ReturnCount != a.returns) {
		a.Flush()
	}

	switch a.cfg.Mode {
	case ModeCover:
		if a.haveSweep && p.SweepID != a.sweep {
			a.Flush()
		}
	case ModeCycle:
		if a.haveSweep && p.SweepID < a.sweep {
			a.Flush()
		}
	}

	if len(a.buf) == 0 {
		a.startMicros = p.TimestampMicros
		a.segments = p.SegmentCount
		a.returns = p.ReturnCount
	}
	a.buf = append(a.buf, p.Points...)
	a.sweep = p.SweepID
	a.haveSweep = true

	if a.cfg.Mode == ModeTimed {
		if span := p.TimestampMicros - a.startMicros; float64(span) >= a.cfg.Length*1e6 {
			a.Flush()
		}
	}
}

// Flush emits the buffered frame, if any.
func (a *Accumulator) Flush() {
	if len(a.buf) == 0 {
		return
	}
	out := a.buf
	a.buf = nil
	a.emit(out)
}

// Drop discards buffered points without emitting them.
func (a *Accumulator) Drop() {
	a.buf = nil
	a.haveSweep = false
}

// Pending returns the number of buffered points.
func (a *Accumulator) Pending() int {
	return len(a.buf)
}
