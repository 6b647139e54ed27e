package strixsdk

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/strix-photonics/strix-sdk-go/capture"
	"github.com/strix-photonics/strix-sdk-go/sensorerr"
)

// Replay feeds a packet capture through the SDK's ingest path. Sensors
// it produces carry HandleFlagMock. One facade exists per SDK
// instance; obtain it with (*SDK).Replay.
//
// Two drive modes exist. Resume starts an asynchronous pump that paces
// packets by their capture timestamps, scaled by Speed, rewinding at
// the end when loop is enabled. The ResumeBlocking variants inject
// synchronously on the caller's goroutine; they pause the pump first.
// Replay controls must not be called from SDK callbacks.
type Replay struct {
	sdk *SDK

	mu      sync.Mutex
	r       *capture.Reader
	path    string
	speed   float64
	loop    bool
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Replay returns the capture replay facade for this instance.
func (s *SDK) Replay() *Replay {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replay == nil {
		s.replay = &Replay{sdk: s, speed: 1}
	}
	return s.replay
}

// Open loads a capture, indexing packets addressed to the SDK's
// configured port. Any previous capture is closed and any running
// replay paused. Position starts at the beginning.
func (rp *Replay) Open(path string) *sensorerr.Error {
	if err := rp.sdk.ensureOpen(); err != nil {
		return err
	}
	r, err := capture.Open(path, uint16(rp.sdk.port))
	if err != nil {
		return captureError("open capture", err)
	}

	rp.stop()
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r != nil {
		rp.r.Close()
	}
	rp.r = r
	rp.path = path
	return nil
}

// Close pauses and releases the current capture.
func (rp *Replay) Close() *sensorerr.Error {
	rp.stop()
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r == nil {
		return sensorerr.New(sensorerr.ErrorNotOpen, "no capture open")
	}
	err := rp.r.Close()
	rp.r = nil
	rp.path = ""
	if err != nil {
		return sensorerr.Newf(sensorerr.ErrorFileIO, "close capture: %v", err)
	}
	return nil
}

// shutdown tears the replay down without the not-open bookkeeping;
// used by SDK.Close.
func (rp *Replay) shutdown() {
	rp.stop()
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r != nil {
		rp.r.Close()
		rp.r = nil
		rp.path = ""
	}
}

// IsOpen reports whether a capture is loaded.
func (rp *Replay) IsOpen() bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.r != nil
}

// Filename returns the open capture's path, or "".
func (rp *Replay) Filename() string {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.path
}

// StartTimeMicros returns the capture timestamp of the first packet.
func (rp *Replay) StartTimeMicros() int64 {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r == nil {
		return 0
	}
	return rp.r.StartTimeMicros()
}

// TimeMicros returns the current replay time: the capture start plus
// the current position.
func (rp *Replay) TimeMicros() int64 {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r == nil {
		return 0
	}
	return rp.r.StartTimeMicros() + int64(math.Round(1e6*rp.r.Position()))
}

// Position returns the current offset from the capture start in
// seconds.
func (rp *Replay) Position() float64 {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r == nil {
		return 0
	}
	return rp.r.Position()
}

// Length returns the capture's span in seconds.
func (rp *Replay) Length() float64 {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r == nil {
		return 0
	}
	return rp.r.Duration()
}

// IsEnd reports whether every packet has been injected.
func (rp *Replay) IsEnd() bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r == nil {
		return true
	}
	return rp.r.AtEnd()
}

// Seek moves to the given offset in seconds from the capture start.
// Offsets outside [0, Length] are invalid.
func (rp *Replay) Seek(position float64) *sensorerr.Error {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.seekLocked(position)
}

// SeekRelative moves by delta seconds from the current position.
func (rp *Replay) SeekRelative(delta float64) *sensorerr.Error {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r == nil {
		return sensorerr.New(sensorerr.ErrorNotOpen, "no capture open")
	}
	return rp.seekLocked(rp.r.Position() + delta)
}

func (rp *Replay) seekLocked(position float64) *sensorerr.Error {
	if rp.r == nil {
		return sensorerr.New(sensorerr.ErrorNotOpen, "no capture open")
	}
	if position < 0 || position > rp.r.Duration() {
		return sensorerr.Newf(sensorerr.ErrorInvalidArguments,
			"seek position %v outside capture [0, %v]", position, rp.r.Duration())
	}
	if err := rp.r.Seek(position); err != nil {
		return captureError("seek capture", err)
	}
	return nil
}

// SetEnableLoop makes the asynchronous pump rewind at the end of the
// capture instead of stopping.
func (rp *Replay) SetEnableLoop(enabled bool) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.loop = enabled
}

// EnableLoop reports the loop setting.
func (rp *Replay) EnableLoop() bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.loop
}

// SetSpeed scales asynchronous pacing; 1 is real time, larger is
// faster.
func (rp *Replay) SetSpeed(speed float64) *sensorerr.Error {
	if speed <= 0 || speed > 1000 {
		return sensorerr.Newf(sensorerr.ErrorInvalidArguments,
			"replay speed %v outside (0, 1000]", speed)
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.speed = speed
	return nil
}

// Speed returns the pacing multiplier.
func (rp *Replay) Speed() float64 {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.speed
}

// IsRunning reports whether the asynchronous pump is active.
func (rp *Replay) IsRunning() bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.running
}

// Resume starts the asynchronous pump from the current position. It is
// a no-op when already running.
func (rp *Replay) Resume() *sensorerr.Error {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r == nil {
		return sensorerr.New(sensorerr.ErrorNotOpen, "no capture open")
	}
	if rp.running {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	rp.cancel = cancel
	rp.done = done
	rp.running = true
	go rp.pump(ctx, done)
	return nil
}

// Pause stops the asynchronous pump and waits for it to finish the
// packet in flight. Position is preserved.
func (rp *Replay) Pause() *sensorerr.Error {
	rp.mu.Lock()
	open := rp.r != nil
	rp.mu.Unlock()
	if !open {
		return sensorerr.New(sensorerr.ErrorNotOpen, "no capture open")
	}
	rp.stop()
	return nil
}

// stop cancels the pump and waits for it to exit. Safe to call with no
// pump running. Must not be called with rp.mu held.
func (rp *Replay) stop() {
	rp.mu.Lock()
	cancel, done := rp.cancel, rp.done
	rp.cancel = nil
	rp.done = nil
	rp.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// ResumeBlockingOnce injects the next packet on the caller's
// goroutine, pausing the pump first. At the end of the capture it
// returns STRIX_ERROR_EOF unless loop is enabled.
func (rp *Replay) ResumeBlockingOnce() *sensorerr.Error {
	rp.stop()
	if !rp.IsOpen() {
		return sensorerr.New(sensorerr.ErrorNotOpen, "no capture open")
	}
	pkt, err := rp.next()
	if err == io.EOF {
		return sensorerr.New(sensorerr.ErrorEOF, "end of capture")
	}
	if err != nil {
		return captureError("replay read", err)
	}
	rp.inject(pkt)
	return nil
}

// ResumeBlocking injects packets on the caller's goroutine, without
// pacing, until the capture time has advanced by durationSeconds or
// the capture ends. A negative duration is invalid and the position
// does not move.
func (rp *Replay) ResumeBlocking(durationSeconds float64) *sensorerr.Error {
	if durationSeconds < 0 {
		return sensorerr.Newf(sensorerr.ErrorInvalidArguments,
			"replay duration %v is negative", durationSeconds)
	}
	rp.stop()
	if !rp.IsOpen() {
		return sensorerr.New(sensorerr.ErrorNotOpen, "no capture open")
	}
	var consumed float64
	prev := int64(-1)
	for {
		if consumed >= durationSeconds {
			return nil
		}
		pkt, err := rp.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return captureError("replay read", err)
		}
		if prev >= 0 && pkt.TimestampMicros > prev {
			consumed += float64(pkt.TimestampMicros-prev) / 1e6
		}
		prev = pkt.TimestampMicros
		rp.inject(pkt)
	}
}

// next returns the next packet, rewinding at the end when loop is
// enabled. io.EOF means the capture (or the replay itself) is done.
func (rp *Replay) next() (*capture.Packet, error) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.r == nil {
		return nil, io.EOF
	}
	pkt, err := rp.r.Next()
	if err == io.EOF && rp.loop {
		if rerr := rp.r.Rewind(); rerr != nil {
			return nil, rerr
		}
		pkt, err = rp.r.Next()
	}
	return pkt, err
}

func (rp *Replay) currentSpeed() float64 {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.speed
}

// inject hands one capture packet to the SDK under its mock handle.
func (rp *Replay) inject(pkt *capture.Packet) {
	h := mockHandleFromIP(pkt.SrcIP)
	if err := rp.sdk.ingest(h, pkt.TimestampMicros, pkt.Payload); err != nil {
		rp.sdk.dispatchError(h, err)
	}
}

// pump is the asynchronous drive loop. It paces by capture timestamp
// deltas scaled by speed, capping the sleep so stalls in sparse
// captures stay responsive to Pause.
func (rp *Replay) pump(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		rp.mu.Lock()
		rp.running = false
		rp.mu.Unlock()
	}()

	prev := int64(-1)
	for {
		if ctx.Err() != nil {
			return
		}
		pkt, err := rp.next()
		if err == io.EOF {
			return
		}
		if err != nil {
			rp.sdk.dispatchError(HandleNone, captureError("replay read", err))
			return
		}
		if prev >= 0 && pkt.TimestampMicros > prev {
			delay := time.Duration(float64(pkt.TimestampMicros-prev) / rp.currentSpeed() * float64(time.Microsecond))
			if delay > time.Second {
				delay = time.Second
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		prev = pkt.TimestampMicros
		rp.inject(pkt)
	}
}

// captureError maps capture package failures onto the coded contract.
func captureError(op string, err error) *sensorerr.Error {
	code := sensorerr.ErrorFileIO
	switch {
	case errors.Is(err, capture.ErrFormat):
		code = sensorerr.ErrorInvalidFileType
	case errors.Is(err, capture.ErrCorrupt):
		code = sensorerr.ErrorCorruptFile
	case errors.Is(err, io.EOF):
		code = sensorerr.ErrorEOF
	}
	return sensorerr.Newf(code, "%s: %v", op, err)
}
