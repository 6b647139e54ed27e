// Package strixsdk is the client library for Strix Photonics network
// LiDAR sensors. It binds a UDP socket, decodes the point and telemetry
// packets the sensors stream, maintains a registry of every sensor
// heard from, groups points into frames, and hands both raw packets and
// frames to application callbacks. Captured traffic can be replayed
// through the same path via the Replay facade, and synthetic packets
// injected with MockNetworkReceive.
//
// Every fallible operation returns a *sensorerr.Error (nil on success).
// Those values carry a must-check obligation; see package sensorerr.
package strixsdk

import (
	"context"
	"math"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strix-photonics/strix-sdk-go/internal/frame"
	"github.com/strix-photonics/strix-sdk-go/internal/netio"
	"github.com/strix-photonics/strix-sdk-go/internal/packet"
	"github.com/strix-photonics/strix-sdk-go/sensorerr"
)

// ImagePoint is one return in focal-plane coordinates: ImageX/ImageZ
// are tangent-plane offsets at unit forward distance, Distance is
// meters, Intensity is [0,1]. Invalid points hold a grid slot but
// carry no return.
type ImagePoint = packet.ImagePoint

// Return type values found in ImagePoint.ReturnType.
const (
	ReturnStrongest = packet.RETURN_STRONGEST
	ReturnFarthest  = packet.RETURN_FARTHEST
)

// SensorErrorCallback receives decode failures, listener faults, and
// device faults parsed from telemetry. Errors not tied to a sensor
// arrive with HandleNone. The callback owns the error's must-check
// obligation.
type SensorErrorCallback func(handle Handle, err *sensorerr.Error)

// ImageFrameCallback receives aggregated frames. Points are ordered by
// measurement, then segment, then return, invalid slots included, so
// slice index ((m*segments)+s)*returns+r addresses a fixed grid cell.
// The slice must not be retained past the call.
type ImageFrameCallback func(handle Handle, points []ImagePoint)

// NetworkPacketCallback receives every raw packet before decoding. The
// payload is only valid for the duration of the call.
type NetworkPacketCallback func(handle Handle, timestampMicros int64, payload []byte)

// Clip windows applied on ingest unless disabled by control flags.
const (
	imageClipAbs    = 1.4   // focal-plane units, about a 54 degree half angle
	distanceClipMin = 0.25  // meters
	distanceClipMax = 250.0 // meters
)

type frameDelivery struct {
	handle Handle
	points []ImagePoint
}

// SDK is one initialized instance. Methods are safe for concurrent
// use. Callbacks are invoked synchronously from the goroutine that
// delivered the packet (the listener, a Replay pump, or the
// MockNetworkReceive caller) and must not block for long.
type SDK struct {
	port    int
	control atomic.Uint32
	onError SensorErrorCallback

	mu       sync.Mutex
	closed   bool
	frameCfg frame.Config
	sensors  map[Handle]*sensorState
	order    []Handle
	pending  []frameDelivery
	frameCb  ImageFrameCallback
	packetCb NetworkPacketCallback
	replay   *Replay

	listener *netio.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Initialize brings up an SDK instance. version must equal Version.
// Unless ControlDisableNetwork is set, the UDP socket is bound and the
// listen loop started before Initialize returns; a bind failure fails
// initialization. onError may be nil, in which case asynchronous
// errors are logged through Logf.
func Initialize(version int, opts Options, onError SensorErrorCallback) (*SDK, error) {
	if version != Version {
		return nil, sensorerr.Newf(sensorerr.ErrorVersionMismatch,
			"sdk version tag %d, library has %d", version, Version)
	}
	if unknown := opts.Control &^ controlAll; unknown != 0 {
		return nil, sensorerr.Newf(sensorerr.ErrorInvalidArguments,
			"unknown control flags 0x%x", uint32(unknown))
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	cfg, cfgErr := frameConfig(opts.Frame)
	if cfgErr != nil {
		return nil, cfgErr
	}

	s := &SDK{
		port:     opts.Port,
		onError:  onError,
		frameCfg: cfg,
		sensors:  make(map[Handle]*sensorState),
	}
	s.control.Store(uint32(opts.Control))

	if opts.Control&ControlDisableNetwork == 0 {
		l := netio.NewListener(netio.ListenerConfig{
			Address: ":" + strconv.Itoa(opts.Port),
			RcvBuf:  opts.RcvBuf,
			ErrorFunc: func(err error) {
				s.dispatchError(HandleNone,
					sensorerr.Newf(sensorerr.ErrorCommunication, "listener: %v", err))
			},
		}, sdkSink{s})
		if err := l.Bind(); err != nil {
			return nil, sensorerr.Newf(sensorerr.ErrorCommunication,
				"bind udp port %d: %v", opts.Port, err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.listener = l
		s.cancel = cancel
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := l.Run(ctx); err != nil && ctx.Err() == nil {
				Logf("strixsdk: listener stopped: %v", err)
			}
		}()
	}
	return s, nil
}

// Close stops the listener and any replay, flushes partial frames to
// the image-frame callback, and releases the instance. A second Close
// returns STRIX_ERROR_NOT_INITIALIZED.
func (s *SDK) Close() *sensorerr.Error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sensorerr.New(sensorerr.ErrorNotInitialized, "sdk already closed")
	}
	s.closed = true
	cancel, listener, replay := s.cancel, s.listener, s.replay
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	if listener != nil {
		listener.Close()
	}
	if replay != nil {
		replay.shutdown()
	}

	// The ingest paths are quiet now; flush what the accumulators hold.
	s.mu.Lock()
	for _, h := range s.order {
		s.sensors[h].acc.Flush()
	}
	pending := s.takePendingLocked()
	frameCb := s.frameCb
	s.mu.Unlock()
	s.deliverFrames(frameCb, pending)
	return nil
}

func (s *SDK) ensureOpen() *sensorerr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	return nil
}

// ControlFlags returns the current control flags.
func (s *SDK) ControlFlags() Control {
	return Control(s.control.Load())
}

// HasControlFlag reports whether every flag in mask is set.
func (s *SDK) HasControlFlag(mask Control) bool {
	return s.ControlFlags()&mask == mask
}

// SetControlFlags replaces the masked bits with the given flags and
// returns the previous flags. ControlDisableNetwork is honored at
// Initialize only; toggling it later does not start or stop the
// listener.
func (s *SDK) SetControlFlags(mask, flags Control) Control {
	for {
		old := s.control.Load()
		next := (old &^ uint32(mask)) | uint32(flags&mask)
		if s.control.CompareAndSwap(old, next) {
			return Control(old)
		}
	}
}

// FrameMode returns the active aggregation mode.
func (s *SDK) FrameMode() FrameMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FrameMode(s.frameCfg.Mode)
}

// FrameLength returns the timed-mode frame span in seconds.
func (s *SDK) FrameLength() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCfg.Length
}

// SetFrameOptions switches aggregation. Partial frames accumulated
// under the old options are flushed to the image-frame callback.
func (s *SDK) SetFrameOptions(fo FrameOptions) *sensorerr.Error {
	cfg, err := frameConfig(fo)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	s.frameCfg = cfg
	for _, h := range s.order {
		st := s.sensors[h]
		st.acc.Flush()
		st.acc = s.newAccumulatorLocked(h)
	}
	pending := s.takePendingLocked()
	frameCb := s.frameCb
	s.mu.Unlock()
	s.deliverFrames(frameCb, pending)
	return nil
}

func frameConfig(fo FrameOptions) (frame.Config, *sensorerr.Error) {
	cfg := frame.Config{Length: fo.Length}
	switch fo.Mode {
	case FrameStreaming:
		cfg.Mode = frame.ModeStreaming
	case FrameTimed:
		if fo.Length <= 0 {
			return cfg, sensorerr.Newf(sensorerr.ErrorInvalidArguments,
				"timed frame mode needs a positive length, got %v", fo.Length)
		}
		cfg.Mode = frame.ModeTimed
	case FrameCover:
		cfg.Mode = frame.ModeCover
	case FrameCycle:
		cfg.Mode = frame.ModeCycle
	default:
		return cfg, sensorerr.Newf(sensorerr.ErrorInvalidArguments,
			"unknown frame mode %d", fo.Mode)
	}
	return cfg, nil
}

// sdkSink adapts the SDK to the listener's delivery interface.
type sdkSink struct {
	s *SDK
}

func (k sdkSink) HandlePacket(src *net.UDPAddr, arrival time.Time, payload []byte) {
	h := handleFromIP(src.IP)
	if err := k.s.ingest(h, arrival.UnixMicro(), payload); err != nil {
		k.s.dispatchError(h, err)
	}
}

// dispatchError routes an asynchronous error to the application's
// callback, or logs and discharges it when no callback is registered.
func (s *SDK) dispatchError(h Handle, err *sensorerr.Error) {
	if s.onError != nil {
		s.onError(h, err)
		return
	}
	Logf("strixsdk: sensor %v: %v", h, err)
	err.Ignore()
}

// ingest is the single receive path: live, replayed, and mock packets
// all pass through here.
func (s *SDK) ingest(h Handle, timestampMicros int64, payload []byte) *sensorerr.Error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	packetCb := s.packetCb
	s.mu.Unlock()

	if packetCb != nil {
		packetCb(h, timestampMicros, payload)
	}

	hdr, err := packet.DecodeHeader(payload)
	if err != nil {
		return sensorerr.Newf(sensorerr.ErrorCommunication, "decode packet: %v", err)
	}
	switch hdr.PacketType {
	case packet.PACKET_TYPE_TELEMETRY:
		tp, err := packet.DecodeTelemetry(payload)
		if err != nil {
			return sensorerr.Newf(sensorerr.ErrorCommunication, "decode telemetry: %v", err)
		}
		s.ingestTelemetry(h, tp)
	default:
		pp, err := packet.DecodePoints(payload)
		if err != nil {
			return sensorerr.Newf(sensorerr.ErrorCommunication, "decode points: %v", err)
		}
		s.ingestPoints(h, pp)
	}
	return nil
}

func (s *SDK) ingestPoints(h Handle, pp *packet.PointsPacket) {
	s.clip(pp.Points, int(pp.Header.ReturnCount))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	st := s.lookupOrCreateLocked(h)
	st.serial = pp.Header.SerialNumber
	st.segments = int(pp.Header.SegmentCount)
	st.returns = int(pp.Header.ReturnCount)
	st.lastTimestampMicros = pp.Header.TimestampMicros
	st.packets++
	st.points += uint64(len(pp.Points))
	st.acc.AddPacket(pp)
	pending := s.takePendingLocked()
	frameCb := s.frameCb
	s.mu.Unlock()

	s.deliverFrames(frameCb, pending)
}

func (s *SDK) ingestTelemetry(h Handle, tp *packet.TelemetryPacket) {
	faults := tp.FaultCodes()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	st := s.lookupOrCreateLocked(h)
	st.serial = tp.Header.SerialNumber
	st.lastTimestampMicros = tp.Header.TimestampMicros
	st.modelID = tp.Model
	st.model = packet.ModelName(tp.Model)
	st.firmware = tp.Firmware()
	st.uptimeSeconds = tp.UptimeSeconds
	st.temperatureMilliC = tp.TemperatureMilliC
	st.motorRPM = tp.MotorRPM
	st.faults = faults
	st.packets++
	s.mu.Unlock()

	for _, code := range faults {
		s.dispatchError(h, sensorerr.Newf(code, "sensor %d reported fault", tp.Header.SerialNumber))
	}
}

// clip marks points outside the configured windows invalid, leaving
// the grid layout intact.
func (s *SDK) clip(pts []ImagePoint, returnCount int) {
	ctrl := s.ControlFlags()
	clipImage := ctrl&ControlDisableImageClip == 0
	clipDistance := ctrl&ControlDisableDistanceClip == 0
	firstReturnOnly := ctrl&ControlEnableMultipleReturns == 0 && returnCount > 1
	if !clipImage && !clipDistance && !firstReturnOnly {
		return
	}
	for i := range pts {
		p := &pts[i]
		if firstReturnOnly && i%returnCount != 0 {
			p.Valid = false
		}
		if !p.Valid {
			continue
		}
		if clipImage &&
			(math.Abs(float64(p.ImageX)) > imageClipAbs || math.Abs(float64(p.ImageZ)) > imageClipAbs) {
			p.Valid = false
			continue
		}
		if clipDistance && (p.Distance < distanceClipMin || p.Distance > distanceClipMax) {
			p.Valid = false
		}
	}
}

func (s *SDK) takePendingLocked() []frameDelivery {
	pending := s.pending
	s.pending = nil
	return pending
}

func (s *SDK) deliverFrames(cb ImageFrameCallback, pending []frameDelivery) {
	if cb == nil {
		return
	}
	for _, d := range pending {
		cb(d.handle, d.points)
	}
}
