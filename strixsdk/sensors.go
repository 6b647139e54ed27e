package strixsdk

import (
	"github.com/strix-photonics/strix-sdk-go/internal/frame"
	"github.com/strix-photonics/strix-sdk-go/sensorerr"
)

// SensorInformation is a snapshot of everything the SDK has learned
// about one sensor from its point and telemetry packets.
type SensorInformation struct {
	Handle       Handle
	SerialNumber uint64

	// Filled from telemetry; empty until the first telemetry packet.
	Model             string
	ModelID           uint16
	FirmwareVersion   string
	UptimeSeconds     uint32
	TemperatureMilliC int32
	MotorRPM          uint16
	Faults            []sensorerr.Code

	// Filled from point packets.
	SegmentCount int
	ReturnCount  int

	LastTimestampMicros int64
	PacketCount         uint64
	PointCount          uint64
	IsMock              bool
}

type sensorState struct {
	handle              Handle
	serial              uint64
	segments            int
	returns             int
	lastTimestampMicros int64
	packets             uint64
	points              uint64

	modelID           uint16
	model             string
	firmware          string
	uptimeSeconds     uint32
	temperatureMilliC int32
	motorRPM          uint16
	faults            []sensorerr.Code

	acc *frame.Accumulator
}

func (s *SDK) lookupOrCreateLocked(h Handle) *sensorState {
	st, ok := s.sensors[h]
	if !ok {
		st = &sensorState{handle: h, acc: s.newAccumulatorLocked(h)}
		s.sensors[h] = st
		s.order = append(s.order, h)
	}
	return st
}

func (s *SDK) newAccumulatorLocked(h Handle) *frame.Accumulator {
	return frame.NewAccumulator(s.frameCfg, func(points []ImagePoint) {
		s.pending = append(s.pending, frameDelivery{handle: h, points: points})
	})
}

func (st *sensorState) info() SensorInformation {
	info := SensorInformation{
		Handle:              st.handle,
		SerialNumber:        st.serial,
		Model:               st.model,
		ModelID:             st.modelID,
		FirmwareVersion:     st.firmware,
		UptimeSeconds:       st.uptimeSeconds,
		TemperatureMilliC:   st.temperatureMilliC,
		MotorRPM:            st.motorRPM,
		SegmentCount:        st.segments,
		ReturnCount:         st.returns,
		LastTimestampMicros: st.lastTimestampMicros,
		PacketCount:         st.packets,
		PointCount:          st.points,
		IsMock:              st.handle.IsMock(),
	}
	if len(st.faults) > 0 {
		info.Faults = append([]sensorerr.Code(nil), st.faults...)
	}
	return info
}

// SensorCount returns the number of sensors heard from since the last
// Clear.
func (s *SDK) SensorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	return len(s.sensors)
}

// SensorInformation looks a sensor up by handle.
func (s *SDK) SensorInformation(h Handle) (SensorInformation, *sensorerr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return SensorInformation{}, sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	st, ok := s.sensors[h]
	if !ok {
		return SensorInformation{}, sensorerr.Newf(sensorerr.ErrorNotFound, "no sensor with handle %v", h)
	}
	return st.info(), nil
}

// SensorInformationByIndex walks sensors in the order they were first
// heard from; valid indexes are [0, SensorCount()).
func (s *SDK) SensorInformationByIndex(i int) (SensorInformation, *sensorerr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return SensorInformation{}, sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	if i < 0 || i >= len(s.order) {
		return SensorInformation{}, sensorerr.Newf(sensorerr.ErrorInvalidArguments,
			"sensor index %d out of range [0, %d)", i, len(s.order))
	}
	return s.sensors[s.order[i]].info(), nil
}

// HandleBySerialNumber finds the sensor reporting the given serial.
func (s *SDK) HandleBySerialNumber(serial uint64) (Handle, *sensorerr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return HandleNone, sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	for _, h := range s.order {
		if s.sensors[h].serial == serial {
			return h, nil
		}
	}
	return HandleNone, sensorerr.Newf(sensorerr.ErrorNotFound, "no sensor with serial %d", serial)
}

// Clear empties the sensor registry and drops partial frames. Useful
// between captures so replayed sensors do not mix.
func (s *SDK) Clear() *sensorerr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	for _, st := range s.sensors {
		st.acc.Drop()
	}
	s.sensors = make(map[Handle]*sensorState)
	s.order = nil
	s.pending = nil
	return nil
}
