package packet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Return is the pre-quantization form of one return record, used when
// building packets (simulators, fixtures, loopback tests).
type Return struct {
	ImageX     float32
	ImageZ     float32
	Distance   float32 // meters; <= 0 encodes as no return
	Intensity  float32 // 0..1
	ReturnType uint8
	Saturated  bool
}

// Measurement groups the returns of a single firing. Returns must
// hold exactly SegmentCount*ReturnCount records in segment-major
// order.
type Measurement struct {
	OffsetMicros uint16
	Returns      []Return
}

// EncodePoints builds a points packet. Geometry is validated the same
// way DecodePoints validates it, so encoded packets always decode.
func EncodePoints(serial uint64, timestampMicros int64, segments, returns, sweep uint8, measurements []Measurement) ([]byte, error) {
	if segments < 1 || segments > MAX_SEGMENTS {
		return nil, fmt.Errorf("segment count %d out of range", segments)
	}
	if returns < 1 || returns > MAX_RETURNS {
		return nil, fmt.Errorf("return count %d out of range", returns)
	}
	perMeasurement := int(segments) * int(returns)
	measSize := MEASUREMENT_TS_SIZE + perMeasurement*RETURN_SIZE
	total := HEADER_SIZE + len(measurements)*measSize
	if total > MAX_PACKET_SIZE {
		return nil, fmt.Errorf("packet would be %d bytes, max %d", total, MAX_PACKET_SIZE)
	}
	if len(measurements) > math.MaxUint16 {
		return nil, fmt.Errorf("too many measurements: %d", len(measurements))
	}

	buf := make([]byte, total)
	encodeHeader(buf, Header{
		SerialNumber:     serial,
		TimestampMicros:  timestampMicros,
		PacketType:       PACKET_TYPE_POINTS,
		SegmentCount:     segments,
		ReturnCount:      returns,
		MeasurementCount: uint16(len(measurements)),
		SweepID:          sweep,
	})
	for i, m := range measurements {
		if len(m.Returns) != perMeasurement {
			return nil, fmt.Errorf("measurement %d has %d returns, want %d", i, len(m.Returns), perMeasurement)
		}
		base := HEADER_SIZE + i*measSize
		binary.LittleEndian.PutUint16(buf[base:], m.OffsetMicros)
		for j, r := range m.Returns {
			encodeReturn(buf[base+MEASUREMENT_TS_SIZE+j*RETURN_SIZE:], r)
		}
	}
	return buf, nil
}

// EncodeTelemetry builds a telemetry packet from t's fields. The
// header's packet type and counts are filled in here; segment and
// return counts default to 1 when unset because telemetry carries no
// grid.
func EncodeTelemetry(t TelemetryPacket) ([]byte, error) {
	h := t.Header
	h.PacketType = PACKET_TYPE_TELEMETRY
	h.MeasurementCount = 0
	if h.SegmentCount == 0 {
		h.SegmentCount = 1
	}
	if h.ReturnCount == 0 {
		h.ReturnCount = 1
	}
	buf := make([]byte, HEADER_SIZE+TELEMETRY_PAYLOAD_SIZE)
	encodeHeader(buf, h)
	p := buf[HEADER_SIZE:]
	binary.LittleEndian.PutUint16(p[0:2], t.Model)
	p[2] = t.FirmwareMajor
	p[3] = t.FirmwareMinor
	p[4] = t.FirmwarePatch
	binary.LittleEndian.PutUint32(p[6:10], t.UptimeSeconds)
	binary.LittleEndian.PutUint32(p[10:14], uint32(t.TemperatureMilliC))
	binary.LittleEndian.PutUint16(p[14:16], t.MotorRPM)
	binary.LittleEndian.PutUint16(p[16:18], t.FaultBits)
	return buf, nil
}

func encodeHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint32(buf[0:4], PACKET_MAGIC)
	buf[4] = WIRE_VERSION
	buf[5] = h.PacketType
	buf[6] = h.SegmentCount
	buf[7] = h.ReturnCount
	binary.LittleEndian.PutUint64(buf[8:16], h.SerialNumber)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.TimestampMicros))
	binary.LittleEndian.PutUint16(buf[24:26], h.MeasurementCount)
	buf[26] = h.SweepID
}

func encodeReturn(rec []byte, r Return) {
	binary.LittleEndian.PutUint16(rec[0:2], uint16(clampI16(r.ImageX/IMAGE_RESOLUTION)))
	binary.LittleEndian.PutUint16(rec[2:4], uint16(clampI16(r.ImageZ/IMAGE_RESOLUTION)))
	var dist uint16
	if r.Distance > 0 {
		dist = clampU16(r.Distance / DISTANCE_RESOLUTION)
	}
	binary.LittleEndian.PutUint16(rec[4:6], dist)
	rec[6] = clampU8(r.Intensity * 255)
	flags := (r.ReturnType & RETURN_TYPE_MASK) << RETURN_TYPE_SHIFT
	if r.Saturated {
		flags |= FLAG_SATURATED
	}
	rec[7] = flags
}

func clampI16(v float32) int16 {
	r := math.Round(float64(v))
	if r > math.MaxInt16 {
		return math.MaxInt16
	}
	if r < math.MinInt16 {
		return math.MinInt16
	}
	return int16(r)
}

func clampU16(v float32) uint16 {
	r := math.Round(float64(v))
	if r > math.MaxUint16 {
		return math.MaxUint16
	}
	if r < 0 {
		return 0
	}
	return uint16(r)
}

func clampU8(v float32) uint8 {
	r := math.Round(float64(v))
	if r > math.MaxUint8 {
		return math.MaxUint8
	}
	if r < 0 {
		return 0
	}
	return uint8(r)
}
