package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/strix-photonics/strix-sdk-go/sensorerr"
)

/*
Strix Point Packet Codec

Strix sensors stream fixed-layout UDP packets. Every packet starts with
a 32-byte header; the payload is either a block of point measurements
(type 0x01) or a telemetry report (type 0x02).

HEADER (32 bytes, little-endian):
├── 0:4    magic "STRX"
├── 4      wire version (currently 1)
├── 5      packet type (0x01 points, 0x02 telemetry)
├── 6      segment count S (1..4, emitter banks)
├── 7      return count R (1..2, returns per firing)
├── 8:16   serial number (uint64)
├── 16:24  device timestamp (int64, microseconds since epoch)
├── 24:26  measurement count M (uint16, points packets only)
├── 26     sweep id (uint8, wraps; increments once per scan sweep)
├── 27     flags (reserved)
└── 28:32  reserved

POINTS PAYLOAD (M measurements):
Each measurement is a 2-byte timestamp offset (microseconds after the
header timestamp) followed by S*R return records of 8 bytes each:
├── 0:2  image X (int16, 1/8192 focal units)
├── 2:4  image Z (int16, 1/8192 focal units)
├── 4:6  distance (uint16, 4 mm per LSB; 0 means no return)
├── 6    intensity (uint8, 0..255 maps to 0..1)
└── 7    flags (bit 0 saturated, bits 1-2 return type)

Returns inside a measurement are ordered segment-major: the record for
segment s, return r sits at index s*R + r. Decoded points preserve the
full grid, invalid (no-return) slots included, so a frame slice can be
indexed as ((measurement*S)+segment)*R + return.

TELEMETRY PAYLOAD (24 bytes):
├── 0:2    model (uint16)
├── 2:5    firmware major/minor/patch
├── 5      reserved
├── 6:10   uptime seconds (uint32)
├── 10:14  internal temperature (int32, milli-degrees C)
├── 14:16  motor speed (uint16, RPM)
├── 16:18  fault bitmask (bit i maps to fault code -(1000+i))
└── 18:24  reserved

Validation is strict: bad magic, unknown version or type, out-of-range
geometry, and any length inconsistency reject the whole packet.
*/

// Wire format constants. These define the fixed layout of UDP packets
// emitted by every Strix sensor model.
const (
	PACKET_MAGIC = 0x58525453 // "STRX" read as little-endian uint32
	WIRE_VERSION = 1

	PACKET_TYPE_POINTS    = 0x01
	PACKET_TYPE_TELEMETRY = 0x02

	HEADER_SIZE            = 32   // fixed header bytes
	MEASUREMENT_TS_SIZE    = 2    // per-measurement timestamp offset
	RETURN_SIZE            = 8    // one return record
	TELEMETRY_PAYLOAD_SIZE = 24   // telemetry body bytes
	MAX_PACKET_SIZE        = 1500 // never fragmented: one UDP datagram per packet

	MAX_SEGMENTS = 4 // emitter banks per unit
	MAX_RETURNS  = 2 // strongest + farthest

	// Physical conversion constants.
	IMAGE_RESOLUTION     = 1.0 / 8192 // focal-plane units per LSB
	DISTANCE_RESOLUTION  = 0.004      // meters per LSB (4 mm)
	INTENSITY_RESOLUTION = 1.0 / 255  // intensity fraction per LSB

	// Return record flag bits.
	FLAG_SATURATED    = 0x01
	RETURN_TYPE_SHIFT = 1
	RETURN_TYPE_MASK  = 0x03
)

// Return types carried in bits 1-2 of the return record flags.
const (
	RETURN_STRONGEST = 0
	RETURN_FARTHEST  = 1
)

// Header is the decoded 32-byte packet header.
type Header struct {
	SerialNumber     uint64
	TimestampMicros  int64
	PacketType       uint8
	SegmentCount     uint8
	ReturnCount      uint8
	MeasurementCount uint16
	SweepID          uint8
}

// ImagePoint is a single decoded return in focal-plane coordinates.
// ImageX and ImageZ are tangent-plane offsets at unit forward
// distance; Distance is meters along the ray. Invalid points (no
// return, or clipped downstream) keep their grid slot with Valid
// false.
type ImagePoint struct {
	TimestampMicros int64
	ImageX          float32
	ImageZ          float32
	Distance        float32
	Intensity       float32
	ReturnType      uint8
	Valid           bool
	Saturated       bool
}

// PointsPacket is a decoded points packet: the header plus the full
// measurement x segment x return grid in wire order.
type PointsPacket struct {
	Header
	Points []ImagePoint
}

// TelemetryPacket is a decoded telemetry report.
type TelemetryPacket struct {
	Header
	Model             uint16
	FirmwareMajor     uint8
	FirmwareMinor     uint8
	FirmwarePatch     uint8
	UptimeSeconds     uint32
	TemperatureMilliC int32
	MotorRPM          uint16
	FaultBits         uint16
}

// DecodeHeader validates the fixed header and returns it. It checks
// everything that can be checked without the payload: magic, version,
// type, and geometry ranges.
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HEADER_SIZE {
		return h, fmt.Errorf("packet too short: %d bytes, header needs %d", len(data), HEADER_SIZE)
	}
	if len(data) > MAX_PACKET_SIZE {
		return h, fmt.Errorf("packet too long: %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != PACKET_MAGIC {
		return h, fmt.Errorf("bad magic 0x%08x", magic)
	}
	if v := data[4]; v != WIRE_VERSION {
		return h, fmt.Errorf("unsupported wire version %d", v)
	}
	h.PacketType = data[5]
	if h.PacketType != PACKET_TYPE_POINTS && h.PacketType != PACKET_TYPE_TELEMETRY {
		return h, fmt.Errorf("unknown packet type 0x%02x", h.PacketType)
	}
	h.SegmentCount = data[6]
	if h.SegmentCount < 1 || h.SegmentCount > MAX_SEGMENTS {
		return h, fmt.Errorf("segment count %d out of range", h.SegmentCount)
	}
	h.ReturnCount = data[7]
	if h.ReturnCount < 1 || h.ReturnCount > MAX_RETURNS {
		return h, fmt.Errorf("return count %d out of range", h.ReturnCount)
	}
	h.SerialNumber = binary.LittleEndian.Uint64(data[8:16])
	h.TimestampMicros = int64(binary.LittleEndian.Uint64(data[16:24]))
	h.MeasurementCount = binary.LittleEndian.Uint16(data[24:26])
	h.SweepID = data[26]
	return h, nil
}

// MeasurementSize returns the wire size of one measurement for the
// header's geometry.
func (h Header) MeasurementSize() int {
	return MEASUREMENT_TS_SIZE + int(h.SegmentCount)*int(h.ReturnCount)*RETURN_SIZE
}

// DecodePoints decodes a points packet into the full ordered grid.
func DecodePoints(data []byte) (*PointsPacket, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if h.PacketType != PACKET_TYPE_POINTS {
		return nil, fmt.Errorf("packet type 0x%02x is not a points packet", h.PacketType)
	}
	m := int(h.MeasurementCount)
	want := HEADER_SIZE + m*h.MeasurementSize()
	if len(data) != want {
		return nil, fmt.Errorf("packet length %d, want %d for %d measurements", len(data), want, m)
	}

	s := int(h.SegmentCount)
	r := int(h.ReturnCount)
	points := make([]ImagePoint, 0, m*s*r)
	for i := 0; i < m; i++ {
		base := HEADER_SIZE + i*h.MeasurementSize()
		ts := h.TimestampMicros + int64(binary.LittleEndian.Uint16(data[base:base+2]))
		for seg := 0; seg < s; seg++ {
			for ret := 0; ret < r; ret++ {
				off := base + MEASUREMENT_TS_SIZE + (seg*r+ret)*RETURN_SIZE
				points = append(points, decodeReturn(data[off:off+RETURN_SIZE], ts))
			}
		}
	}
	return &PointsPacket{Header: h, Points: points}, nil
}

func decodeReturn(rec []byte, ts int64) ImagePoint {
	rawDist := binary.LittleEndian.Uint16(rec[4:6])
	flags := rec[7]
	return ImagePoint{
		TimestampMicros: ts,
		ImageX:          float32(int16(binary.LittleEndian.Uint16(rec[0:2]))) * IMAGE_RESOLUTION,
		ImageZ:          float32(int16(binary.LittleEndian.Uint16(rec[2:4]))) * IMAGE_RESOLUTION,
		Distance:        float32(rawDist) * DISTANCE_RESOLUTION,
		Intensity:       float32(rec[6]) * INTENSITY_RESOLUTION,
		ReturnType:      (flags >> RETURN_TYPE_SHIFT) & RETURN_TYPE_MASK,
		Valid:           rawDist != 0,
		Saturated:       flags&FLAG_SATURATED != 0,
	}
}

// DecodeTelemetry decodes a telemetry packet.
func DecodeTelemetry(data []byte) (*TelemetryPacket, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if h.PacketType != PACKET_TYPE_TELEMETRY {
		return nil, fmt.Errorf("packet type 0x%02x is not a telemetry packet", h.PacketType)
	}
	if len(data) != HEADER_SIZE+TELEMETRY_PAYLOAD_SIZE {
		return nil, fmt.Errorf("telemetry length %d, want %d", len(data), HEADER_SIZE+TELEMETRY_PAYLOAD_SIZE)
	}
	p := data[HEADER_SIZE:]
	return &TelemetryPacket{
		Header:            h,
		Model:             binary.LittleEndian.Uint16(p[0:2]),
		FirmwareMajor:     p[2],
		FirmwareMinor:     p[3],
		FirmwarePatch:     p[4],
		UptimeSeconds:     binary.LittleEndian.Uint32(p[6:10]),
		TemperatureMilliC: int32(binary.LittleEndian.Uint32(p[10:14])),
		MotorRPM:          binary.LittleEndian.Uint16(p[14:16]),
		FaultBits:         binary.LittleEndian.Uint16(p[16:18]),
	}, nil
}

// faultBitCodes maps telemetry fault bit i to its fault code.
var faultBitCodes = []sensorerr.Code{
	sensorerr.FaultInternal,
	sensorerr.FaultExtremeTemperature,
	sensorerr.FaultExtremeHumidity,
	sensorerr.FaultExtremeAcceleration,
	sensorerr.FaultAbnormalFOV,
	sensorerr.FaultAbnormalFrameRate,
	sensorerr.FaultMotorMalfunction,
	sensorerr.FaultLaserMalfunction,
	sensorerr.FaultDetectorMalfunction,
}

// FaultCodes expands the fault bitmask into fault codes, lowest bit
// first. Unassigned high bits are ignored.
func (t *TelemetryPacket) FaultCodes() []sensorerr.Code {
	if t.FaultBits == 0 {
		return nil
	}
	var codes []sensorerr.Code
	for i, c := range faultBitCodes {
		if t.FaultBits&(1<<uint(i)) != 0 {
			codes = append(codes, c)
		}
	}
	return codes
}

// Firmware renders the firmware version as "major.minor.patch".
func (t *TelemetryPacket) Firmware() string {
	return fmt.Sprintf("%d.%d.%d", t.FirmwareMajor, t.FirmwareMinor, t.FirmwarePatch)
}

var modelNames = map[uint16]string{
	1: "Aluco-32",
	2: "Varia-64",
	3: "Nebulosa-128",
}

// ModelName resolves a model number to its marketing name.
func ModelName(model uint16) string {
	if name, ok := modelNames[model]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", model)
}
