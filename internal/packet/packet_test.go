package packet

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/strix-photonics/strix-sdk-go/sensorerr"
)

func TestPointsRoundTrip(t *testing.T) {
	const (
		serial   = uint64(550012)
		ts       = int64(1700000000000000)
		segments = 2
		returns  = 2
	)
	measurements := []Measurement{
		{OffsetMicros: 0, Returns: []Return{
			{ImageX: 0.25, ImageZ: -0.125, Distance: 10.0, Intensity: 0.2, ReturnType: RETURN_STRONGEST},
			{ImageX: 0.25, ImageZ: -0.125, Distance: 14.5, Intensity: 0.0, ReturnType: RETURN_FARTHEST},
			{ImageX: -0.5, ImageZ: 0.0625, Distance: 3.2, Intensity: 1.0, ReturnType: RETURN_STRONGEST, Saturated: true},
			{Distance: 0}, // no return in this slot
		}},
		{OffsetMicros: 417, Returns: []Return{
			{ImageX: 0.5, ImageZ: 0.5, Distance: 96.0, Intensity: 0.6},
			{Distance: 0},
			{ImageX: -1.0, ImageZ: -1.0, Distance: 200.0, Intensity: 0.4},
			{ImageX: -1.0, ImageZ: -1.0, Distance: 250.0, Intensity: 0.2, ReturnType: RETURN_FARTHEST},
		}},
	}

	data, err := EncodePoints(serial, ts, segments, returns, 9, measurements)
	if err != nil {
		t.Fatalf("EncodePoints: %v", err)
	}
	pkt, err := DecodePoints(data)
	if err != nil {
		t.Fatalf("DecodePoints: %v", err)
	}

	if pkt.SerialNumber != serial {
		t.Errorf("serial = %d, want %d", pkt.SerialNumber, serial)
	}
	if pkt.TimestampMicros != ts {
		t.Errorf("timestamp = %d, want %d", pkt.TimestampMicros, ts)
	}
	if pkt.SweepID != 9 {
		t.Errorf("sweep = %d, want 9", pkt.SweepID)
	}
	if pkt.SegmentCount != segments || pkt.ReturnCount != returns {
		t.Errorf("geometry = %dx%d, want %dx%d", pkt.SegmentCount, pkt.ReturnCount, segments, returns)
	}
	if len(pkt.Points) != len(measurements)*segments*returns {
		t.Fatalf("points = %d, want full grid of %d", len(pkt.Points), len(measurements)*segments*returns)
	}

	approx := func(a, b float32) bool { d := a - b; return d < 0.005 && d > -0.005 }

	// The decoded slice must follow measurement x segment x return
	// order, invalid slots included.
	for m := range measurements {
		for s := 0; s < segments; s++ {
			for r := 0; r < returns; r++ {
				idx := ((m*segments)+s)*returns + r
				src := measurements[m].Returns[s*returns+r]
				got := pkt.Points[idx]
				if got.Valid != (src.Distance > 0) {
					t.Errorf("point[%d] valid = %v, want %v", idx, got.Valid, src.Distance > 0)
				}
				wantTS := ts + int64(measurements[m].OffsetMicros)
				if got.TimestampMicros != wantTS {
					t.Errorf("point[%d] ts = %d, want %d", idx, got.TimestampMicros, wantTS)
				}
				if got.Saturated != src.Saturated {
					t.Errorf("point[%d] saturated = %v, want %v", idx, got.Saturated, src.Saturated)
				}
				if got.Valid {
					if got.ReturnType != src.ReturnType {
						t.Errorf("point[%d] return type = %d, want %d", idx, got.ReturnType, src.ReturnType)
					}
					if !approx(got.ImageX, src.ImageX) || !approx(got.ImageZ, src.ImageZ) {
						t.Errorf("point[%d] image = (%v, %v), want (%v, %v)", idx, got.ImageX, got.ImageZ, src.ImageX, src.ImageZ)
					}
					if !approx(got.Distance, src.Distance) {
						t.Errorf("point[%d] distance = %v, want %v", idx, got.Distance, src.Distance)
					}
					if !approx(got.Intensity, src.Intensity) {
						t.Errorf("point[%d] intensity = %v, want %v", idx, got.Intensity, src.Intensity)
					}
				}
			}
		}
	}
}

func TestDecodeQuantization(t *testing.T) {
	// Values chosen to be exactly representable on the wire.
	data, err := EncodePoints(1, 0, 1, 1, 0, []Measurement{
		{Returns: []Return{{ImageX: 0.25, ImageZ: -0.5, Distance: 8.192, Intensity: 1.0}}},
	})
	if err != nil {
		t.Fatalf("EncodePoints: %v", err)
	}
	pkt, err := DecodePoints(data)
	if err != nil {
		t.Fatalf("DecodePoints: %v", err)
	}
	want := []ImagePoint{{
		ImageX:    0.25,
		ImageZ:    -0.5,
		Distance:  8.192,
		Intensity: 1.0,
		Valid:     true,
	}}
	if diff := cmp.Diff(want, pkt.Points, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	good, err := EncodePoints(7, 1000, 1, 1, 0, []Measurement{
		{Returns: []Return{{Distance: 4.0, Intensity: 0.5}}},
	})
	if err != nil {
		t.Fatalf("EncodePoints: %v", err)
	}

	corrupt := func(mutate func([]byte)) []byte {
		b := make([]byte, len(good))
		copy(b, good)
		mutate(b)
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", good[:HEADER_SIZE-1]},
		{"bad magic", corrupt(func(b []byte) { b[0] = 'X' })},
		{"bad version", corrupt(func(b []byte) { b[4] = 9 })},
		{"bad type", corrupt(func(b []byte) { b[5] = 0x7f })},
		{"zero segments", corrupt(func(b []byte) { b[6] = 0 })},
		{"excess segments", corrupt(func(b []byte) { b[6] = MAX_SEGMENTS + 1 })},
		{"excess returns", corrupt(func(b []byte) { b[7] = MAX_RETURNS + 1 })},
		{"length mismatch", corrupt(func(b []byte) { b[24] = 5 })},
		{"truncated payload", good[:len(good)-3]},
	}
	for _, tt := range tests {
		if _, err := DecodePoints(tt.data); err == nil {
			t.Errorf("%s: decode succeeded, want error", tt.name)
		}
	}

	// The unmutated packet still decodes.
	if _, err := DecodePoints(good); err != nil {
		t.Errorf("control packet failed to decode: %v", err)
	}
}

func TestTelemetryRoundTrip(t *testing.T) {
	in := TelemetryPacket{
		Header: Header{
			SerialNumber:    88001,
			TimestampMicros: 1700000000123456,
			SegmentCount:    2,
			ReturnCount:     1,
		},
		Model:             2,
		FirmwareMajor:     1,
		FirmwareMinor:     4,
		FirmwarePatch:     11,
		UptimeSeconds:     86400,
		TemperatureMilliC: -12500,
		MotorRPM:          1200,
		FaultBits:         0,
	}
	data, err := EncodeTelemetry(in)
	if err != nil {
		t.Fatalf("EncodeTelemetry: %v", err)
	}
	out, err := DecodeTelemetry(data)
	if err != nil {
		t.Fatalf("DecodeTelemetry: %v", err)
	}
	if out.SerialNumber != in.SerialNumber || out.Model != in.Model {
		t.Errorf("identity fields lost: %+v", out)
	}
	if out.TemperatureMilliC != -12500 {
		t.Errorf("temperature = %d, want -12500", out.TemperatureMilliC)
	}
	if out.Firmware() != "1.4.11" {
		t.Errorf("firmware = %q, want 1.4.11", out.Firmware())
	}
	if out.MotorRPM != 1200 {
		t.Errorf("motor rpm = %d, want 1200", out.MotorRPM)
	}
	if codes := out.FaultCodes(); codes != nil {
		t.Errorf("fault codes = %v, want none", codes)
	}

	if _, err := DecodeTelemetry(data[:len(data)-1]); err == nil {
		t.Error("truncated telemetry decoded, want error")
	}
	if _, err := DecodePoints(data); err == nil {
		t.Error("telemetry decoded as points, want error")
	}
}

func TestFaultCodes(t *testing.T) {
	tp := TelemetryPacket{FaultBits: 1<<0 | 1<<6 | 1<<8}
	want := []sensorerr.Code{
		sensorerr.FaultInternal,
		sensorerr.FaultMotorMalfunction,
		sensorerr.FaultDetectorMalfunction,
	}
	if diff := cmp.Diff(want, tp.FaultCodes()); diff != "" {
		t.Errorf("fault codes mismatch (-want +got):\n%s", diff)
	}

	// Unassigned high bits are ignored rather than misreported.
	tp = TelemetryPacket{FaultBits: 1 << 12}
	if codes := tp.FaultCodes(); codes != nil {
		t.Errorf("fault codes for unassigned bit = %v, want none", codes)
	}
}

func TestModelName(t *testing.T) {
	if got := ModelName(2); got != "Varia-64" {
		t.Errorf("ModelName(2) = %q", got)
	}
	if got := ModelName(999); got != "unknown(999)" {
		t.Errorf("ModelName(999) = %q", got)
	}
}
