package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strix.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpenAppliesMigrations(t *testing.T) {
	s, _ := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)
}

func TestReopenIsIdempotent(t *testing.T) {
	s, path := openTestStore(t)

	id, err := s.CreateSession(8808, "", "first run", 1000)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	events, err := s2.RecentEvents(id, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	id, err := s.CreateSession(8808, "/tmp/run.pcap", "", 1000)
	require.NoError(t, err)

	require.NoError(t, s.RecordEvent(id, "c0a85f3c", -8, "STRIX_ERROR_COMMUNICATION", "decode packet", 2000))
	require.NoError(t, s.RecordEvent(id, "c0a85f3c", -1006, "STRIX_FAULT_MOTOR_MALFUNCTION", "sensor fault", 3000))
	require.NoError(t, s.RecordEvent(id, "c0a85f3d", -13, "STRIX_ERROR_EOF", "end of capture", 4000))

	events, err := s.RecentEvents(id, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(4000), events[0].AtMicros)
	assert.Equal(t, "STRIX_ERROR_EOF", events[0].Name)
	assert.Equal(t, int64(3000), events[1].AtMicros)
	assert.Equal(t, int32(-1006), events[1].Code)

	all, err := s.RecentEvents("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	other, err := s.RecentEvents("absent-session", 10)
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.EndSession(id, 5000))
}

func TestRateSeriesAscending(t *testing.T) {
	s, _ := openTestStore(t)
	id, err := s.CreateSession(8808, "", "", 1000)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.RecordTelemetry(TelemetrySample{
			SessionID:         id,
			Handle:            "c0a85f3c",
			Packets:           uint64(100 * (i + 1)),
			Points:            uint64(800 * (i + 1)),
			Frames:            uint64(10 * (i + 1)),
			PacketRate:        float64(100 + i),
			PointRate:         float64(800 + i),
			FrameRate:         10,
			TemperatureMilliC: 41000,
			MotorRPM:          1200,
			AtMicros:          int64(1000 * (i + 1)),
		}))
	}

	series, err := s.RateSeries(id, 3)
	require.NoError(t, err)
	require.Len(t, series, 3)
	// Newest three, oldest first.
	assert.Equal(t, int64(2000), series[0].AtMicros)
	assert.Equal(t, int64(4000), series[2].AtMicros)
	assert.Equal(t, float64(103), series[2].PacketRate)
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing-dir", "x.db"))
	require.Error(t, err)
}
