package monitor

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// StatsSnapshot represents one logging interval's traffic rates. A
// snapshot is stored on every LogStats call that saw traffic, so the
// web interface can show the latest rates between intervals.
type StatsSnapshot struct {
	PacketsPerSec  float64   `json:"packets_per_sec"`
	MBPerSec       float64   `json:"mb_per_sec"`
	PointsPerSec   float64   `json:"points_per_sec"`
	FramesPerSec   float64   `json:"frames_per_sec"`
	ForwardDropped int64     `json:"forward_dropped"`
	Timestamp      time.Time `json:"timestamp"`
}

// PacketStats tracks traffic counters with thread-safe operations.
// Packets and bytes are fed from the raw packet callback; points and
// frames from the image frame callback.
type PacketStats struct {
	mu             sync.Mutex
	packetCount    int64
	byteCount      int64
	pointCount     int64
	frameCount     int64
	droppedCount   int64
	lastReset      time.Time
	startTime      time.Time
	latestSnapshot *StatsSnapshot
}

// NewPacketStats creates a new PacketStats instance
func NewPacketStats() *PacketStats {
	now := time.Now()
	return &PacketStats{
		lastReset: now,
		startTime: now,
	}
}

// AddPacket increments packet count and byte count
func (ps *PacketStats) AddPacket(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.packetCount++
	ps.byteCount += int64(bytes)
}

// AddFrame increments the frame count and adds the frame's delivered
// point count
func (ps *PacketStats) AddFrame(points int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.frameCount++
	ps.pointCount += int64(points)
}

// AddDropped adds n packets dropped on the forwarding path
func (ps *PacketStats) AddDropped(n int64) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.droppedCount += n
}

// GetAndReset returns current stats and resets counters
func (ps *PacketStats) GetAndReset() (packets, bytes, points, frames, dropped int64, duration time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	duration = now.Sub(ps.lastReset)
	packets = ps.packetCount
	bytes = ps.byteCount
	points = ps.pointCount
	frames = ps.frameCount
	dropped = ps.droppedCount

	ps.packetCount = 0
	ps.byteCount = 0
	ps.pointCount = 0
	ps.frameCount = 0
	ps.droppedCount = 0
	ps.lastReset = now

	return
}

// LogStats logs formatted statistics and stores a snapshot for the web
// interface. Intervals with no traffic are skipped.
func (ps *PacketStats) LogStats() {
	packets, bytes, points, frames, dropped, duration := ps.GetAndReset()
	if packets == 0 && frames == 0 && dropped == 0 {
		return
	}

	packetsPerSec := float64(packets) / duration.Seconds()
	mbPerSec := float64(bytes) / duration.Seconds() / (1024 * 1024)
	pointsPerSec := float64(points) / duration.Seconds()
	framesPerSec := float64(frames) / duration.Seconds()

	ps.mu.Lock()
	ps.latestSnapshot = &StatsSnapshot{
		PacketsPerSec:  packetsPerSec,
		MBPerSec:       mbPerSec,
		PointsPerSec:   pointsPerSec,
		FramesPerSec:   framesPerSec,
		ForwardDropped: dropped,
		Timestamp:      time.Now(),
	}
	ps.mu.Unlock()

	logMsg := fmt.Sprintf("Strix stats (/sec): %.2f MB, %.1f packets", mbPerSec, packetsPerSec)
	if frames > 0 {
		logMsg += fmt.Sprintf(", %s points, %.1f frames",
			FormatWithCommas(int64(pointsPerSec)), framesPerSec)
	}
	if dropped > 0 {
		logMsg += fmt.Sprintf(", %d dropped on forward", dropped)
	}
	log.Print(logMsg)
}

// GetUptime returns the time since the stats were created
func (ps *PacketStats) GetUptime() time.Duration {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return time.Since(ps.startTime)
}

// GetLatestSnapshot returns the most recent stats snapshot for the web
// interface, or nil before the first interval with traffic
func (ps *PacketStats) GetLatestSnapshot() *StatsSnapshot {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.latestSnapshot == nil {
		return nil
	}
	snapshot := *ps.latestSnapshot
	return &snapshot
}

// FormatWithCommas formats a number with thousands separators
func FormatWithCommas(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}
