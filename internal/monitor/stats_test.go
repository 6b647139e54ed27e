package monitor

import (
	"sync"
	"testing"
	"time"
)

func TestNewPacketStats(t *testing.T) {
	stats := NewPacketStats()

	if stats == nil {
		t.Fatal("NewPacketStats returned nil")
	}

	uptime := stats.GetUptime()
	if uptime > 100*time.Millisecond {
		t.Errorf("Uptime too large for new stats: %v", uptime)
	}
}

func TestPacketStats_AddPacket(t *testing.T) {
	stats := NewPacketStats()

	stats.AddPacket(1262)

	packets, bytes, points, frames, dropped, duration := stats.GetAndReset()

	if packets != 1 {
		t.Errorf("Expected 1 packet, got %d", packets)
	}
	if bytes != 1262 {
		t.Errorf("Expected 1262 bytes, got %d", bytes)
	}
	if points != 0 || frames != 0 || dropped != 0 {
		t.Errorf("Expected zero points/frames/dropped, got (%d, %d, %d)", points, frames, dropped)
	}
	if duration <= 0 {
		t.Errorf("Expected positive duration, got %v", duration)
	}
}

func TestPacketStats_AddFrame(t *testing.T) {
	stats := NewPacketStats()

	stats.AddFrame(400)
	stats.AddFrame(100)

	_, _, points, frames, _, _ := stats.GetAndReset()

	if frames != 2 {
		t.Errorf("Expected 2 frames, got %d", frames)
	}
	if points != 500 {
		t.Errorf("Expected 500 points, got %d", points)
	}
}

func TestPacketStats_AddDropped(t *testing.T) {
	stats := NewPacketStats()

	stats.AddDropped(2)
	stats.AddDropped(1)

	packets, _, _, _, dropped, _ := stats.GetAndReset()

	if dropped != 3 {
		t.Errorf("Expected 3 dropped packets, got %d", dropped)
	}
	if packets != 0 {
		t.Errorf("Expected 0 packets, got %d", packets)
	}
}

func TestPacketStats_GetAndReset(t *testing.T) {
	stats := NewPacketStats()

	stats.AddPacket(1262)
	stats.AddFrame(400)
	stats.AddDropped(1)

	packets1, bytes1, points1, frames1, dropped1, duration1 := stats.GetAndReset()

	if packets1 != 1 || bytes1 != 1262 || points1 != 400 || frames1 != 1 || dropped1 != 1 {
		t.Errorf("First GetAndReset: expected (1, 1262, 400, 1, 1), got (%d, %d, %d, %d, %d)",
			packets1, bytes1, points1, frames1, dropped1)
	}
	if duration1 <= 0 {
		t.Errorf("Expected positive duration, got %v", duration1)
	}

	packets2, bytes2, points2, frames2, dropped2, duration2 := stats.GetAndReset()

	if packets2 != 0 || bytes2 != 0 || points2 != 0 || frames2 != 0 || dropped2 != 0 {
		t.Errorf("Second GetAndReset: expected all zeros, got (%d, %d, %d, %d, %d)",
			packets2, bytes2, points2, frames2, dropped2)
	}
	if duration2 <= 0 {
		t.Errorf("Expected positive duration even after reset, got %v", duration2)
	}
}

func TestPacketStats_LogStats(t *testing.T) {
	stats := NewPacketStats()

	// No traffic yet, so no snapshot is stored.
	stats.LogStats()
	if snapshot := stats.GetLatestSnapshot(); snapshot != nil {
		t.Error("Expected nil snapshot before any traffic")
	}

	stats.AddPacket(1262)
	stats.AddFrame(400)
	stats.LogStats()

	snapshot := stats.GetLatestSnapshot()
	if snapshot == nil {
		t.Fatal("Expected snapshot after LogStats, got nil")
	}
	if snapshot.PacketsPerSec <= 0 {
		t.Errorf("Expected positive packets per sec, got %f", snapshot.PacketsPerSec)
	}
	if snapshot.MBPerSec <= 0 {
		t.Errorf("Expected positive MB per sec, got %f", snapshot.MBPerSec)
	}
	if snapshot.PointsPerSec <= 0 {
		t.Errorf("Expected positive points per sec, got %f", snapshot.PointsPerSec)
	}
	if snapshot.FramesPerSec <= 0 {
		t.Errorf("Expected positive frames per sec, got %f", snapshot.FramesPerSec)
	}
}

func TestPacketStats_ThreadSafety(t *testing.T) {
	stats := NewPacketStats()

	var wg sync.WaitGroup
	numGoroutines := 50
	incrementsPerGoroutine := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < incrementsPerGoroutine; j++ {
				stats.AddPacket(100)
				stats.AddFrame(10)
				stats.AddDropped(1)

				_ = stats.GetUptime()
				_ = stats.GetLatestSnapshot()
			}
		}()
	}

	wg.Wait()

	packets, bytes, points, frames, dropped, _ := stats.GetAndReset()

	expected := int64(numGoroutines * incrementsPerGoroutine)
	if packets != expected {
		t.Errorf("Expected packets %d, got %d", expected, packets)
	}
	if bytes != expected*100 {
		t.Errorf("Expected bytes %d, got %d", expected*100, bytes)
	}
	if points != expected*10 {
		t.Errorf("Expected points %d, got %d", expected*10, points)
	}
	if frames != expected {
		t.Errorf("Expected frames %d, got %d", expected, frames)
	}
	if dropped != expected {
		t.Errorf("Expected dropped %d, got %d", expected, dropped)
	}
}

func TestFormatWithCommas(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{123, "123"},
		{1234, "1,234"},
		{12345, "12,345"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
	}

	for _, test := range tests {
		result := FormatWithCommas(test.input)
		if result != test.expected {
			t.Errorf("FormatWithCommas(%d): expected %s, got %s",
				test.input, test.expected, result)
		}
	}
}
