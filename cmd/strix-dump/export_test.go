package main

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/strix-photonics/strix-sdk-go/pointcloud"
	"github.com/strix-photonics/strix-sdk-go/strixsdk"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    r3.Vec
		wantErr bool
	}{
		{"empty", "", r3.Vec{}, false},
		{"integers", "1,2,3", r3.Vec{X: 1, Y: 2, Z: 3}, false},
		{"spaced floats", " 1.5 , -2 , 0.25 ", r3.Vec{X: 1.5, Y: -2, Z: 0.25}, false},
		{"too few", "1,2", r3.Vec{}, true},
		{"too many", "1,2,3,4", r3.Vec{}, true},
		{"not numbers", "a,b,c", r3.Vec{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOffset(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseOffset(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOffset(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseOffset(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPointCollector(t *testing.T) {
	col := newPointCollector()

	frame := []strixsdk.ImagePoint{
		{TimestampMicros: 1, Distance: 10, Intensity: 0.5, Valid: true},
		{TimestampMicros: 2, Valid: false},
		{TimestampMicros: 3, ImageX: 0.1, Distance: 20, Intensity: 0.8, Valid: true},
	}
	col.collect(7, frame)
	col.collect(7, frame[:1])
	col.collect(3, frame)

	if got := len(col.points[7]); got != 3 {
		t.Errorf("sensor 7 kept %d points, want 3 (invalid slots dropped)", got)
	}
	if col.frames[7] != 2 {
		t.Errorf("sensor 7 frames = %d, want 2", col.frames[7])
	}
	if got := col.totalPoints(); got != 5 {
		t.Errorf("totalPoints = %d, want 5", got)
	}

	hs := col.handles()
	if len(hs) != 2 || hs[0] != 3 || hs[1] != 7 {
		t.Errorf("handles = %v, want [3 7]", hs)
	}

	merged := col.merged()
	if len(merged) != 5 {
		t.Fatalf("merged %d points, want 5", len(merged))
	}
	// Sensor 3 comes first in handle order.
	if merged[0].TimestampMicros != 1 || merged[2].TimestampMicros != 3 {
		t.Errorf("merged order wrong: %+v", merged[:3])
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloud.csv")
	pts := []pointcloud.Point{
		{TimestampMicros: 100, X: 1.5, Y: 10, Z: -0.25, Intensity: 0.5, ReturnType: 1, Valid: true},
		{TimestampMicros: 200, X: -2, Y: 20, Z: 0.5, Intensity: 0.75, ReturnType: 2, Valid: true, Saturated: true},
	}

	if err := writeCSV(path, pts); err != nil {
		t.Fatalf("writeCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "timestamp_micros" || rows[0][6] != "saturated" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "100" || rows[1][1] != "1.5000" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][6] != "true" {
		t.Errorf("row 2 saturated = %q, want true", rows[2][6])
	}
}

func TestWriteASC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloud.asc")
	pts := []pointcloud.Point{
		{X: 1, Y: 2, Z: 3, Intensity: 0.5, Valid: true},
		{X: -1.25, Y: 0, Z: 0.125, Intensity: 1, Valid: true},
	}

	if err := writeASC(path, pts); err != nil {
		t.Fatalf("writeASC: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != "1.0000 2.0000 3.0000 0.5000" {
		t.Errorf("line 1 = %q", lines[0])
	}
	if fields := strings.Fields(lines[1]); len(fields) != 4 {
		t.Errorf("line 2 has %d fields, want 4", len(fields))
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloud.png")
	pts := make([]pointcloud.Point, 0, 100)
	for i := 0; i < 100; i++ {
		angle := float64(i) / 100 * 2 * math.Pi
		pts = append(pts, pointcloud.Point{
			X:     10 * math.Cos(angle),
			Y:     10 * math.Sin(angle),
			Valid: true,
		})
	}

	if err := writePNG(path, pts); err != nil {
		t.Fatalf("writePNG: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("PNG file is empty")
	}
}
