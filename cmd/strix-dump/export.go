package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"image/color"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/strix-photonics/strix-sdk-go/pointcloud"
	"github.com/strix-photonics/strix-sdk-go/strixsdk"
)

// pointCollector gathers converted points per sensor. The replay is
// drained on the caller's goroutine here, so callbacks never overlap
// and no lock is needed.
type pointCollector struct {
	points map[strixsdk.Handle][]pointcloud.Point
	frames map[strixsdk.Handle]int
}

func newPointCollector() *pointCollector {
	return &pointCollector{
		points: make(map[strixsdk.Handle][]pointcloud.Point),
		frames: make(map[strixsdk.Handle]int),
	}
}

// collect keeps the valid returns of one frame.
func (c *pointCollector) collect(h strixsdk.Handle, pts []strixsdk.ImagePoint) {
	for _, p := range pointcloud.FromImageFrame(pts) {
		if p.Valid {
			c.points[h] = append(c.points[h], p)
		}
	}
	c.frames[h]++
}

func (c *pointCollector) handles() []strixsdk.Handle {
	hs := make([]strixsdk.Handle, 0, len(c.points))
	for h := range c.points {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

func (c *pointCollector) totalPoints() int {
	n := 0
	for _, pts := range c.points {
		n += len(pts)
	}
	return n
}

// merged returns all points from all sensors in handle order.
func (c *pointCollector) merged() []pointcloud.Point {
	out := make([]pointcloud.Point, 0, c.totalPoints())
	for _, h := range c.handles() {
		out = append(out, c.points[h]...)
	}
	return out
}

// parseOffset parses an "x,y,z" translation in meters. An empty string
// means no translation.
func parseOffset(s string) (r3.Vec, error) {
	if s == "" {
		return r3.Vec{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("offset %q: want x,y,z", s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("offset %q: %v", s, err)
		}
		vals[i] = v
	}
	return r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// writeCSV writes one row per point with full attributes.
func writeCSV(path string, pts []pointcloud.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp_micros", "x", "y", "z", "intensity", "return_type", "saturated"}); err != nil {
		f.Close()
		return err
	}
	row := make([]string, 7)
	for _, p := range pts {
		row[0] = strconv.FormatInt(p.TimestampMicros, 10)
		row[1] = strconv.FormatFloat(p.X, 'f', 4, 64)
		row[2] = strconv.FormatFloat(p.Y, 'f', 4, 64)
		row[3] = strconv.FormatFloat(p.Z, 'f', 4, 64)
		row[4] = strconv.FormatFloat(p.Intensity, 'f', 4, 64)
		row[5] = strconv.Itoa(int(p.ReturnType))
		row[6] = strconv.FormatBool(p.Saturated)
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeASC writes the whitespace "x y z intensity" form read by most
// point cloud viewers.
func writeASC(path string, pts []pointcloud.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, p := range pts {
		if _, err := fmt.Fprintf(w, "%.4f %.4f %.4f %.4f\n", p.X, p.Y, p.Z, p.Intensity); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// maxPlotPoints caps the scatter size; larger clouds are strided down.
const maxPlotPoints = 200000

// writePNG renders a top-down (X right, Y forward) scatter of the
// cloud.
func writePNG(path string, pts []pointcloud.Point) error {
	p := plot.New()
	p.Title.Text = "Strix point cloud (top-down)"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	stride := 1
	if len(pts) > maxPlotPoints {
		stride = len(pts)/maxPlotPoints + 1
	}
	xys := make(plotter.XYs, 0, len(pts)/stride+1)
	for i := 0; i < len(pts); i += stride {
		xys = append(xys, plotter.XY{X: pts[i].X, Y: pts[i].Y})
	}

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Radius = vg.Points(1)
	sc.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(sc)

	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}
