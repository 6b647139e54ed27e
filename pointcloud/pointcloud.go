// Package pointcloud converts decoded image-space returns into
// Cartesian points and applies rigid sensor-mount transforms.
//
// Coordinates are right-handed with Y forward along the sensor
// boresight, X right, Z up, all in meters. Image coordinates are
// tangent-plane offsets at unit forward distance, so a return at
// (imageX, imageZ, distance) lies along the direction
// (imageX, 1, imageZ) at range distance.
package pointcloud

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/strix-photonics/strix-sdk-go/internal/packet"
)

// Point is one Cartesian return.
type Point struct {
	TimestampMicros int64
	X, Y, Z         float64
	Intensity       float64
	ReturnType      uint8
	Valid           bool
	Saturated       bool
}

// Range returns the distance from the sensor origin in meters.
func (p Point) Range() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// FromImage converts a single image-space return. Invalid returns keep
// their flags but map to the origin.
func FromImage(ip packet.ImagePoint) Point {
	pt := Point{
		TimestampMicros: ip.TimestampMicros,
		Intensity:       float64(ip.Intensity),
		ReturnType:      ip.ReturnType,
		Valid:           ip.Valid,
		Saturated:       ip.Saturated,
	}
	if !ip.Valid || ip.Distance <= 0 {
		return pt
	}
	x := float64(ip.ImageX)
	z := float64(ip.ImageZ)
	ratio := float64(ip.Distance) / math.Sqrt(1+x*x+z*z)
	pt.X = x * ratio
	pt.Y = ratio
	pt.Z = z * ratio
	return pt
}

// FromImageFrame converts a whole frame.
func FromImageFrame(frame []packet.ImagePoint) []Point {
	out := make([]Point, len(frame))
	for i, ip := range frame {
		out[i] = FromImage(ip)
	}
	return out
}

// Transform is a rigid rotation-then-translation. The zero value is
// not usable; build one with NewTransform or Identity.
type Transform struct {
	rot r3.Rotation
	off r3.Vec
}

// Identity returns the no-op transform.
func Identity() Transform {
	return Transform{rot: r3.NewRotation(0, r3.Vec{Z: 1})}
}

// NewTransform builds a transform rotating by angle radians about axis
// (right-hand rule), then translating by offset.
func NewTransform(angle float64, axis, offset r3.Vec) Transform {
	return Transform{rot: r3.NewRotation(angle, axis), off: offset}
}

// Apply maps a point through the transform, preserving attributes.
func (t Transform) Apply(p Point) Point {
	v := t.rot.Rotate(r3.Vec{X: p.X, Y: p.Y, Z: p.Z})
	p.X = v.X + t.off.X
	p.Y = v.Y + t.off.Y
	p.Z = v.Z + t.off.Z
	return p
}

// ApplyFrame maps every point in place.
func (t Transform) ApplyFrame(pts []Point) {
	for i := range pts {
		pts[i] = t.Apply(pts[i])
	}
}
