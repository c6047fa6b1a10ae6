package geom

import "fmt"

// Vec3 represents a 3D vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns the component-wise sum of two vectors.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Color is an RGB color with alpha in [0,1].
type Color struct {
	R, G, B uint8
	A       float64
}

// RGB returns an opaque color.
func RGB(r, g, b uint8) *Color {
	return &Color{R: r, G: g, B: b, A: 1}
}

// String returns the "r,g,b" form sent to the client.
func (c Color) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// Material describes the medium a volume is made of. Only the visual
// attributes matter to the viewer.
type Material struct {
	Name         string `json:"name"`
	Color        *Color `json:"color,omitempty"`
	Transparency int    `json:"transparency,omitempty"` // percent, 0 = opaque
}

// Opacity returns the material opacity derived from its transparency.
func (m *Material) Opacity() float64 {
	if m == nil || m.Transparency <= 0 {
		return 1
	}
	if m.Transparency >= 100 {
		return 0
	}
	return float64(100-m.Transparency) / 100
}
