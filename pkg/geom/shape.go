package geom

import "math"

// Shape is the closed set of solid shapes a volume can carry. Identity
// matters: two distinct shape values with equal parameters are different
// shapes for caching purposes, so shapes are always handled as pointers.
type Shape interface {
	shape() // marker method restricting implementations to this package

	// ShapeName returns the user-assigned name, possibly empty.
	ShapeName() string

	// TypeName returns the shape class name, e.g. "Box".
	TypeName() string

	// HalfExtents returns the half lengths of an origin-centred box that
	// encloses the shape.
	HalfExtents() Vec3
}

// BoxShape is an axis-aligned box given by half lengths.
type BoxShape struct {
	Name       string
	DX, DY, DZ float64
}

func (*BoxShape) shape() {}

func (b *BoxShape) ShapeName() string { return b.Name }
func (b *BoxShape) TypeName() string  { return "Box" }
func (b *BoxShape) HalfExtents() Vec3 { return Vec3{X: b.DX, Y: b.DY, Z: b.DZ} }

// TubeShape is a cylindrical tube along Z. RMin == 0 gives a solid cylinder.
type TubeShape struct {
	Name       string
	RMin, RMax float64
	DZ         float64 // half length
}

func (*TubeShape) shape() {}

func (t *TubeShape) ShapeName() string { return t.Name }
func (t *TubeShape) TypeName() string  { return "Tube" }
func (t *TubeShape) HalfExtents() Vec3 { return Vec3{X: t.RMax, Y: t.RMax, Z: t.DZ} }

// BoolOp is the boolean operation of a composite shape.
type BoolOp int

const (
	OpUnion BoolOp = iota
	OpSubtraction
	OpIntersection
)

func (op BoolOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpSubtraction:
		return "subtraction"
	case OpIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// Operand is one side of a composite shape, placed relative to the
// composite's own frame. Rotate holds Euler angles in degrees.
type Operand struct {
	Shape  Shape
	At     Vec3
	Rotate Vec3
}

// Matrix returns the operand placement as a matrix.
func (o Operand) Matrix() *Matrix {
	rot := EulerToRotation(o.Rotate.X, o.Rotate.Y, o.Rotate.Z)
	return General(rot, [3]float64{o.At.X, o.At.Y, o.At.Z}, [3]float64{1, 1, 1})
}

// CompositeShape combines two shapes with a boolean operation.
type CompositeShape struct {
	Name        string
	Op          BoolOp
	Left, Right Operand
}

func (*CompositeShape) shape() {}

func (c *CompositeShape) ShapeName() string { return c.Name }
func (c *CompositeShape) TypeName() string  { return "Composite" }

// HalfExtents returns a conservative bound. Subtraction and intersection
// are bounded by the left operand; union by both.
func (c *CompositeShape) HalfExtents() Vec3 {
	if c.Left.Shape == nil {
		return Vec3{}
	}
	ext := operandExtents(c.Left)
	if c.Op == OpUnion && c.Right.Shape != nil {
		r := operandExtents(c.Right)
		ext = Vec3{X: math.Max(ext.X, r.X), Y: math.Max(ext.Y, r.Y), Z: math.Max(ext.Z, r.Z)}
	}
	return ext
}

// operandExtents transforms the eight corners of the operand's bounding box
// and returns the largest absolute coordinate per axis.
func operandExtents(o Operand) Vec3 {
	h := o.Shape.HalfExtents()
	m := o.Matrix()
	var ext Vec3
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				p := m.Apply(Vec3{X: sx * h.X, Y: sy * h.Y, Z: sz * h.Z})
				ext.X = math.Max(ext.X, math.Abs(p.X))
				ext.Y = math.Max(ext.Y, math.Abs(p.Y))
				ext.Z = math.Max(ext.Z, math.Abs(p.Z))
			}
		}
	}
	return ext
}

// BoundingVolume returns the product of the half extents, the size measure
// used to order nodes. It is zero for a nil shape.
func BoundingVolume(s Shape) float64 {
	if s == nil {
		return 0
	}
	h := s.HalfExtents()
	return h.X * h.Y * h.Z
}
