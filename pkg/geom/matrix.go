package geom

import "math"

// MatrixKind records how a placement matrix was constructed.
type MatrixKind int

const (
	MatrixIdentity MatrixKind = iota
	MatrixTranslation
	MatrixScale
	MatrixRotation
	MatrixGeneral // rotation, translation and scale combined
)

func (k MatrixKind) String() string {
	switch k {
	case MatrixIdentity:
		return "identity"
	case MatrixTranslation:
		return "translation"
	case MatrixScale:
		return "scale"
	case MatrixRotation:
		return "rotation"
	case MatrixGeneral:
		return "general"
	default:
		return "unknown"
	}
}

// identityRotation is the row-major 3x3 identity.
var identityRotation = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Matrix is a node placement: rotation (row-major 3x3), translation and
// per-axis scale. The Kind is informational; a General matrix may still be
// numerically trivial.
type Matrix struct {
	Kind        MatrixKind
	Rotation    [9]float64
	Translation [3]float64
	Scale       [3]float64
}

// Identity returns the identity placement.
func Identity() *Matrix {
	return &Matrix{Kind: MatrixIdentity, Rotation: identityRotation, Scale: [3]float64{1, 1, 1}}
}

// Translation returns a pure translation.
func Translation(x, y, z float64) *Matrix {
	m := Identity()
	m.Kind = MatrixTranslation
	m.Translation = [3]float64{x, y, z}
	return m
}

// Scaling returns a pure scale.
func Scaling(sx, sy, sz float64) *Matrix {
	m := Identity()
	m.Kind = MatrixScale
	m.Scale = [3]float64{sx, sy, sz}
	return m
}

// Rotation returns a pure rotation from a row-major 3x3 matrix.
func Rotation(r [9]float64) *Matrix {
	m := Identity()
	m.Kind = MatrixRotation
	m.Rotation = r
	return m
}

// RotationEuler returns a pure rotation built from Euler angles in degrees,
// applied around X, then Y, then Z.
func RotationEuler(x, y, z float64) *Matrix {
	return Rotation(EulerToRotation(x, y, z))
}

// General returns a combined placement.
func General(rot [9]float64, trans [3]float64, scale [3]float64) *Matrix {
	return &Matrix{Kind: MatrixGeneral, Rotation: rot, Translation: trans, Scale: scale}
}

// IsIdentity reports whether the matrix was constructed as an identity.
func (m *Matrix) IsIdentity() bool {
	return m == nil || m.Kind == MatrixIdentity
}

// EulerToRotation returns the row-major matrix Rz*Ry*Rx for angles in degrees.
func EulerToRotation(x, y, z float64) [9]float64 {
	sx, cx := math.Sincos(x * math.Pi / 180)
	sy, cy := math.Sincos(y * math.Pi / 180)
	sz, cz := math.Sincos(z * math.Pi / 180)
	return [9]float64{
		cz * cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx,
		sz * cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx,
		-sy, cy * sx, cy * cx,
	}
}

// Apply transforms a point by rotation and scale, then translation.
func (m *Matrix) Apply(p Vec3) Vec3 {
	if m == nil {
		return p
	}
	x, y, z := p.X*m.Scale[0], p.Y*m.Scale[1], p.Z*m.Scale[2]
	r := m.Rotation
	return Vec3{
		X: r[0]*x + r[1]*y + r[2]*z + m.Translation[0],
		Y: r[3]*x + r[4]*y + r[5]*z + m.Translation[1],
		Z: r[6]*x + r[7]*y + r[8]*z + m.Translation[2],
	}
}
