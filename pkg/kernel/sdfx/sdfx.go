// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

const (
	// MinMeshCells and MaxMeshCells bound the marching cubes resolution.
	MinMeshCells = 8
	MaxMeshCells = 400
)

// errEmptySolid is reported when meshing produced no triangles.
var errEmptySolid = errors.New("sdfx: solid produced no triangles")

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. Construction
// errors are carried along and reported by ToMesh, so that a bad operand
// of a boolean tree fails the whole mesh instead of panicking.
type sdfxSolid struct {
	s   sdf.SDF3
	err error
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	if s.err != nil {
		return min, max
	}
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying solid, or the first error in its history.
func unwrap(s kernel.Solid) (sdf.SDF3, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok || ss == nil {
		return nil, fmt.Errorf("sdfx: foreign solid %T", s)
	}
	return ss.s, ss.err
}

func wrap(s sdf.SDF3, err error) kernel.Solid {
	return &sdfxSolid{s: s, err: err}
}

// Box creates a box with full edge lengths x, y, z centred on the origin.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return wrap(nil, fmt.Errorf("sdfx: box %gx%gx%g: %w", x, y, z, err))
	}
	return wrap(s, nil)
}

// Cylinder creates a cylinder along Z centred on the origin.
// The segments parameter is ignored since SDF represents smooth surfaces;
// faceting is controlled by the ToMesh resolution.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return wrap(nil, fmt.Errorf("sdfx: cylinder h=%g r=%g: %w", height, radius, err))
	}
	return wrap(s, nil)
}

// combine applies op to two solids, propagating construction errors.
func combine(a, b kernel.Solid, op func(a, b sdf.SDF3) sdf.SDF3) kernel.Solid {
	sa, err := unwrap(a)
	if err != nil {
		return wrap(nil, err)
	}
	sb, err := unwrap(b)
	if err != nil {
		return wrap(nil, err)
	}
	return wrap(op(sa, sb), nil)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return combine(a, b, func(a, b sdf.SDF3) sdf.SDF3 { return sdf.Union3D(a, b) })
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return combine(a, b, func(a, b sdf.SDF3) sdf.SDF3 { return sdf.Difference3D(a, b) })
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return combine(a, b, func(a, b sdf.SDF3) sdf.SDF3 { return sdf.Intersect3D(a, b) })
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ss, err := unwrap(s)
	if err != nil {
		return wrap(nil, err)
	}
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(ss, m), nil)
}

// Rotate rotates a solid by Euler angles (degrees) around X, then Y, then Z.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ss, err := unwrap(s)
	if err != nil {
		return wrap(nil, err)
	}
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(ss, m), nil)
}

// ToMesh converts a solid to a triangle mesh using uniform marching cubes
// with the given number of cells along the longest axis.
func (k *SdfxKernel) ToMesh(s kernel.Solid, cells int) (*kernel.Mesh, error) {
	sdf3, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	cells = max(MinMeshCells, min(cells, MaxMeshCells))

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)

	vertices := make([]float32, 0, len(triangles)*9)
	normals := make([]float32, 0, len(triangles)*9)
	indices := make([]uint32, 0, len(triangles)*3)

	for _, tri := range triangles {
		n := tri.Normal()
		if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsNaN(n.Z) {
			continue // degenerate
		}
		base := uint32(len(vertices) / 3)
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, float32(n.X), float32(n.Y), float32(n.Z))
			indices = append(indices, base+uint32(j))
		}
	}

	mesh := &kernel.Mesh{Vertices: vertices, Normals: normals, Indices: indices}
	if mesh.IsEmpty() {
		return nil, errEmptySolid
	}
	return mesh, nil
}
