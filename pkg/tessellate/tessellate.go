// Package tessellate turns geometry shapes into triangle meshes. Primitive
// shapes are tessellated analytically; composite shapes are converted into
// kernel solids and meshed by the kernel.
package tessellate

import (
	"fmt"

	"github.com/chazu/geoview/pkg/geom"
	"github.com/chazu/geoview/pkg/kernel"
)

// Builder produces meshes for shapes. Kernel is required only for
// composite shapes.
type Builder struct {
	Kernel kernel.Kernel
}

// NewBuilder returns a Builder using k for composite shapes.
func NewBuilder(k kernel.Kernel) *Builder {
	return &Builder{Kernel: k}
}

// Build tessellates s with nseg segments for curved surfaces. A non-positive
// nseg selects geom.DefaultNSegments. The builder is read-only and never
// mutates the shape.
func (b *Builder) Build(s geom.Shape, nseg int) (*kernel.Mesh, error) {
	if nseg <= 0 {
		nseg = geom.DefaultNSegments
	}
	switch sh := s.(type) {
	case *geom.BoxShape:
		return boxMesh(sh), nil

	case *geom.TubeShape:
		return tubeMesh(sh, nseg), nil

	case *geom.CompositeShape:
		if b.Kernel == nil {
			return nil, fmt.Errorf("tessellate: composite %q needs a kernel", sh.Name)
		}
		solid, err := b.solid(sh, nseg)
		if err != nil {
			return nil, err
		}
		mesh, err := b.Kernel.ToMesh(solid, CompositeCells(nseg))
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for composite %q: %w", sh.Name, err)
		}
		return mesh, nil

	case nil:
		return nil, fmt.Errorf("tessellate: nil shape")

	default:
		return nil, fmt.Errorf("tessellate: unsupported shape type %T", s)
	}
}

// CompositeCells returns the marching cubes resolution used for composites.
func CompositeCells(nseg int) int {
	return max(16, min(2*nseg, 200))
}

// EstimateFaces returns the number of triangles Build will produce for a
// primitive, and a rough estimate for composites.
func EstimateFaces(s geom.Shape, nseg int) int {
	if nseg <= 0 {
		nseg = geom.DefaultNSegments
	}
	switch sh := s.(type) {
	case *geom.BoxShape:
		return 12
	case *geom.TubeShape:
		if sh.RMin > 0 {
			return 8 * nseg
		}
		return 4 * nseg
	case *geom.CompositeShape:
		n := 0
		if sh.Left.Shape != nil {
			n += EstimateFaces(sh.Left.Shape, nseg)
		}
		if sh.Right.Shape != nil {
			n += EstimateFaces(sh.Right.Shape, nseg)
		}
		return n
	default:
		return 0
	}
}

// solid converts a shape into a kernel solid.
func (b *Builder) solid(s geom.Shape, nseg int) (kernel.Solid, error) {
	k := b.Kernel
	switch sh := s.(type) {
	case *geom.BoxShape:
		return k.Box(2*sh.DX, 2*sh.DY, 2*sh.DZ), nil

	case *geom.TubeShape:
		outer := k.Cylinder(2*sh.DZ, sh.RMax, nseg)
		if sh.RMin <= 0 {
			return outer, nil
		}
		// The bore is longer than the tube so no skin is left on the caps.
		inner := k.Cylinder(2*sh.DZ*1.1, sh.RMin, nseg)
		return k.Difference(outer, inner), nil

	case *geom.CompositeShape:
		if sh.Left.Shape == nil || sh.Right.Shape == nil {
			return nil, fmt.Errorf("tessellate: composite %q is missing an operand", sh.Name)
		}
		left, err := b.operand(sh.Left, nseg)
		if err != nil {
			return nil, err
		}
		right, err := b.operand(sh.Right, nseg)
		if err != nil {
			return nil, err
		}
		switch sh.Op {
		case geom.OpUnion:
			return k.Union(left, right), nil
		case geom.OpSubtraction:
			return k.Difference(left, right), nil
		case geom.OpIntersection:
			return k.Intersection(left, right), nil
		default:
			return nil, fmt.Errorf("tessellate: composite %q has unknown operation %v", sh.Name, sh.Op)
		}

	default:
		return nil, fmt.Errorf("tessellate: unsupported operand type %T", s)
	}
}

// operand places an operand solid: rotation first, then translation.
func (b *Builder) operand(o geom.Operand, nseg int) (kernel.Solid, error) {
	s, err := b.solid(o.Shape, nseg)
	if err != nil {
		return nil, err
	}
	if !o.Rotate.IsZero() {
		s = b.Kernel.Rotate(s, o.Rotate.X, o.Rotate.Y, o.Rotate.Z)
	}
	if !o.At.IsZero() {
		s = b.Kernel.Translate(s, o.At.X, o.At.Y, o.At.Z)
	}
	return s, nil
}
