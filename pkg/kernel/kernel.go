// Package kernel defines the abstract solid kernel used to tessellate
// composite shapes. Implementations provide primitives, boolean operations
// and meshing behind this interface so the backend can be swapped without
// touching the tessellator.
package kernel

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract solid kernel interface.
type Kernel interface {
	// Primitives, centred on the origin.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh meshes the solid; cells controls the sampling resolution
	// along the longest bounding box axis.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
