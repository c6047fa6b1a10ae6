package tessellate

import (
	"github.com/chewxy/math32"

	"github.com/chazu/geoview/pkg/geom"
	"github.com/chazu/geoview/pkg/kernel"
)

// meshBuilder accumulates vertices with per-vertex normals and triangles.
type meshBuilder struct {
	mesh kernel.Mesh
}

// vertex appends a vertex and returns its index.
func (mb *meshBuilder) vertex(x, y, z, nx, ny, nz float32) uint32 {
	idx := uint32(len(mb.mesh.Vertices) / 3)
	mb.mesh.Vertices = append(mb.mesh.Vertices, x, y, z)
	mb.mesh.Normals = append(mb.mesh.Normals, nx, ny, nz)
	return idx
}

func (mb *meshBuilder) triangle(a, b, c uint32) {
	mb.mesh.Indices = append(mb.mesh.Indices, a, b, c)
}

// quad adds two triangles a-b-c and a-c-d, counter-clockwise seen from
// outside.
func (mb *meshBuilder) quad(a, b, c, d uint32) {
	mb.triangle(a, b, c)
	mb.triangle(a, c, d)
}

func (mb *meshBuilder) result() *kernel.Mesh {
	m := mb.mesh
	return &m
}

// boxMesh builds 12 triangles, with four vertices per face so every face
// gets a flat normal.
func boxMesh(b *geom.BoxShape) *kernel.Mesh {
	dx, dy, dz := float32(b.DX), float32(b.DY), float32(b.DZ)
	var mb meshBuilder

	// Each face: normal, then corners counter-clockwise seen from outside.
	faces := []struct {
		n       [3]float32
		corners [4][3]float32
	}{
		{[3]float32{1, 0, 0}, [4][3]float32{{dx, -dy, -dz}, {dx, dy, -dz}, {dx, dy, dz}, {dx, -dy, dz}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-dx, dy, -dz}, {-dx, -dy, -dz}, {-dx, -dy, dz}, {-dx, dy, dz}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{dx, dy, -dz}, {-dx, dy, -dz}, {-dx, dy, dz}, {dx, dy, dz}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-dx, -dy, -dz}, {dx, -dy, -dz}, {dx, -dy, dz}, {-dx, -dy, dz}}},
		{[3]float32{0, 0, 1}, [4][3]float32{{-dx, -dy, dz}, {dx, -dy, dz}, {dx, dy, dz}, {-dx, dy, dz}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{-dx, dy, -dz}, {dx, dy, -dz}, {dx, -dy, -dz}, {-dx, -dy, -dz}}},
	}
	for _, f := range faces {
		var idx [4]uint32
		for i, c := range f.corners {
			idx[i] = mb.vertex(c[0], c[1], c[2], f.n[0], f.n[1], f.n[2])
		}
		mb.quad(idx[0], idx[1], idx[2], idx[3])
	}
	return mb.result()
}

// tubeMesh builds the side walls and caps of a tube. A solid cylinder has
// 4*nseg triangles, a hollow tube 8*nseg.
func tubeMesh(t *geom.TubeShape, nseg int) *kernel.Mesh {
	rmin, rmax, dz := float32(t.RMin), float32(t.RMax), float32(t.DZ)
	sin := make([]float32, nseg)
	cos := make([]float32, nseg)
	for i := 0; i < nseg; i++ {
		phi := 2 * math32.Pi * float32(i) / float32(nseg)
		sin[i], cos[i] = math32.Sin(phi), math32.Cos(phi)
	}
	next := func(i int) int { return (i + 1) % nseg }

	var mb meshBuilder

	// wall adds a ring of quads at radius r; outward normals when sign > 0.
	wall := func(r, sign float32) {
		bottom := make([]uint32, nseg)
		top := make([]uint32, nseg)
		for i := 0; i < nseg; i++ {
			x, y := r*cos[i], r*sin[i]
			bottom[i] = mb.vertex(x, y, -dz, sign*cos[i], sign*sin[i], 0)
			top[i] = mb.vertex(x, y, dz, sign*cos[i], sign*sin[i], 0)
		}
		for i := 0; i < nseg; i++ {
			j := next(i)
			if sign > 0 {
				mb.quad(bottom[i], bottom[j], top[j], top[i])
			} else {
				mb.quad(bottom[j], bottom[i], top[i], top[j])
			}
		}
	}

	// endCap adds the flat end at height z, facing nz.
	endCap := func(z, nz float32) {
		outer := make([]uint32, nseg)
		for i := 0; i < nseg; i++ {
			outer[i] = mb.vertex(rmax*cos[i], rmax*sin[i], z, 0, 0, nz)
		}
		if rmin <= 0 {
			// Fan around the centre.
			centre := mb.vertex(0, 0, z, 0, 0, nz)
			for i := 0; i < nseg; i++ {
				j := next(i)
				if nz > 0 {
					mb.triangle(centre, outer[i], outer[j])
				} else {
					mb.triangle(centre, outer[j], outer[i])
				}
			}
			return
		}
		inner := make([]uint32, nseg)
		for i := 0; i < nseg; i++ {
			inner[i] = mb.vertex(rmin*cos[i], rmin*sin[i], z, 0, 0, nz)
		}
		for i := 0; i < nseg; i++ {
			j := next(i)
			if nz > 0 {
				mb.quad(inner[i], outer[i], outer[j], inner[j])
			} else {
				mb.quad(inner[j], outer[j], outer[i], inner[i])
			}
		}
	}

	wall(rmax, 1)
	if rmin > 0 {
		wall(rmin, -1)
	}
	endCap(dz, 1)
	endCap(-dz, -1)
	return mb.result()
}
