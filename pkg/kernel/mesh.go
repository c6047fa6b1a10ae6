package kernel

import (
	"encoding/binary"
	"fmt"
	"math"
)

// RnrFuncGeoShape names the client-side function that builds a mesh from a
// packed shape payload.
const RnrFuncGeoShape = "makeEveGeoShape"

// Mesh is an indexed triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0 || len(m.Indices) == 0
}

// RnrFunc returns the render function tag of the packed payload.
func (m *Mesh) RnrFunc() string {
	return RnrFuncGeoShape
}

// BinarySize returns the number of bytes WriteBinary produces.
func (m *Mesh) BinarySize() int {
	return 4 * (len(m.Vertices) + len(m.Normals) + len(m.Indices))
}

// WriteBinary packs vertices, normals and indices in little-endian order
// into buf and returns the number of bytes written.
func (m *Mesh) WriteBinary(buf []byte) (int, error) {
	size := m.BinarySize()
	if len(buf) < size {
		return 0, fmt.Errorf("kernel: buffer too small: have %d bytes, need %d", len(buf), size)
	}
	off := 0
	for _, v := range m.Vertices {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	for _, n := range m.Normals {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(n))
		off += 4
	}
	for _, i := range m.Indices {
		binary.LittleEndian.PutUint32(buf[off:], i)
		off += 4
	}
	return off, nil
}
