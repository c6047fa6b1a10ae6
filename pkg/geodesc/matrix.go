package geodesc

import (
	"math"

	"github.com/chazu/geoview/pkg/geom"
)

// trivialTolerance is the absolute tolerance for detecting trivial
// components of a general matrix.
const trivialTolerance = 1e-20

func near(val, want float64) bool {
	return val == want || math.Abs(val-want) < trivialTolerance
}

// PackMatrix serializes a placement into the shortest form the client
// understands:
//
//	0  identity
//	3  translation tx,ty,tz
//	4  scale sx,sy,sz,1
//	9  rotation, row-major 3x3
//	16 column-major 4x4 with the last row 0,0,0,1
//
// A general matrix whose components are trivial is classified by content.
func PackMatrix(m *geom.Matrix) []float32 {
	if m.IsIdentity() {
		return nil
	}

	isTranslate := m.Kind == geom.MatrixTranslation
	isScale := m.Kind == geom.MatrixScale
	isRotate := m.Kind == geom.MatrixRotation

	t, s, r := m.Translation, m.Scale, m.Rotation

	if !isTranslate && !isScale && !isRotate {
		noScale := near(s[0], 1) && near(s[1], 1) && near(s[2], 1)
		noTrans := near(t[0], 0) && near(t[1], 0) && near(t[2], 0)
		noRotate := near(r[0], 1) && near(r[1], 0) && near(r[2], 0) &&
			near(r[3], 0) && near(r[4], 1) && near(r[5], 0) &&
			near(r[6], 0) && near(r[7], 0) && near(r[8], 1)

		switch {
		case noScale && noTrans && noRotate:
			return nil
		case noScale && noTrans:
			isRotate = true
		case noScale && noRotate:
			isTranslate = true
		case noTrans && noRotate:
			isScale = true
		}
	}

	switch {
	case isTranslate:
		return []float32{float32(t[0]), float32(t[1]), float32(t[2])}
	case isScale:
		return []float32{float32(s[0]), float32(s[1]), float32(s[2]), 1}
	case isRotate:
		out := make([]float32, 9)
		for i, v := range r {
			out[i] = float32(v)
		}
		return out
	}

	// Scale is folded into the rotation block: column j is scaled by s[j].
	out := make([]float32, 16)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out[col*4+row] = float32(r[row*3+col] * s[col])
		}
		out[12+row] = float32(t[row])
	}
	out[15] = 1
	return out
}
