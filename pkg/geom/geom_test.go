package geom

import (
	"math"
	"testing"
)

func TestNewManager(t *testing.T) {
	m := New()
	if m.VolumeCount() != 0 {
		t.Errorf("empty manager should have 0 volumes, got %d", m.VolumeCount())
	}
	if m.Top != nil {
		t.Error("empty manager should have no top node")
	}
	if m.Segments() != DefaultNSegments {
		t.Errorf("Segments() = %d, want %d", m.Segments(), DefaultNSegments)
	}
}

func TestAddVolumeAndLookup(t *testing.T) {
	m := New()
	world := NewVolume("world", &BoxShape{DX: 100, DY: 100, DZ: 100})
	det := NewVolume("det", &BoxShape{DX: 10, DY: 10, DZ: 10})
	m.AddVolume(world)
	m.AddVolume(det)

	if got := m.GetVolume("det"); got != det {
		t.Errorf("GetVolume(det) = %v, want %v", got, det)
	}
	if m.GetVolume("nonexistent") != nil {
		t.Error("GetVolume should return nil for missing name")
	}
	if len(m.Volumes()) != 2 || m.Volumes()[0] != world {
		t.Errorf("Volumes() order wrong: %v", m.Volumes())
	}

	replacement := NewVolume("det", nil)
	m.AddVolume(replacement)
	if m.VolumeCount() != 2 {
		t.Errorf("replacing a volume should keep count at 2, got %d", m.VolumeCount())
	}
	if m.Volumes()[1] != replacement {
		t.Error("replacement should take the original position")
	}
}

func TestMustGetVolumePanics(t *testing.T) {
	m := New()
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustGetVolume should panic for missing volume")
		}
	}()
	m.MustGetVolume("missing")
}

func TestSetTopVolume(t *testing.T) {
	m := New()
	world := NewVolume("world", nil)
	m.SetTopVolume(world)

	if m.Top == nil || m.Top.Volume != world {
		t.Fatal("top node should reference the world volume")
	}
	if m.Top.Name != "world" {
		t.Errorf("top node name = %q, want %q", m.Top.Name, "world")
	}
	if m.GetVolume("world") != world {
		t.Error("SetTopVolume should register an unknown volume")
	}
	if !m.Top.Matrix.IsIdentity() {
		t.Error("top node matrix should be identity")
	}
}

func TestAddNode(t *testing.T) {
	world := NewVolume("world", nil)
	det := NewVolume("det", &BoxShape{DX: 1, DY: 1, DZ: 1})

	n1 := world.AddNode("det_1", det, nil)
	n2 := world.AddNode("det_2", det, Translation(5, 0, 0))

	if len(world.Nodes) != 2 {
		t.Fatalf("expected 2 daughters, got %d", len(world.Nodes))
	}
	if !n1.Matrix.IsIdentity() {
		t.Error("nil matrix should become identity")
	}
	if n2.Matrix.Kind != MatrixTranslation {
		t.Errorf("matrix kind = %s, want translation", n2.Matrix.Kind)
	}
	if n1.Shape() != det.Shape || n2.Shape() != det.Shape {
		t.Error("both placements should share the volume's shape")
	}
}

func TestEulerToRotation(t *testing.T) {
	r := EulerToRotation(0, 0, 90)
	p := Rotation(r).Apply(Vec3{X: 1})
	if math.Abs(p.X) > 1e-12 || math.Abs(p.Y-1) > 1e-12 || math.Abs(p.Z) > 1e-12 {
		t.Errorf("rotating (1,0,0) by 90 deg around Z = %+v, want (0,1,0)", p)
	}

	id := EulerToRotation(0, 0, 0)
	if id != identityRotation {
		t.Errorf("zero angles should give identity, got %v", id)
	}
}

func TestMatrixApply(t *testing.T) {
	m := General(identityRotation, [3]float64{1, 2, 3}, [3]float64{2, 2, 2})
	p := m.Apply(Vec3{X: 1, Y: 1, Z: 1})
	want := Vec3{X: 3, Y: 4, Z: 5}
	if p != want {
		t.Errorf("Apply = %+v, want %+v", p, want)
	}
}

func TestMaterialOpacity(t *testing.T) {
	tests := []struct {
		name string
		mat  *Material
		want float64
	}{
		{"nil material", nil, 1},
		{"opaque", &Material{}, 1},
		{"half", &Material{Transparency: 50}, 0.5},
		{"fully transparent", &Material{Transparency: 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mat.Opacity(); got != tt.want {
				t.Errorf("Opacity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColorString(t *testing.T) {
	if got := RGB(255, 128, 0).String(); got != "255,128,0" {
		t.Errorf("String() = %q, want %q", got, "255,128,0")
	}
}
