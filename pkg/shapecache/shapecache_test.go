package shapecache_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/chazu/geoview/pkg/geom"
	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/shapecache"
	"github.com/chazu/geoview/pkg/tessellate"
)

// countingTessellator wraps the real builder and counts Build calls.
type countingTessellator struct {
	inner *tessellate.Builder
	calls int
}

func (c *countingTessellator) Build(s geom.Shape, nseg int) (*kernel.Mesh, error) {
	c.calls++
	return c.inner.Build(s, nseg)
}

// emptyTessellator returns an empty mesh for every shape.
type emptyTessellator struct{}

func (emptyTessellator) Build(geom.Shape, int) (*kernel.Mesh, error) {
	return &kernel.Mesh{}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCache() (*shapecache.Cache, *countingTessellator) {
	ct := &countingTessellator{inner: tessellate.NewBuilder(nil)}
	return shapecache.New(ct, shapecache.WithLogger(quietLogger())), ct
}

func TestGetOrBuildCachesByIdentity(t *testing.T) {
	c, ct := newCache()
	a := &geom.BoxShape{DX: 1, DY: 1, DZ: 1}
	b := &geom.BoxShape{DX: 1, DY: 1, DZ: 1} // equal value, distinct identity

	ea, err := c.GetOrBuild(a)
	if err != nil {
		t.Fatalf("GetOrBuild(a): %v", err)
	}
	again, err := c.GetOrBuild(a)
	if err != nil {
		t.Fatalf("GetOrBuild(a) again: %v", err)
	}
	if ea != again {
		t.Error("same shape returned different entries")
	}
	if ct.calls != 1 {
		t.Errorf("tessellated %d times, want 1", ct.calls)
	}

	eb, err := c.GetOrBuild(b)
	if err != nil {
		t.Fatalf("GetOrBuild(b): %v", err)
	}
	if eb == ea {
		t.Error("distinct shapes share an entry")
	}
	if c.Len() != 2 || ct.calls != 2 {
		t.Errorf("Len = %d, calls = %d, want 2 and 2", c.Len(), ct.calls)
	}
	if ea.Faces != 12 {
		t.Errorf("box faces = %d, want 12", ea.Faces)
	}
}

func TestReserveOncePerCycle(t *testing.T) {
	c, _ := newCache()
	box, _ := c.GetOrBuild(&geom.BoxShape{DX: 1, DY: 1, DZ: 1})
	tube, _ := c.GetOrBuild(&geom.TubeShape{RMax: 1, DZ: 1})

	c.ResetTransmission()
	if box.RenderInfo() != nil {
		t.Fatal("unreserved entry has render info")
	}

	r1 := c.Reserve(box)
	r2 := c.Reserve(tube)
	r3 := c.Reserve(box)

	if r1.Offset != 0 {
		t.Errorf("first offset = %d, want 0", r1.Offset)
	}
	if r2.Offset != box.Mesh.BinarySize() {
		t.Errorf("second offset = %d, want %d", r2.Offset, box.Mesh.BinarySize())
	}
	if *r3 != *r1 {
		t.Errorf("re-reserve changed render info: %+v != %+v", r3, r1)
	}
	if r1.Func != kernel.RnrFuncGeoShape {
		t.Errorf("render func = %q", r1.Func)
	}
	if r1.VertSize != len(box.Mesh.Vertices) || r1.IndexSize != len(box.Mesh.Indices) {
		t.Errorf("render sizes = %+v", r1)
	}

	want := box.Mesh.BinarySize() + tube.Mesh.BinarySize()
	if c.PendingSize() != want {
		t.Errorf("PendingSize = %d, want %d", c.PendingSize(), want)
	}

	buf, err := c.PackPending()
	if err != nil {
		t.Fatalf("PackPending: %v", err)
	}
	if len(buf) != want {
		t.Fatalf("buffer length = %d, want %d", len(buf), want)
	}

	// The tube payload starts with its first vertex x coordinate.
	x := math.Float32frombits(binary.LittleEndian.Uint32(buf[r2.Offset:]))
	if x != tube.Mesh.Vertices[0] {
		t.Errorf("tube payload starts with %g, want %g", x, tube.Mesh.Vertices[0])
	}

	// Offsets survive packing until the next reset.
	if box.RenderInfo() == nil {
		t.Error("render info cleared by PackPending")
	}
	c.ResetTransmission()
	if box.RenderInfo() != nil || c.PendingSize() != 0 {
		t.Error("ResetTransmission left reserved state behind")
	}
}

func TestPackEmpty(t *testing.T) {
	c, _ := newCache()
	c.ResetTransmission()
	buf, err := c.PackPending()
	if err != nil {
		t.Fatalf("PackPending: %v", err)
	}
	if len(buf) != 0 {
		t.Errorf("buffer length = %d, want 0", len(buf))
	}
}

func TestNoFaces(t *testing.T) {
	c := shapecache.New(emptyTessellator{}, shapecache.WithLogger(quietLogger()))
	s := &geom.BoxShape{Name: "flat"}

	e, err := c.GetOrBuild(s)
	if !errors.Is(err, shapecache.ErrNoFaces) {
		t.Fatalf("err = %v, want ErrNoFaces", err)
	}
	if e == nil || e.Faces != 0 {
		t.Fatalf("entry = %+v", e)
	}

	c.ResetTransmission()
	if ri := c.Reserve(e); ri != nil {
		t.Errorf("zero-face entry reserved: %+v", ri)
	}
	if c.PendingSize() != 0 {
		t.Errorf("PendingSize = %d, want 0", c.PendingSize())
	}
}

func TestNoFacesLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	c := shapecache.New(emptyTessellator{}, shapecache.WithLogger(log))
	s := &geom.BoxShape{Name: "flat"}

	for i := 0; i < 3; i++ {
		if _, err := c.GetOrBuild(s); !errors.Is(err, shapecache.ErrNoFaces) {
			t.Fatalf("lookup %d: err = %v, want ErrNoFaces", i, err)
		}
	}
	if n := strings.Count(buf.String(), "no faces for shape"); n != 1 {
		t.Errorf("logged %d times, want once:\n%s", n, buf.String())
	}
}

func TestBuildErrorIsRemembered(t *testing.T) {
	c, ct := newCache()
	// A composite without a kernel fails to tessellate.
	comp := &geom.CompositeShape{
		Left:  geom.Operand{Shape: &geom.BoxShape{DX: 1, DY: 1, DZ: 1}},
		Right: geom.Operand{Shape: &geom.BoxShape{DX: 1, DY: 1, DZ: 1}},
	}

	for i := 0; i < 2; i++ {
		_, err := c.GetOrBuild(comp)
		if !errors.Is(err, shapecache.ErrNoFaces) {
			t.Fatalf("attempt %d: err = %v, want ErrNoFaces", i, err)
		}
	}
	if ct.calls != 1 {
		t.Errorf("failed shape tessellated %d times, want 1", ct.calls)
	}
}

func TestNilShape(t *testing.T) {
	c, _ := newCache()
	if _, err := c.GetOrBuild(nil); !errors.Is(err, shapecache.ErrNoFaces) {
		t.Errorf("err = %v, want ErrNoFaces", err)
	}
}

func TestResetAndSegments(t *testing.T) {
	c, ct := newCache()
	tube := &geom.TubeShape{RMax: 1, DZ: 1}

	e, _ := c.GetOrBuild(tube)
	if e.Faces != 4*geom.DefaultNSegments {
		t.Errorf("faces = %d, want %d", e.Faces, 4*geom.DefaultNSegments)
	}

	c.SetSegments(8)
	if c.Len() != 0 {
		t.Errorf("Len after SetSegments = %d, want 0", c.Len())
	}
	e, _ = c.GetOrBuild(tube)
	if e.Faces != 32 {
		t.Errorf("faces = %d, want 32", e.Faces)
	}

	c.SetSegments(8)
	if c.Len() != 1 {
		t.Error("SetSegments with the same count dropped entries")
	}

	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len after Reset = %d", c.Len())
	}
	if ct.calls != 2 {
		t.Errorf("calls = %d, want 2", ct.calls)
	}
}
