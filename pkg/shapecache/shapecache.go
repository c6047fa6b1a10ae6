// Package shapecache keeps tessellated shapes keyed by shape identity and
// packs the ones referenced by an outgoing drawing into one binary buffer.
//
// A buffer build follows a fixed order: ResetTransmission, then Reserve for
// every shape the drawing references, then PackPending. The cache is not
// safe for concurrent use.
package shapecache

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/geoview/pkg/geom"
	"github.com/chazu/geoview/pkg/kernel"
)

var (
	// ErrNoFaces is returned for shapes that tessellate to zero triangles.
	ErrNoFaces = errors.New("shapecache: shape has no faces")

	// ErrPackMismatch is returned when packed bytes differ from the
	// reserved total.
	ErrPackMismatch = errors.New("shapecache: packed size differs from reserved size")
)

// Tessellator builds a mesh for a shape.
type Tessellator interface {
	Build(s geom.Shape, nseg int) (*kernel.Mesh, error)
}

// RenderInfo locates a shape payload inside a packed buffer.
type RenderInfo struct {
	Offset    int    `json:"rnr_offset"`
	Func      string `json:"rnr_func"`
	VertSize  int    `json:"vert_size"`
	NormSize  int    `json:"norm_size"`
	IndexSize int    `json:"index_size"`
}

// Entry is the cached tessellation of one shape.
type Entry struct {
	ID    int // sequential, in creation order
	Shape geom.Shape
	Mesh  *kernel.Mesh // nil when tessellation failed
	Faces int
	Err   error // tessellation error, kept so the shape is not retried

	info RenderInfo
}

// RenderInfo returns the render info of the entry, or nil if the entry has
// not been reserved in the current buffer cycle.
func (e *Entry) RenderInfo() *RenderInfo {
	if e == nil || e.Faces <= 0 || e.info.Offset < 0 {
		return nil
	}
	ri := e.info
	return &ri
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used to report tessellation failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithSegments sets the segment count used for curved surfaces.
func WithSegments(n int) Option {
	return func(c *Cache) { c.nseg = n }
}

// Cache maps shape identity to tessellation results.
type Cache struct {
	tess    Tessellator
	nseg    int
	log     *slog.Logger
	entries map[geom.Shape]*Entry
	order   []*Entry

	pending []*Entry
	offset  int
}

// New creates a cache that tessellates with t.
func New(t Tessellator, opts ...Option) *Cache {
	c := &Cache{
		tess:    t,
		nseg:    geom.DefaultNSegments,
		log:     slog.Default(),
		entries: make(map[geom.Shape]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Segments returns the segment count used for tessellation.
func (c *Cache) Segments() int { return c.nseg }

// SetSegments changes the segment count. Entries built with the previous
// count are dropped.
func (c *Cache) SetSegments(n int) {
	if n == c.nseg {
		return
	}
	c.nseg = n
	c.Reset()
}

// GetOrBuild returns the entry for s, tessellating it on first use. Shapes
// are compared by identity. A shape that fails to tessellate or produces no
// faces is remembered and reported with an error wrapping ErrNoFaces.
func (c *Cache) GetOrBuild(s geom.Shape) (*Entry, error) {
	if s == nil {
		return nil, fmt.Errorf("shapecache: nil shape: %w", ErrNoFaces)
	}
	e, ok := c.entries[s]
	if !ok {
		e = &Entry{ID: len(c.order), Shape: s, info: RenderInfo{Offset: -1}}
		mesh, err := c.tess.Build(s, c.nseg)
		switch {
		case err != nil:
			e.Err = err
		case mesh.IsEmpty():
			e.Err = ErrNoFaces
		default:
			e.Mesh = mesh
			e.Faces = mesh.TriangleCount()
		}
		if e.Faces <= 0 {
			c.log.Error("no faces for shape", "shape", s.ShapeName(), "type", s.TypeName(), "err", e.Err)
		}
		c.entries[s] = e
		c.order = append(c.order, e)
	}
	if e.Faces <= 0 {
		if errors.Is(e.Err, ErrNoFaces) {
			return e, e.Err
		}
		return e, fmt.Errorf("%w: %v", ErrNoFaces, e.Err)
	}
	return e, nil
}

// Reserve assigns the entry an offset in the pending buffer, once per
// buffer cycle, and returns its render info. It returns nil for entries
// without faces.
func (c *Cache) Reserve(e *Entry) *RenderInfo {
	if e == nil || e.Faces <= 0 {
		return nil
	}
	if e.info.Offset < 0 {
		e.info = RenderInfo{
			Offset:    c.offset,
			Func:      e.Mesh.RnrFunc(),
			VertSize:  len(e.Mesh.Vertices),
			NormSize:  len(e.Mesh.Normals),
			IndexSize: len(e.Mesh.Indices),
		}
		c.offset += e.Mesh.BinarySize()
		c.pending = append(c.pending, e)
	}
	return e.RenderInfo()
}

// ResetTransmission invalidates every reserved offset and empties the
// pending list. It must precede each buffer build.
func (c *Cache) ResetTransmission() {
	for _, e := range c.order {
		e.info.Offset = -1
	}
	c.pending = c.pending[:0]
	c.offset = 0
}

// PendingSize returns the number of bytes reserved so far.
func (c *Cache) PendingSize() int { return c.offset }

// PackPending writes every reserved payload at its offset and clears the
// pending list. Reserved offsets stay valid until the next
// ResetTransmission.
func (c *Cache) PackPending() ([]byte, error) {
	buf := make([]byte, c.offset)
	off := 0
	for _, e := range c.pending {
		if e.info.Offset != off {
			return nil, fmt.Errorf("%w: entry %d at offset %d, expected %d", ErrPackMismatch, e.ID, e.info.Offset, off)
		}
		n, err := e.Mesh.WriteBinary(buf[off:])
		if err != nil {
			return nil, fmt.Errorf("shapecache: pack entry %d: %w", e.ID, err)
		}
		off += n
	}
	if off != c.offset {
		return nil, fmt.Errorf("%w: wrote %d bytes, reserved %d", ErrPackMismatch, off, c.offset)
	}
	c.pending = c.pending[:0]
	c.offset = 0
	return buf, nil
}

// Reset drops every entry, for use after a geometry reload.
func (c *Cache) Reset() {
	c.entries = make(map[geom.Shape]*Entry)
	c.order = nil
	c.pending = nil
	c.offset = 0
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.order) }
