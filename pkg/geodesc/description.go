package geodesc

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/chazu/geoview/pkg/geom"
	"github.com/chazu/geoview/pkg/shapecache"
	"github.com/chazu/geoview/pkg/tessellate"
)

// ErrNoGeometry is returned by operations that need a built geometry.
var ErrNoGeometry = errors.New("geodesc: no geometry")

// Budget defaults applied by DefaultLimits.
const (
	MinVisNodes      = 1000
	MaxVisNodes      = 5000
	FacesPerNode     = 100
	SearchMatchRatio = 10 // search refuses more than this many matches per node budget
)

// DefaultLimits derives the node and face budgets from a geometry's
// suggested maximum of visible nodes.
func DefaultLimits(suggested int) (nodes, faces int) {
	nodes = max(MinVisNodes, min(suggested, MaxVisNodes))
	return nodes, nodes * FacesPerNode
}

// Option configures a Description.
type Option func(*Description)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Description) { d.log = l }
}

// WithEncoder sets the encoder used for every outgoing message body.
func WithEncoder(e Encoder) Option {
	return func(d *Description) { d.enc = e }
}

// Description is the flattened form of one loaded geometry together with
// the state needed to stream it: budgets, the volume ordering, the draw cut
// and the cached main drawing.
type Description struct {
	log   *slog.Logger
	enc   Encoder
	cache *shapecache.Cache

	nodes   []FlatNode
	src     []*geom.Node // source node of every flat node, by id
	sortMap []int        // node ids by descending volume

	topDrawNode int
	drawIDCut   int
	visGen      int

	nsegments   int // 0 = take from the geometry
	maxVisNodes int // <= 0 = unlimited
	maxVisFaces int // <= 0 = unlimited
	drawOptions string

	drawJSON   string
	drawBinary []byte
}

// New creates an empty description whose shapes are tessellated through
// cache.
func New(cache *shapecache.Cache, opts ...Option) *Description {
	d := &Description{
		log:   slog.Default(),
		enc:   JSONEncoder,
		cache: cache,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetMaxVisNodes sets the node budget; non-positive disables it.
func (d *Description) SetMaxVisNodes(n int) { d.maxVisNodes = n }

// MaxVisNodes returns the node budget.
func (d *Description) MaxVisNodes() int { return d.maxVisNodes }

// SetMaxVisFaces sets the face budget; non-positive disables it.
func (d *Description) SetMaxVisFaces(n int) { d.maxVisFaces = n }

// MaxVisFaces returns the face budget.
func (d *Description) MaxVisFaces() int { return d.maxVisFaces }

// SetNSegments sets the segment count for curved shapes. Zero takes the
// geometry's own setting at the next Build.
func (d *Description) SetNSegments(n int) { d.nsegments = n }

// NSegments returns the segment count in use.
func (d *Description) NSegments() int {
	if d.nsegments > 0 {
		return d.nsegments
	}
	return d.cache.Segments()
}

// SetDrawOptions sets the options passed verbatim into every drawing.
func (d *Description) SetDrawOptions(opt string) { d.drawOptions = opt }

// DrawOptions returns the draw options.
func (d *Description) DrawOptions() string { return d.drawOptions }

// NumNodes returns the number of flat nodes; zero means no geometry.
func (d *Description) NumNodes() int { return len(d.nodes) }

// IsBuilt reports whether a geometry is loaded.
func (d *Description) IsBuilt() bool { return len(d.nodes) > 0 }

// Node returns the flat node with the given id, or nil.
func (d *Description) Node(id int) *FlatNode {
	if id < 0 || id >= len(d.nodes) {
		return nil
	}
	return &d.nodes[id]
}

// SourceNode returns the source node of the given id, or nil.
func (d *Description) SourceNode(id int) *geom.Node {
	if id < 0 || id >= len(d.src) {
		return nil
	}
	return d.src[id]
}

// SortMap returns node ids ordered by descending bounding volume.
func (d *Description) SortMap() []int { return d.sortMap }

// DrawIDCut returns the rank below which nodes get shape data in the main
// drawing.
func (d *Description) DrawIDCut() int { return d.drawIDCut }

// Build replaces the description with a flattening of mgr. The source
// geometry is not modified. A nil manager or one without a top node leaves
// the description empty.
func (d *Description) Build(mgr *geom.Manager) {
	d.nodes = nil
	d.src = nil
	d.sortMap = nil
	d.topDrawNode = 0
	d.drawIDCut = 0
	d.visGen++
	d.ClearRawData()

	nseg := d.nsegments
	if nseg <= 0 {
		nseg = mgr.Segments()
	}
	d.cache.SetSegments(nseg)
	d.cache.Reset()

	if mgr == nil || mgr.Top == nil {
		return
	}

	f := &flattener{log: d.log, ids: make(map[*geom.Node]int), onPath: make(map[*geom.Node]bool)}
	f.visit(mgr.Top)
	d.nodes = f.nodes
	d.src = f.src

	for id := range d.nodes {
		node := &d.nodes[id]
		sn := d.src[id]
		node.Matrix = PackMatrix(sn.Matrix)
		if s := sn.Shape(); s != nil {
			node.Vol = geom.BoundingVolume(s)
			node.NFaces = tessellate.EstimateFaces(s, nseg)
		}
		copyMaterialProperties(sn.Volume, node)
	}
	countShifts(d.nodes)

	d.sortMap = make([]int, len(d.nodes))
	for i := range d.sortMap {
		d.sortMap[i] = i
	}
	sort.SliceStable(d.sortMap, func(i, j int) bool {
		return d.nodes[d.sortMap[i]].Vol > d.nodes[d.sortMap[j]].Vol
	})
	for rank, id := range d.sortMap {
		d.nodes[id].SortID = rank
	}

	n := d.MarkVisible(false)
	d.log.Debug("geometry built", "nodes", len(d.nodes), "displayable", n, "segments", nseg)
}

// flattener assigns dense ids in depth-first pre-order. A node reached
// again through a shared volume keeps its first id; a node that would
// contain itself loses that placement.
type flattener struct {
	log    *slog.Logger
	nodes  []FlatNode
	src    []*geom.Node
	ids    map[*geom.Node]int
	onPath map[*geom.Node]bool
}

func (f *flattener) visit(n *geom.Node) int {
	if id, ok := f.ids[n]; ok {
		return id
	}
	id := len(f.nodes)
	f.ids[n] = id
	f.nodes = append(f.nodes, FlatNode{NodeBase: NodeBase{ID: id, Name: n.Name}, Opacity: 1})
	f.src = append(f.src, n)

	f.onPath[n] = true
	for _, c := range n.Daughters() {
		if c == nil {
			continue
		}
		if f.onPath[c] {
			f.log.Warn("dropping placement of a node inside itself", "node", c.Name, "parent", n.Name)
			continue
		}
		cid := f.visit(c)
		f.nodes[id].Children = append(f.nodes[id].Children, cid)
	}
	delete(f.onPath, n)
	return id
}

// countShifts stores in every node the number of descendants of its fully
// expanded subtree, so a walk can skip a subtree and keep sequence ids
// consistent.
func countShifts(nodes []FlatNode) {
	done := make([]bool, len(nodes))
	var count func(id int) int
	count = func(id int) int {
		if done[id] {
			return nodes[id].idShift
		}
		total := 0
		for _, c := range nodes[id].Children {
			total += 1 + count(c)
		}
		nodes[id].idShift = total
		done[id] = true
		return total
	}
	for id := range nodes {
		count(id)
	}
}

// copyMaterialProperties sets the color and opacity of a node. The volume
// color wins over the material color.
func copyMaterialProperties(vol *geom.Volume, node *FlatNode) {
	node.Color = ""
	node.Opacity = 1
	if vol == nil {
		return
	}

	col := vol.Color
	if vol.Material != nil {
		node.Opacity = vol.Material.Opacity()
		if col == nil {
			col = vol.Material.Color
		}
	}
	if col == nil {
		return
	}
	node.Color = col.String()
	if node.Opacity == 1 && col.A > 0 && col.A < 1 {
		node.Opacity = col.A
	}
}
