// Package geodesc flattens a source geometry into an id-addressed node
// array and produces the descriptions a remote viewer needs: the node
// hierarchy, budget-limited drawings with packed shape data, search
// results and visibility updates.
//
// A Description has a single owner. None of its methods may be called
// concurrently.
package geodesc

// VisFlags is the visibility bitmask of a flat node.
type VisFlags int

const (
	VisOff      VisFlags = 0
	VisThis     VisFlags = 1 << 0 // node itself is drawn
	VisChildren VisFlags = 1 << 1 // all descendants may be drawn
	VisLevel1   VisFlags = 1 << 2 // only direct children may be drawn
)

// UnlimitedDepth is the depth budget of a full-tree walk.
const UnlimitedDepth = 999999

// NodeBase is the part of a node needed to build the client hierarchy.
type NodeBase struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Children []int    `json:"chlds,omitempty"`
	Vis      VisFlags `json:"vis"`
	Color    string   `json:"color,omitempty"`
}

// IsVisible reports whether the node itself is drawn.
func (n *NodeBase) IsVisible() bool { return n.Vis&VisThis != 0 }

// VisDepth returns how many levels below the node may be drawn.
func (n *NodeBase) VisDepth() int {
	switch {
	case n.Vis&VisChildren != 0:
		return UnlimitedDepth
	case n.Vis&VisLevel1 != 0:
		return 1
	default:
		return 0
	}
}

// FlatNode is one flattened source node. The ID equals the position in the
// node array; id 0 is the root.
type FlatNode struct {
	NodeBase
	Matrix []float32 `json:"matr,omitempty"`

	Vol     float64 `json:"-"` // bounding volume, orders nodes for the budget cut
	NFaces  int     `json:"-"` // face estimate
	Opacity float64 `json:"-"`
	SortID  int     `json:"-"` // rank in descending volume order

	numVisChld int  // visible descendants found by the last full descent
	idShift    int  // descendants in the fully expanded subtree
	useFlag    bool // touched by the drawing being collected

	// memo of an empty subtree, valid for walks in the same visibility
	// generation at no greater depth and not more inside the draw branch
	memoGen    int
	memoLvl    int
	memoInside bool
}

// CanDisplay reports whether the node has a shape that produces faces.
func (n *FlatNode) CanDisplay() bool { return n.Vol > 0 && n.NFaces > 0 }
