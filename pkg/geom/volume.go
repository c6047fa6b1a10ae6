package geom

// Volume is a shape with visual attributes and a list of placed daughters.
// The same volume may be referenced by many nodes.
type Volume struct {
	Name     string
	Shape    Shape // nil for a pure assembly
	Material *Material
	Color    *Color // overrides the material color when set

	Visible      bool // the volume itself is drawn
	VisDaughters bool // daughters are drawn
	VisOneLevel  bool // only the first level of daughters is drawn
	VisNone      bool // never drawn, regardless of Visible

	Nodes []*Node
}

// NewVolume returns a visible volume with visible daughters.
func NewVolume(name string, s Shape) *Volume {
	return &Volume{
		Name:         name,
		Shape:        s,
		Visible:      true,
		VisDaughters: true,
	}
}

// AddNode places child inside v with the given matrix and returns the new
// node. A nil matrix means identity.
func (v *Volume) AddNode(name string, child *Volume, m *Matrix) *Node {
	if m == nil {
		m = Identity()
	}
	n := &Node{Name: name, Volume: child, Matrix: m}
	v.Nodes = append(v.Nodes, n)
	return n
}

// Node is one placement of a volume inside its mother volume.
type Node struct {
	Name   string
	Volume *Volume
	Matrix *Matrix

	OnScreen bool // set by a 3D viewer for nodes currently rendered
	Division bool // node produced by a volume division, never drawn itself
}

// Shape returns the node's shape, or nil.
func (n *Node) Shape() Shape {
	if n == nil || n.Volume == nil {
		return nil
	}
	return n.Volume.Shape
}

// Daughters returns the daughter nodes of the node's volume.
func (n *Node) Daughters() []*Node {
	if n == nil || n.Volume == nil {
		return nil
	}
	return n.Volume.Nodes
}
