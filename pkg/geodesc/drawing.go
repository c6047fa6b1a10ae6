package geodesc

import (
	"fmt"
	"slices"

	"github.com/chazu/geoview/pkg/geom"
	"github.com/chazu/geoview/pkg/shapecache"
)

// VisibleItem is one drawn node instance: the node reached by a stack,
// with its color and the location of its shape data.
type VisibleItem struct {
	NodeID  int                    `json:"nodeid"`
	Stack   []int                  `json:"stack"`
	Color   string                 `json:"color,omitempty"`
	Opacity float64                `json:"opacity"`
	RI      *shapecache.RenderInfo `json:"ri,omitempty"`
}

// Drawing lists visible items plus every node needed to place them.
type Drawing struct {
	NumNodes int           `json:"numnodes"`
	DrawOpt  string        `json:"drawopt"`
	NSegm    int           `json:"nsegm"`
	BinLen   int           `json:"binlen"`
	Nodes    []*FlatNode   `json:"nodes"`
	Visibles []VisibleItem `json:"visibles"`
}

func newItem(node *FlatNode, stack []int) VisibleItem {
	return VisibleItem{NodeID: node.ID, Stack: slices.Clone(stack)}
}

// shapeEntry tessellates the shape of a node through the cache. Failures
// are logged by the cache and reported as a nil entry.
func (d *Description) shapeEntry(id int) *shapecache.Entry {
	s := d.src[id].Shape()
	if s == nil {
		return nil
	}
	e, err := d.cache.GetOrBuild(s)
	if err != nil {
		return nil
	}
	return e
}

// computeDrawCut walks the visible tree once, counting the visits of every
// node, and returns the rank in volume order of the first node that would
// exceed the face or node budget.
func (d *Description) computeDrawCut() int {
	viscnt := make([]int, len(d.nodes))
	d.ScanVisible(func(node *FlatNode, _ []int, _ int) bool {
		viscnt[node.ID]++
		return true
	})

	totalFaces, totalNodes := 0, 0
	for rank, id := range d.sortMap {
		node := &d.nodes[id]
		if viscnt[id] <= 0 || node.Vol <= 0 {
			continue
		}
		e := d.shapeEntry(id)
		if e == nil {
			continue
		}

		totalFaces += e.Faces * viscnt[id]
		if d.maxVisFaces > 0 && totalFaces > d.maxVisFaces {
			return rank
		}
		totalNodes += viscnt[id]
		if d.maxVisNodes > 0 && totalNodes > d.maxVisNodes {
			return rank
		}
	}
	return len(d.sortMap)
}

// CollectVisibles builds the main drawing: every visible node whose rank
// is below the budget cut, with shape data packed into one binary buffer.
// The result is kept until the visibility changes or ClearRawData is
// called.
func (d *Description) CollectVisibles() error {
	if len(d.nodes) == 0 {
		return ErrNoGeometry
	}

	d.drawIDCut = d.computeDrawCut()

	drawing := d.newDrawing()
	d.cache.ResetTransmission()

	d.ScanVisible(func(node *FlatNode, stack []int, _ int) bool {
		if node.SortID < d.drawIDCut {
			item := newItem(node, stack)
			item.Color = node.Color
			item.Opacity = node.Opacity
			item.RI = d.cache.Reserve(d.shapeEntry(node.ID))
			drawing.Visibles = append(drawing.Visibles, item)
		}
		return true
	})

	d.collectNodes(drawing)

	binary, err := d.cache.PackPending()
	if err != nil {
		return fmt.Errorf("geodesc: collect visibles: %w", err)
	}
	drawing.BinLen = len(binary)

	msg, err := d.message(PrefixDraw, drawing)
	if err != nil {
		return err
	}
	d.drawJSON = msg
	d.drawBinary = binary

	d.log.Debug("collected visibles", "cut", d.drawIDCut, "visibles", len(drawing.Visibles),
		"nodes", len(drawing.Nodes), "binlen", len(binary))
	return nil
}

func (d *Description) newDrawing() *Drawing {
	return &Drawing{
		NumNodes: len(d.nodes),
		DrawOpt:  d.drawOptions,
		NSegm:    d.NSegments(),
	}
}

// collectNodes fills drawing.Nodes with every node on the stacks of its
// visible items, each once, in first-seen order.
func (d *Description) collectNodes(drawing *Drawing) {
	for i := range d.nodes {
		d.nodes[i].useFlag = false
	}
	drawing.NumNodes = len(d.nodes)

	use := func(node *FlatNode) {
		if !node.useFlag {
			node.useFlag = true
			drawing.Nodes = append(drawing.Nodes, node)
		}
	}
	for _, item := range drawing.Visibles {
		nodeid := 0
		for _, k := range item.Stack {
			node := &d.nodes[nodeid]
			use(node)
			if k < 0 || k >= len(node.Children) {
				break
			}
			nodeid = node.Children[k]
		}
		use(&d.nodes[nodeid])
	}
}

// HasDrawData reports whether a main drawing is cached.
func (d *Description) HasDrawData() bool {
	return d.drawJSON != "" && len(d.drawBinary) > 0 && d.drawIDCut > 0
}

// DrawJSON returns the cached "GDRAW:" message.
func (d *Description) DrawJSON() string { return d.drawJSON }

// DrawBinary returns the cached shape buffer of the main drawing.
func (d *Description) DrawBinary() []byte { return d.drawBinary }

// ClearRawData drops the cached main drawing.
func (d *Description) ClearRawData() {
	d.drawJSON = ""
	d.drawBinary = nil
}

// ProduceDrawingFor builds a drawing of every visible instance of a node,
// or with checkVolume of every visible node placing the same volume,
// together with the packed shape data. It returns a nil drawing when the
// node has no shape or no visible instance.
func (d *Description) ProduceDrawingFor(nodeid int, checkVolume bool) (*Drawing, []byte, error) {
	sn := d.SourceNode(nodeid)
	if sn == nil || sn.Shape() == nil {
		return nil, nil, nil
	}
	vol := sn.Volume

	drawing := d.newDrawing()
	d.ScanVisible(func(node *FlatNode, stack []int, _ int) bool {
		if checkVolume {
			if d.src[node.ID].Volume != vol {
				return true
			}
		} else if node.ID != nodeid {
			return true
		}
		item := newItem(node, stack)
		item.Color = node.Color
		item.Opacity = node.Opacity
		drawing.Visibles = append(drawing.Visibles, item)
		return true
	})
	if len(drawing.Visibles) == 0 {
		return nil, nil, nil
	}

	d.cache.ResetTransmission()
	ri := d.cache.Reserve(d.shapeEntry(nodeid))
	for i := range drawing.Visibles {
		drawing.Visibles[i].RI = ri
	}

	d.collectNodes(drawing)

	binary, err := d.cache.PackPending()
	if err != nil {
		return nil, nil, fmt.Errorf("geodesc: drawing for node %d: %w", nodeid, err)
	}
	drawing.BinLen = len(binary)
	return drawing, binary, nil
}

// ProduceModifyReply returns the "MODIF:" message listing the node and
// every other node placing the same volume.
func (d *Description) ProduceModifyReply(nodeid int) (string, error) {
	nodes := []*FlatNode{}
	if sn := d.SourceNode(nodeid); sn != nil {
		vol := sn.Volume
		for id := range d.nodes {
			if id == nodeid || (vol != nil && d.src[id].Volume == vol) {
				nodes = append(nodes, &d.nodes[id])
			}
		}
	}
	return d.message(PrefixModify, nodes)
}

// NodesOfVolume returns the ids of all nodes placing vol.
func (d *Description) NodesOfVolume(vol *geom.Volume) []int {
	var ids []int
	for id, sn := range d.src {
		if vol != nil && sn.Volume == vol {
			ids = append(ids, id)
		}
	}
	return ids
}
