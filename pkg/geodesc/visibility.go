package geodesc

import "github.com/chazu/geoview/pkg/geom"

// MarkVisible recomputes the visibility flags of every node from its source
// volume, or from the on-screen flag set by a 3D viewer when onScreen is
// true. The root is never drawn itself. It returns the number of nodes that
// are visible and displayable.
func (d *Description) MarkVisible(onScreen bool) int {
	d.visGen++
	res := 0
	for id := range d.nodes {
		node := &d.nodes[id]
		sn := d.src[id]

		node.Vis = VisOff
		node.numVisChld = 1

		if onScreen {
			if sn.OnScreen {
				node.Vis = VisThis
			}
		} else if vol := sn.Volume; vol != nil {
			if vol.Visible && !vol.VisNone && !sn.Division {
				node.Vis = VisThis
			}
			if len(node.Children) > 0 {
				if vol.VisDaughters {
					node.Vis |= VisChildren
				} else if vol.VisOneLevel {
					node.Vis |= VisLevel1
				}
			}
		}

		if id == 0 {
			node.Vis &^= VisThis
		}

		if node.IsVisible() && node.CanDisplay() {
			res++
		}
	}
	return res
}

// ChangeNodeVisibility switches the node and every node placing the same
// volume on or off, daughters included. The change is mirrored into the
// source volume so a later Build keeps it. The root never shows its own
// shape. It reports whether anything changed; the cached main drawing is
// dropped when it did.
func (d *Description) ChangeNodeVisibility(nodeid int, selected bool) bool {
	node := d.Node(nodeid)
	if node == nil {
		return false
	}

	vis := VisOff
	if selected {
		vis = VisThis
		if len(node.Children) > 0 {
			vis |= VisChildren
		}
	}
	if nodeid == 0 {
		vis &^= VisThis
	}
	if node.Vis == vis {
		return false
	}

	vol := d.src[nodeid].Volume
	if vol != nil {
		vol.Visible = selected
		if len(node.Children) > 0 {
			vol.VisDaughters = selected
			vol.VisOneLevel = false
		}
	}

	node.Vis = vis
	if vol != nil {
		for id := range d.nodes {
			if d.src[id].Volume != vol {
				continue
			}
			d.nodes[id].Vis = vis
			if id == 0 {
				d.nodes[id].Vis &^= VisThis
			}
		}
	}

	d.visGen++
	d.ClearRawData()
	return true
}

// IsPrincipalEndNode reports whether the node is drawn in the main drawing
// and has no children. Visibility of such nodes can be toggled on the
// client without resending the drawing.
func (d *Description) IsPrincipalEndNode(nodeid int) bool {
	node := d.Node(nodeid)
	if node == nil {
		return false
	}
	return node.SortID < d.drawIDCut && node.IsVisible() && node.CanDisplay() && len(node.Children) == 0
}

// SelectVolume restricts drawing to the branch of the first node placing
// vol. A nil or unknown volume selects the whole geometry.
func (d *Description) SelectVolume(vol *geom.Volume) {
	d.selectTop(func(n *geom.Node) bool { return vol != nil && n.Volume == vol })
}

// SelectNode restricts drawing to the branch of the given node. A nil or
// unknown node selects the whole geometry.
func (d *Description) SelectNode(node *geom.Node) {
	d.selectTop(func(n *geom.Node) bool { return node != nil && n == node })
}

// TopDrawNode returns the id of the node whose branch is drawn.
func (d *Description) TopDrawNode() int { return d.topDrawNode }

func (d *Description) selectTop(match func(*geom.Node) bool) {
	top := 0
	for id, sn := range d.src {
		if match(sn) {
			top = id
			break
		}
	}
	if top != d.topDrawNode {
		d.topDrawNode = top
		d.visGen++
		d.ClearRawData()
	}
}
