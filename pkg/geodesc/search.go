package geodesc

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// SearchStatus classifies a search result.
type SearchStatus int

const (
	SearchReset   SearchStatus = iota // empty query
	SearchNone                        // no node matched
	SearchTooMany                     // too many matches to describe
	SearchFound
)

// SearchResult is the reply to a name search.
type SearchResult struct {
	Status  SearchStatus
	Matches int

	Found   []*NodeBase // reduced hierarchy, ids remapped, [0] is the root
	Drawing *Drawing    // drawing of the matches, nil when suppressed
	Binary  []byte      // shape data of matches outside the main drawing

	hmsg, dmsg string
}

// HierarchyMessage returns "FOUND:RESET", "FOUND:NO",
// "FOUND:Too many <n>" or "FESCR:" with the reduced hierarchy.
func (r *SearchResult) HierarchyMessage() string { return r.hmsg }

// DrawMessage returns "FDRAW:" with the drawing of the matches, or an
// empty string.
func (r *SearchResult) DrawMessage() string { return r.dmsg }

// SearchVisibles finds visible nodes whose name starts with prefix. Only
// nodes with a bounding volume match. When withDrawing is set, the result
// carries a drawing of the matches; shape data is included only for matches
// outside the main drawing and only while the budgets allow it.
func (d *Description) SearchVisibles(prefix string, withDrawing bool) (*SearchResult, error) {
	res := &SearchResult{}

	if prefix == "" {
		res.Status = SearchReset
		res.hmsg = PrefixFound + "RESET"
		return res, nil
	}

	match := func(node *FlatNode) bool {
		return node.Vol > 0 && strings.HasPrefix(node.Name, prefix)
	}

	viscnt := make([]int, len(d.nodes))
	d.ScanVisible(func(node *FlatNode, _ []int, _ int) bool {
		if match(node) {
			res.Matches++
			viscnt[node.ID]++
		}
		return true
	})

	if res.Matches == 0 {
		res.Status = SearchNone
		res.hmsg = PrefixFound + "NO"
		return res, nil
	}
	if d.maxVisNodes > 0 && res.Matches > SearchMatchRatio*d.maxVisNodes {
		res.Status = SearchTooMany
		res.hmsg = PrefixFound + "Too many " + strconv.Itoa(res.Matches)
		return res, nil
	}
	res.Status = SearchFound

	sendRaw := withDrawing && d.searchFitsBudget(viscnt)

	foundMap := make([]int, len(d.nodes))
	for i := range foundMap {
		foundMap[i] = -1
	}
	root := &d.nodes[0]
	res.Found = []*NodeBase{{ID: 0, Name: root.Name, Vis: root.Vis, Color: root.Color}}
	foundMap[0] = 0

	var drawing *Drawing
	if withDrawing {
		drawing = d.newDrawing()
		d.cache.ResetTransmission()
	}

	d.ScanVisible(func(node *FlatNode, stack []int, _ int) bool {
		if !match(node) {
			return true
		}

		prnt := 0
		for _, k := range stack {
			chld := d.nodes[prnt].Children[k]
			if foundMap[chld] < 0 {
				src := &d.nodes[chld]
				foundMap[chld] = len(res.Found)
				res.Found = append(res.Found, &NodeBase{
					ID:    foundMap[chld],
					Name:  src.Name,
					Vis:   src.Vis,
					Color: src.Color,
				})
			}
			p := res.Found[foundMap[prnt]]
			if c := foundMap[chld]; !slices.Contains(p.Children, c) {
				p.Children = append(p.Children, c)
			}
			prnt = chld
		}

		if drawing == nil {
			return true
		}
		item := newItem(node, stack)
		item.Color = node.Color
		item.Opacity = node.Opacity
		if sendRaw && node.SortID >= d.drawIDCut {
			item.RI = d.cache.Reserve(d.shapeEntry(node.ID))
		}
		drawing.Visibles = append(drawing.Visibles, item)
		return true
	})

	var err error
	if res.hmsg, err = d.message(PrefixFoundHierarchy, res.Found); err != nil {
		return nil, err
	}

	if drawing != nil {
		d.collectNodes(drawing)
		binary, err := d.cache.PackPending()
		if err != nil {
			return nil, fmt.Errorf("geodesc: search %q: %w", prefix, err)
		}
		drawing.BinLen = len(binary)
		res.Drawing = drawing
		res.Binary = binary
		if res.dmsg, err = d.message(PrefixFoundDraw, drawing); err != nil {
			return nil, err
		}
	}

	d.log.Debug("search", "prefix", prefix, "matches", res.Matches, "binlen", len(res.Binary), "rawdata", sendRaw)
	return res, nil
}

// searchFitsBudget tessellates the matched nodes outside the main drawing
// in volume order and reports whether their faces and instances stay within
// the budgets.
func (d *Description) searchFitsBudget(viscnt []int) bool {
	totalFaces, totalNodes := 0, 0
	for rank, id := range d.sortMap {
		if rank < d.drawIDCut || viscnt[id] == 0 {
			continue
		}
		e := d.shapeEntry(id)
		if e == nil {
			continue
		}
		totalFaces += e.Faces * viscnt[id]
		if d.maxVisFaces > 0 && totalFaces > d.maxVisFaces {
			return false
		}
		totalNodes += viscnt[id]
		if d.maxVisNodes > 0 && totalNodes > d.maxVisNodes {
			return false
		}
	}
	return true
}
