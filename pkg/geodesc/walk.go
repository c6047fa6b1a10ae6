package geodesc

// ScanFunc is called for every node a walk finds visible. The stack holds
// the child indices leading from the root to the node and is only valid
// during the call. seqid is the position of the node in the fully expanded
// tree. The return value tells whether the node counts towards the walk
// total.
type ScanFunc func(node *FlatNode, stack []int, seqid int) bool

// ScanVisible walks the whole visible tree.
func (d *Description) ScanVisible(fn ScanFunc) int {
	return d.Walk(UnlimitedDepth, fn)
}

// Walk visits, depth first and in child order, every node that is visible,
// displayable, inside the selected draw branch and no deeper than maxDepth
// below the root. It returns the number of visits for which fn returned
// true.
//
// Subtrees found to contain no such node are remembered and skipped by
// later walks until the visibility generation changes.
func (d *Description) Walk(maxDepth int, fn ScanFunc) int {
	if len(d.nodes) == 0 {
		return 0
	}
	w := &walker{d: d, fn: fn, memo: true, stack: make([]int, 0, 64)}
	res, _ := w.scan(0, maxDepth)
	return res
}

type walker struct {
	d      *Description
	fn     ScanFunc
	memo   bool
	stack  []int
	seqid  int
	inside int // >0 while inside the selected draw branch
}

// scan returns the number of accepted visits and the number of nodes that
// passed the visibility gate in the subtree of id.
func (w *walker) scan(id, lvl int) (res, passed int) {
	d := w.d
	node := &d.nodes[id]

	if id == d.topDrawNode {
		w.inside++
	}
	inside := w.inside > 0

	if node.IsVisible() && node.CanDisplay() && lvl >= 0 && inside {
		passed++
		if w.fn(node, w.stack, w.seqid) {
			res++
		}
	}
	w.seqid++

	lvl = min(lvl, node.VisDepth())

	if len(node.Children) > 0 && lvl > 0 && !w.skip(node, lvl, inside) {
		pos := len(w.stack)
		w.stack = append(w.stack, 0)
		chldPassed := 0
		for k, c := range node.Children {
			w.stack[pos] = k
			r, p := w.scan(c, lvl-1)
			res += r
			chldPassed += p
		}
		w.stack = w.stack[:pos]

		node.numVisChld = chldPassed
		if chldPassed == 0 {
			node.memoGen = d.visGen
			node.memoLvl = lvl
			node.memoInside = inside
		}
		passed += chldPassed
	} else {
		w.seqid += node.idShift
	}

	if id == d.topDrawNode {
		w.inside--
	}
	return res, passed
}

// skip reports whether a remembered empty subtree can be jumped over.
func (w *walker) skip(node *FlatNode, lvl int, inside bool) bool {
	if !w.memo || node.numVisChld != 0 || node.memoGen != w.d.visGen {
		return false
	}
	return lvl <= node.memoLvl && (!inside || node.memoInside)
}
