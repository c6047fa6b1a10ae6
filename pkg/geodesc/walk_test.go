package geodesc

import (
	"testing"

	"github.com/chazu/geoview/pkg/geom"
)

// mixedGeometry has hidden leaves, hidden branches, a one-level volume and
// a volume placed twice.
//
//	world
//	├── A (visible) ── A1 (hidden) ── A2 (hidden)
//	├── B (hidden, daughters hidden) ── B1 (visible)
//	├── C (visible, one level) ── C1 (visible) ── C2 (visible)
//	├── S_1 (shared) ── leaf (visible)
//	└── S_2 (shared) ── leaf
func mixedGeometry() *geom.Manager {
	mgr := geom.New()
	world := box("world", 100)

	a, a1, a2 := box("A", 10), box("A1", 5), box("A2", 2)
	a1.Visible = false
	a2.Visible = false
	a.AddNode("A1", a1, nil)
	a1.AddNode("A2", a2, nil)

	b, b1 := box("B", 10), box("B1", 5)
	b.Visible = false
	b.VisDaughters = false
	b.AddNode("B1", b1, nil)

	c, c1, c2 := box("C", 10), box("C1", 5), box("C2", 2)
	c.VisDaughters = false
	c.VisOneLevel = true
	c.AddNode("C1", c1, nil)
	c1.AddNode("C2", c2, nil)

	s, leaf := box("S", 10), box("leaf", 1)
	s.AddNode("leaf", leaf, nil)

	world.AddNode("A", a, nil)
	world.AddNode("B", b, nil)
	world.AddNode("C", c, nil)
	world.AddNode("S_1", s, geom.Translation(0, 50, 0))
	world.AddNode("S_2", s, geom.Translation(0, -50, 0))
	mgr.SetTopVolume(world)
	return mgr
}

func idOf(t *testing.T, d *Description, name string) int {
	t.Helper()
	for id := 0; id < d.NumNodes(); id++ {
		if d.Node(id).Name == name {
			return id
		}
	}
	t.Fatalf("no node %q", name)
	return -1
}

func names(d *Description, vs []visit) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = d.Node(v.id).Name
	}
	return out
}

func TestWalkVisibility(t *testing.T) {
	d := build(t, mixedGeometry())
	got := names(d, record(d, UnlimitedDepth, true))
	want := []string{"A", "C", "C1", "S_1", "leaf", "S_2", "leaf"}
	if len(got) != len(want) {
		t.Fatalf("visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visited %v, want %v", got, want)
		}
	}
}

func TestWalkSequenceIDs(t *testing.T) {
	d := build(t, mixedGeometry())
	// Fully expanded tree in pre-order:
	// world0 A1 A1_2 A2_3 B4 B1_5 C6 C1_7 C2_8 S_1_9 leaf10 S_2_11 leaf12
	want := map[string][]int{"A": {1}, "C": {6}, "C1": {7}, "S_1": {9}, "leaf": {10, 12}, "S_2": {11}}
	got := map[string][]int{}
	for _, v := range record(d, UnlimitedDepth, true) {
		name := d.Node(v.id).Name
		got[name] = append(got[name], v.seqid)
	}
	for name, seqs := range want {
		if len(got[name]) != len(seqs) {
			t.Fatalf("%s seqids = %v, want %v", name, got[name], seqs)
		}
		for i := range seqs {
			if got[name][i] != seqs[i] {
				t.Errorf("%s seqids = %v, want %v", name, got[name], seqs)
			}
		}
	}
}

func TestWalkMemoMatchesFullWalk(t *testing.T) {
	d := build(t, mixedGeometry())

	plain := record(d, UnlimitedDepth, false)
	first := record(d, UnlimitedDepth, true)
	again := record(d, UnlimitedDepth, true)
	sameVisits(t, first, plain)
	sameVisits(t, again, plain)

	// The A1 subtree is empty and remembered as such.
	a1 := d.Node(idOf(t, d, "A1"))
	if a1.numVisChld != 0 || a1.memoGen != d.visGen {
		t.Fatalf("A1 memo not recorded: numVisChld=%d memoGen=%d visGen=%d", a1.numVisChld, a1.memoGen, d.visGen)
	}

	// Showing A2 must invalidate the memo.
	if !d.ChangeNodeVisibility(idOf(t, d, "A2"), true) {
		t.Fatal("ChangeNodeVisibility(A2) reported no change")
	}
	plain = record(d, UnlimitedDepth, false)
	sameVisits(t, record(d, UnlimitedDepth, true), plain)
	found := false
	for _, n := range names(d, plain) {
		found = found || n == "A2"
	}
	if !found {
		t.Errorf("A2 not visited after being shown: %v", names(d, plain))
	}
}

func TestWalkShallowMemoDoesNotHideDeepNodes(t *testing.T) {
	d := build(t, mixedGeometry())
	d.ChangeNodeVisibility(idOf(t, d, "A2"), true)

	// A depth-2 walk finds nothing below A and remembers that.
	for _, n := range names(d, record(d, 2, true)) {
		if n == "A2" {
			t.Fatal("depth-2 walk reached A2")
		}
	}
	if a := d.Node(idOf(t, d, "A")); a.numVisChld != 0 {
		t.Fatalf("A numVisChld = %d, want 0", a.numVisChld)
	}
	sameVisits(t, record(d, UnlimitedDepth, true), record(d, UnlimitedDepth, false))
}

func TestWalkTotals(t *testing.T) {
	d := build(t, mixedGeometry())

	accepted := 0
	total := d.ScanVisible(func(node *FlatNode, _ []int, _ int) bool {
		if node.Name == "leaf" || node.Name == "C" {
			accepted++
			return true
		}
		return false
	})
	if total != accepted || total != 3 {
		t.Errorf("walk returned %d, visitor accepted %d, want 3", total, accepted)
	}

	// Rejecting nodes must not make later walks skip them.
	sameVisits(t, record(d, UnlimitedDepth, true), record(d, UnlimitedDepth, false))
}

func TestWalkDepth(t *testing.T) {
	d := build(t, mixedGeometry())
	got := names(d, record(d, 1, true))
	want := "[A C S_1 S_2]"
	if s := sprint(got); s != want {
		t.Errorf("depth-1 walk = %s, want %s", s, want)
	}
}

func TestSelectVolume(t *testing.T) {
	mgr := mixedGeometry()
	d := build(t, mgr)

	d.SelectVolume(mgr.GetVolume("S"))
	if d.TopDrawNode() != idOf(t, d, "S_1") {
		t.Fatalf("TopDrawNode = %d, want S_1", d.TopDrawNode())
	}
	if got := sprint(names(d, record(d, UnlimitedDepth, true))); got != "[S_1 leaf]" {
		t.Errorf("walk = %s, want [S_1 leaf]", got)
	}

	d.SelectNode(mgr.Top.Volume.Nodes[2]) // C
	if got := sprint(names(d, record(d, UnlimitedDepth, true))); got != "[C C1]" {
		t.Errorf("walk = %s, want [C C1]", got)
	}

	d.SelectVolume(nil)
	if d.TopDrawNode() != 0 {
		t.Errorf("TopDrawNode = %d after reset", d.TopDrawNode())
	}
	sameVisits(t, record(d, UnlimitedDepth, true), record(d, UnlimitedDepth, false))
}

func TestMarkVisibleOnScreen(t *testing.T) {
	mgr := threeLevel()
	d := build(t, mgr)

	mgr.Top.Volume.Nodes[0].Volume.Nodes[0].OnScreen = true // B
	if n := d.MarkVisible(true); n != 1 {
		t.Fatalf("MarkVisible(true) = %d, want 1", n)
	}
	if d.Node(1).IsVisible() || !d.Node(2).IsVisible() {
		t.Errorf("flags = %v %v, want only B visible", d.Node(1).Vis, d.Node(2).Vis)
	}
}

func TestMarkVisibleFlags(t *testing.T) {
	mgr := geom.New()
	world := box("world", 100)
	none := box("none", 1)
	none.VisNone = true
	div := box("div", 1)
	lvl := box("lvl", 5)
	lvl.VisDaughters = false
	lvl.VisOneLevel = true
	lvl.AddNode("sub", box("sub", 1), nil)
	world.AddNode("none", none, nil)
	world.AddNode("div", div, nil).Division = true
	world.AddNode("lvl", lvl, nil)
	mgr.SetTopVolume(world)

	d := build(t, mgr)
	tests := []struct {
		name  string
		vis   VisFlags
		depth int
	}{
		{"world", VisChildren, UnlimitedDepth},
		{"none", VisOff, 0},
		{"div", VisOff, 0},
		{"lvl", VisThis | VisLevel1, 1},
		{"sub", VisThis, 0},
	}
	for _, tt := range tests {
		n := d.Node(idOf(t, d, tt.name))
		if n.Vis != tt.vis || n.VisDepth() != tt.depth {
			t.Errorf("%s: vis=%d depth=%d, want vis=%d depth=%d", tt.name, n.Vis, n.VisDepth(), tt.vis, tt.depth)
		}
	}
}
