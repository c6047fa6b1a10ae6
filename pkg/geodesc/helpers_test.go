package geodesc

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/chazu/geoview/pkg/geom"
	"github.com/chazu/geoview/pkg/kernel/sdfx"
	"github.com/chazu/geoview/pkg/shapecache"
	"github.com/chazu/geoview/pkg/tessellate"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newDescription returns an empty description with a fresh cache.
func newDescription() *Description {
	log := quietLogger()
	cache := shapecache.New(tessellate.NewBuilder(sdfx.New()), shapecache.WithLogger(log))
	return New(cache, WithLogger(log))
}

// build flattens mgr into a new description.
func build(t *testing.T, mgr *geom.Manager) *Description {
	t.Helper()
	d := newDescription()
	d.Build(mgr)
	return d
}

func box(name string, half float64) *geom.Volume {
	return geom.NewVolume(name, &geom.BoxShape{Name: name, DX: half, DY: half, DZ: half})
}

// threeLevel returns world -> A -> B, all boxes.
func threeLevel() *geom.Manager {
	mgr := geom.New()
	world := box("world", 100)
	a := box("A", 10)
	b := box("B", 5)
	world.AddNode("A", a, nil)
	a.AddNode("B", b, geom.Translation(1, 2, 3))
	mgr.SetTopVolume(world)
	return mgr
}

// visit records one walker callback.
type visit struct {
	id    int
	stack string
	seqid int
}

func (v visit) String() string { return fmt.Sprintf("%d%s@%d", v.id, v.stack, v.seqid) }

// record walks d, optionally without the empty-subtree memo, and returns
// every visit in order.
func record(d *Description, maxDepth int, memo bool) []visit {
	var out []visit
	fn := func(node *FlatNode, stack []int, seqid int) bool {
		out = append(out, visit{id: node.ID, stack: fmt.Sprint(stack), seqid: seqid})
		return true
	}
	if len(d.nodes) == 0 {
		return nil
	}
	w := &walker{d: d, fn: fn, memo: memo}
	w.scan(0, maxDepth)
	return out
}

func sameVisits(t *testing.T, got, want []visit) {
	t.Helper()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("visits differ:\n got  %v\n want %v", got, want)
	}
}

func sprint(v any) string { return fmt.Sprint(v) }
