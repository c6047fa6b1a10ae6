// Package viewer answers the requests of a geometry viewer client. It owns
// one geodesc.Description and replies over an abstract text and binary
// channel.
package viewer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/chazu/geoview/pkg/geodesc"
	"github.com/chazu/geoview/pkg/geom"
	"github.com/chazu/geoview/pkg/kernel/sdfx"
	"github.com/chazu/geoview/pkg/shapecache"
	"github.com/chazu/geoview/pkg/tessellate"
)

// Client requests.
const (
	ReqConnReady  = "CONN_READY"
	ReqReload     = "RELOAD"
	ReqQuit       = "QUIT_ROOT"
	ReqSearch     = "SEARCH:"
	ReqGet        = "GET:"
	ReqVisibleOff = "SETVI0:"
	ReqVisibleOn  = "SETVI1:"
	ReqInfo       = "INFO:"
)

// ErrUnknownRequest is returned by Handle for requests it does not know.
var ErrUnknownRequest = errors.New("viewer: unknown request")

// Channel delivers replies to one client connection.
type Channel interface {
	Send(connID, text string) error
	SendBinary(connID string, data []byte) error
}

// Source loads the geometry to show. It is called on every reload.
type Source func() (*geom.Manager, error)

// Option configures a Viewer.
type Option func(*Viewer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Viewer) { v.log = l }
}

// WithDescription replaces the default description, which tessellates
// with the sdfx kernel.
func WithDescription(d *geodesc.Description) Option {
	return func(v *Viewer) { v.desc = d }
}

// WithSource sets the geometry source used by Reload.
func WithSource(src Source) Option {
	return func(v *Viewer) { v.source = src }
}

// LimitFunc resolves the node and face budgets from the node count the
// geometry suggests.
type LimitFunc func(suggested int) (nodes, faces int)

// WithLimits overrides the node and face budgets. A zero value is derived
// from the geometry.
func WithLimits(nodes, faces int) Option {
	return WithLimitFunc(func(suggested int) (int, int) {
		n, f := geodesc.DefaultLimits(suggested)
		if nodes > 0 {
			n, f = nodes, nodes*geodesc.FacesPerNode
		}
		if faces > 0 {
			f = faces
		}
		return n, f
	})
}

// WithLimitFunc sets how budgets are resolved for each new geometry.
func WithLimitFunc(fn LimitFunc) Option {
	return func(v *Viewer) { v.limits = fn }
}

// WithSegments overrides the segment count of the geometry.
func WithSegments(n int) Option {
	return func(v *Viewer) { v.nsegments = n }
}

// WithDrawOptions sets the draw options passed to the client.
func WithDrawOptions(opt string) Option {
	return func(v *Viewer) { v.drawOptions = opt }
}

// WithQuit sets the function run on a QUIT_ROOT request.
func WithQuit(fn func()) Option {
	return func(v *Viewer) { v.onQuit = fn }
}

// Viewer dispatches client requests. Handle may be called from several
// goroutines; requests are served one at a time.
type Viewer struct {
	mu     sync.Mutex
	log    *slog.Logger
	ch     Channel
	desc   *geodesc.Description
	mgr    *geom.Manager
	source Source
	onQuit func()

	limits      LimitFunc
	nsegments   int
	drawOptions string
}

// New creates a viewer replying over ch. No geometry is shown until
// SetGeometry or Reload is called.
func New(ch Channel, opts ...Option) *Viewer {
	v := &Viewer{ch: ch, log: slog.Default(), limits: geodesc.DefaultLimits}
	for _, opt := range opts {
		opt(v)
	}
	if v.desc == nil {
		cache := shapecache.New(tessellate.NewBuilder(sdfx.New()), shapecache.WithLogger(v.log))
		v.desc = geodesc.New(cache, geodesc.WithLogger(v.log))
	}
	return v
}

// Description returns the description the viewer serves.
func (v *Viewer) Description() *geodesc.Description { return v.desc }

// Geometry returns the geometry currently shown.
func (v *Viewer) Geometry() *geom.Manager {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mgr
}

// SetGeometry shows mgr.
func (v *Viewer) SetGeometry(mgr *geom.Manager) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setGeometry(mgr)
}

func (v *Viewer) setGeometry(mgr *geom.Manager) {
	v.mgr = mgr

	suggested := 0
	if mgr != nil {
		suggested = mgr.MaxVisNodes
	}
	nodes, faces := v.limits(suggested)
	v.desc.SetMaxVisNodes(nodes)
	v.desc.SetMaxVisFaces(faces)
	v.desc.SetNSegments(v.nsegments)
	v.desc.SetDrawOptions(v.drawOptions)
	v.desc.Build(mgr)

	v.log.Info("geometry set", "nodes", v.desc.NumNodes(), "max_nodes", nodes, "max_faces", faces)
}

// Reload reads the geometry again from the source, or rebuilds the current
// geometry when there is no source. A failing source keeps the current
// geometry.
func (v *Viewer) Reload() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reload()
}

func (v *Viewer) reload() error {
	if v.source == nil {
		v.setGeometry(v.mgr)
		return nil
	}
	mgr, err := v.source()
	if err != nil {
		return fmt.Errorf("viewer: reload: %w", err)
	}
	v.setGeometry(mgr)
	return nil
}

// SelectVolume restricts drawing to the branch of the named volume. An
// empty or unknown name selects the whole geometry.
func (v *Viewer) SelectVolume(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var vol *geom.Volume
	if v.mgr != nil && name != "" {
		vol = v.mgr.GetVolume(name)
	}
	v.desc.SelectVolume(vol)
}

// Handle serves one request from connection connID.
func (v *Viewer) Handle(connID, req string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.log.Debug("request", "conn", connID, "req", truncate(req, 80))

	switch {
	case req == ReqConnReady || req == ReqReload:
		if req == ReqReload {
			if err := v.reload(); err != nil {
				v.log.Error("reload failed", "err", err)
			}
		}
		return v.sendMain(connID)

	case req == ReqQuit:
		if v.onQuit != nil {
			v.onQuit()
		}
		return nil

	case strings.HasPrefix(req, ReqSearch):
		return v.search(connID, req[len(ReqSearch):])

	case strings.HasPrefix(req, ReqGet):
		return v.getShape(connID, req[len(ReqGet):])

	case strings.HasPrefix(req, ReqVisibleOff), strings.HasPrefix(req, ReqVisibleOn):
		return v.setVisibility(connID, req[len(ReqVisibleOn):], strings.HasPrefix(req, ReqVisibleOn))

	case strings.HasPrefix(req, ReqInfo):
		msg, err := v.desc.NodeInfoMessage(req[len(ReqInfo):])
		if err != nil {
			return err
		}
		return v.ch.Send(connID, msg)
	}

	return fmt.Errorf("%w %q", ErrUnknownRequest, truncate(req, 40))
}

// sendMain sends the hierarchy, the main drawing and its shape data.
func (v *Viewer) sendMain(connID string) error {
	descr, err := v.desc.HierarchyMessage()
	if err != nil {
		return err
	}
	if err := v.ch.Send(connID, descr); err != nil {
		return err
	}

	if !v.desc.HasDrawData() {
		if err := v.desc.CollectVisibles(); err != nil {
			if errors.Is(err, geodesc.ErrNoGeometry) {
				return nil
			}
			return err
		}
	}
	if err := v.ch.Send(connID, v.desc.DrawJSON()); err != nil {
		return err
	}
	return v.ch.SendBinary(connID, v.desc.DrawBinary())
}

func (v *Viewer) search(connID, query string) error {
	res, err := v.desc.SearchVisibles(query, true)
	if err != nil {
		return err
	}
	v.log.Debug("search", "query", query, "matches", res.Matches, "binlen", len(res.Binary))

	if err := v.ch.Send(connID, res.HierarchyMessage()); err != nil {
		return err
	}
	if msg := res.DrawMessage(); msg != "" {
		if err := v.ch.Send(connID, msg); err != nil {
			return err
		}
	}
	if len(res.Binary) > 0 {
		return v.ch.SendBinary(connID, res.Binary)
	}
	return nil
}

// getShape sends the drawing of the node addressed by a JSON stack.
func (v *Viewer) getShape(connID, arg string) error {
	nodeid := -1
	var stack []int
	if err := json.Unmarshal([]byte(arg), &stack); err != nil {
		v.log.Warn("malformed stack", "arg", truncate(arg, 40), "err", err)
	} else {
		nodeid = v.desc.FindNodeID(stack)
	}

	var (
		drawing *geodesc.Drawing
		binary  []byte
	)
	if nodeid >= 0 {
		var err error
		if drawing, binary, err = v.desc.ProduceDrawingFor(nodeid, false); err != nil {
			return err
		}
	}

	msg, err := v.desc.DrawingMessage(geodesc.PrefixShape, drawing)
	if err != nil {
		return err
	}
	if err := v.ch.Send(connID, msg); err != nil {
		return err
	}
	if len(binary) > 0 {
		return v.ch.SendBinary(connID, binary)
	}
	return nil
}

// setVisibility switches a node, and every node sharing its volume, on or
// off. Switching on a principal end node also sends the new instances.
func (v *Viewer) setVisibility(connID, arg string, selected bool) error {
	nodeid, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return fmt.Errorf("viewer: bad node id %q: %w", arg, err)
	}
	if !v.desc.ChangeNodeVisibility(nodeid, selected) {
		return nil
	}

	msg, err := v.desc.ProduceModifyReply(nodeid)
	if err != nil {
		return err
	}
	if err := v.ch.Send(connID, msg); err != nil {
		return err
	}

	if !selected || !v.desc.IsPrincipalEndNode(nodeid) {
		return nil
	}
	drawing, binary, err := v.desc.ProduceDrawingFor(nodeid, true)
	if err != nil {
		return err
	}
	if drawing == nil || len(binary) == 0 {
		return nil
	}
	msg, err = v.desc.DrawingMessage(geodesc.PrefixAppend, drawing)
	if err != nil {
		return err
	}
	if err := v.ch.Send(connID, msg); err != nil {
		return err
	}
	return v.ch.SendBinary(connID, binary)
}

// truncate cuts s to at most n bytes at a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
