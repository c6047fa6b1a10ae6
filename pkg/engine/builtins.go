package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/geoview/pkg/geom"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing geometry values through the environment
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpColor struct {
	color *geom.Color
}

func (c *sexpColor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(rgb %d %d %d %g)", c.color.R, c.color.G, c.color.B, c.color.A)
}
func (c *sexpColor) Type() *zygo.RegisteredType { return nil }

type sexpMaterial struct {
	mat *geom.Material
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material %q)", m.mat.Name)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpShape carries a shape pointer. Shape identity is preserved, so a
// shape bound with def and used by two volumes is one cache entry.
type sexpShape struct {
	shape geom.Shape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", strings.ToLower(s.shape.TypeName()), s.shape.ShapeName())
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

type sexpVolume struct {
	vol *geom.Volume
}

func (v *sexpVolume) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(volume %q)", v.vol.Name)
}
func (v *sexpVolume) Type() *zygo.RegisteredType { return nil }

type sexpNode struct {
	node *geom.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node %q)", n.node.Name)
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds a parsed mixed positional and keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float returns the keyword value as a number, or def when absent.
func (a kwArgs) float(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// bool returns the keyword value as a boolean, or def when absent.
func (a kwArgs) bool(key string, def bool) (bool, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	b, err := toBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// vec returns the keyword value as a vector and whether it was given.
func (a kwArgs) vec(key string) (geom.Vec3, bool, error) {
	v, ok := a.kw[key]
	if !ok {
		return geom.Vec3{}, false, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return geom.Vec3{}, false, fmt.Errorf("%s: %w", key, err)
	}
	return vec, true, nil
}

// name returns the :name keyword, or "".
func (a kwArgs) name() (string, error) {
	v, ok := a.kw["name"]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("name: %w", err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == float64(int(v.Val)) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts both a preprocessed keyword and a plain string.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toBool accepts true and false. nil, including a trailing keyword with no
// value, is false.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toColor(s zygo.Sexp) (*geom.Color, error) {
	if c, ok := s.(*sexpColor); ok {
		return c.color, nil
	}
	return nil, fmt.Errorf("expected rgb color, got %T (%s)", s, s.SexpString(nil))
}

func toShape(s zygo.Sexp) (geom.Shape, error) {
	if sh, ok := s.(*sexpShape); ok {
		return sh.shape, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toVolume accepts a volume value or the name of a registered volume.
func toVolume(m *geom.Manager, s zygo.Sexp) (*geom.Volume, error) {
	switch v := s.(type) {
	case *sexpVolume:
		return v.vol, nil
	case *zygo.SexpStr:
		if vol := m.GetVolume(v.S); vol != nil {
			return vol, nil
		}
		return nil, fmt.Errorf("no volume named %q", v.S)
	}
	return nil, fmt.Errorf("expected volume, got %T (%s)", s, s.SexpString(nil))
}

func toBoolOp(s zygo.Sexp) (geom.BoolOp, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected :union, :subtraction or :intersection: %w", err)
	}
	switch name {
	case "union":
		return geom.OpUnion, nil
	case "subtraction", "difference":
		return geom.OpSubtraction, nil
	case "intersection":
		return geom.OpIntersection, nil
	}
	return 0, fmt.Errorf("invalid boolean operation %q", name)
}

func toByte(s zygo.Sexp) (uint8, error) {
	n, err := toInt(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("color component %d out of range [0,255]", n)
	}
	return uint8(n), nil
}

// ---------------------------------------------------------------------------
// Placement matrices
// ---------------------------------------------------------------------------

// placement builds the node matrix from :at, :rotate and :scale. A single
// component keeps its specific kind; any combination is General.
func placement(a kwArgs) (*geom.Matrix, error) {
	at, hasAt, err := a.vec("at")
	if err != nil {
		return nil, err
	}
	rot, hasRot, err := a.vec("rotate")
	if err != nil {
		return nil, err
	}
	scale, hasScale, err := a.vec("scale")
	if err != nil {
		return nil, err
	}

	given := 0
	for _, b := range []bool{hasAt, hasRot, hasScale} {
		if b {
			given++
		}
	}
	switch {
	case given == 0:
		return nil, nil
	case given > 1:
		if !hasScale {
			scale = geom.Vec3{X: 1, Y: 1, Z: 1}
		}
		return geom.General(
			geom.EulerToRotation(rot.X, rot.Y, rot.Z),
			[3]float64{at.X, at.Y, at.Z},
			[3]float64{scale.X, scale.Y, scale.Z},
		), nil
	case hasAt:
		return geom.Translation(at.X, at.Y, at.Z), nil
	case hasRot:
		return geom.RotationEuler(rot.X, rot.Y, rot.Z), nil
	default:
		return geom.Scaling(scale.X, scale.Y, scale.Z), nil
	}
}

// copyName returns the default node name for the next placement of child
// inside parent: the child name and a 1-based copy number.
func copyName(parent, child *geom.Volume) string {
	n := 1
	for _, node := range parent.Nodes {
		if node.Volume == child {
			n++
		}
	}
	return fmt.Sprintf("%s_%d", child.Name, n)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the geometry builtins into env. They populate m
// while the program runs. Source must be preprocessed first so :keyword
// tokens arrive as recognizable strings.
func registerBuiltins(env *zygo.Zlisp, m *geom.Manager) {

	// (vec3 x y z)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3: expected 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: argument %d: %w", i+1, err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: geom.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// (rgb r g b [alpha])
	env.AddFunction("rgb", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 && len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("rgb: expected 3 or 4 arguments, got %d", len(args))
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			c, err := toByte(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rgb: %w", err)
			}
			rgb[i] = c
		}
		color := geom.RGB(rgb[0], rgb[1], rgb[2])
		if len(args) == 4 {
			a, err := toFloat64(args[3])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rgb: alpha: %w", err)
			}
			if a < 0 || a > 1 {
				return zygo.SexpNull, fmt.Errorf("rgb: alpha %g out of range [0,1]", a)
			}
			color.A = a
		}
		return &sexpColor{color: color}, nil
	})

	// (material "steel" :color (rgb 120 120 140) :transparency 40)
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		mat := &geom.Material{}
		if len(pa.positional) > 0 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: name: %w", err)
			}
			mat.Name = s
		}
		if v, ok := pa.kw["color"]; ok {
			c, err := toColor(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: color: %w", err)
			}
			mat.Color = c
		}
		if v, ok := pa.kw["transparency"]; ok {
			t, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: transparency: %w", err)
			}
			if t < 0 || t > 100 {
				return zygo.SexpNull, fmt.Errorf("material: transparency %d out of range [0,100]", t)
			}
			mat.Transparency = t
		}
		return &sexpMaterial{mat: mat}, nil
	})

	// (box :dx 10 :dy 20 :dz 5 :name "slab"), half lengths
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		b := &geom.BoxShape{}
		var err error
		if b.DX, err = pa.float("dx", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		if b.DY, err = pa.float("dy", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		if b.DZ, err = pa.float("dz", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		if b.Name, err = pa.name(); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return &sexpShape{shape: b}, nil
	})

	// (tube :rmin 2 :rmax 5 :dz 10)
	env.AddFunction("tube", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		t := &geom.TubeShape{}
		var err error
		if t.RMin, err = pa.float("rmin", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("tube: %w", err)
		}
		if t.RMax, err = pa.float("rmax", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("tube: %w", err)
		}
		if t.DZ, err = pa.float("dz", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("tube: %w", err)
		}
		if t.Name, err = pa.name(); err != nil {
			return zygo.SexpNull, fmt.Errorf("tube: %w", err)
		}
		return &sexpShape{shape: t}, nil
	})

	// (composite :op :subtraction :left a :right b :right-at (vec3 ...))
	env.AddFunction("composite", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		c := &geom.CompositeShape{}
		if v, ok := pa.kw["op"]; ok {
			op, err := toBoolOp(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("composite: op: %w", err)
			}
			c.Op = op
		}
		for _, side := range []struct {
			key string
			op  *geom.Operand
		}{{"left", &c.Left}, {"right", &c.Right}} {
			v, ok := pa.kw[side.key]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("composite: missing :%s", side.key)
			}
			s, err := toShape(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("composite: %s: %w", side.key, err)
			}
			side.op.Shape = s
			if side.op.At, _, err = pa.vec(side.key + "-at"); err != nil {
				return zygo.SexpNull, fmt.Errorf("composite: %w", err)
			}
			if side.op.Rotate, _, err = pa.vec(side.key + "-rotate"); err != nil {
				return zygo.SexpNull, fmt.Errorf("composite: %w", err)
			}
		}
		var err error
		if c.Name, err = pa.name(); err != nil {
			return zygo.SexpNull, fmt.Errorf("composite: %w", err)
		}
		return &sexpShape{shape: c}, nil
	})

	// (volume "plate" shape :material m :color c :visible true ...)
	env.AddFunction("volume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) == 0 {
			return zygo.SexpNull, fmt.Errorf("volume: requires a name")
		}
		volName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("volume: name: %w", err)
		}
		if volName == "" {
			return zygo.SexpNull, fmt.Errorf("volume: name must not be empty")
		}
		if m.GetVolume(volName) != nil {
			return zygo.SexpNull, fmt.Errorf("volume: %q already defined", volName)
		}

		var shape geom.Shape
		if len(pa.positional) > 1 {
			if shape, err = toShape(pa.positional[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("volume %q: %w", volName, err)
			}
		}
		if v, ok := pa.kw["shape"]; ok {
			if shape, err = toShape(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("volume %q: shape: %w", volName, err)
			}
		}
		vol := geom.NewVolume(volName, shape)

		if v, ok := pa.kw["material"]; ok {
			mat, ok := v.(*sexpMaterial)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("volume %q: material: expected material, got %T", volName, v)
			}
			vol.Material = mat.mat
		}
		if v, ok := pa.kw["color"]; ok {
			if vol.Color, err = toColor(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("volume %q: color: %w", volName, err)
			}
		}
		flags := []struct {
			key string
			dst *bool
		}{
			{"visible", &vol.Visible},
			{"daughters", &vol.VisDaughters},
			{"one-level", &vol.VisOneLevel},
			{"vis-none", &vol.VisNone},
		}
		for _, f := range flags {
			if *f.dst, err = pa.bool(f.key, *f.dst); err != nil {
				return zygo.SexpNull, fmt.Errorf("volume %q: %w", volName, err)
			}
		}

		m.AddVolume(vol)
		return &sexpVolume{vol: vol}, nil
	})

	// (place parent child :name "n" :at (vec3 ...) :rotate (vec3 ...) :scale (vec3 ...))
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("place: expected parent and child, got %d positional arguments", len(pa.positional))
		}
		parent, err := toVolume(m, pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: parent: %w", err)
		}
		child, err := toVolume(m, pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: child: %w", err)
		}
		mat, err := placement(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		nodeName, err := pa.name()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		if nodeName == "" {
			nodeName = copyName(parent, child)
		}

		node := parent.AddNode(nodeName, child, mat)
		if node.OnScreen, err = pa.bool("on-screen", false); err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		if node.Division, err = pa.bool("division", false); err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		return &sexpNode{node: node}, nil
	})

	// (top world)
	env.AddFunction("top", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("top: expected 1 argument, got %d", len(args))
		}
		vol, err := toVolume(m, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("top: %w", err)
		}
		m.SetTopVolume(vol)
		return &sexpVolume{vol: vol}, nil
	})

	// (find-volume "plate")
	env.AddFunction("find_volume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("find-volume: expected 1 argument, got %d", len(args))
		}
		vol, err := toVolume(m, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("find-volume: %w", err)
		}
		return &sexpVolume{vol: vol}, nil
	})

	// (nsegments 40)
	env.AddFunction("nsegments", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		n, err := positiveIntArg("nsegments", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		m.NSegments = n
		return &zygo.SexpInt{Val: int64(n)}, nil
	})

	// (max-vis-nodes 2000)
	env.AddFunction("max_vis_nodes", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		n, err := positiveIntArg("max-vis-nodes", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		m.MaxVisNodes = n
		return &zygo.SexpInt{Val: int64(n)}, nil
	})
}

func positiveIntArg(fn string, args []zygo.Sexp) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s: expected 1 argument, got %d", fn, len(args))
	}
	n, err := toInt(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fn, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", fn, n)
	}
	return n, nil
}
