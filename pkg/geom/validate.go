package geom

import "fmt"

// ValidationSeverity indicates whether a finding prevents the geometry from
// being displayed or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // geometry unusable
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Volume   string // volume with the problem, empty if geometry-level
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Volume == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] volume %s: %s", e.Severity, e.Volume, e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs structural checks on the geometry. An empty slice means the
// geometry is valid. It never mutates the geometry.
func Validate(m *Manager) []ValidationError {
	if m == nil || m.Top == nil || m.Top.Volume == nil {
		return []ValidationError{{Message: "no top volume", Severity: SeverityError}}
	}
	var errs []ValidationError
	errs = append(errs, validatePlacements(m)...)
	errs = append(errs, validateShapes(m)...)
	return errs
}

// validatePlacements checks for volumes placed inside themselves using DFS
// with 3-color marking, and for nodes without a volume.
func validatePlacements(m *Manager) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*Volume]int)
	var errs []ValidationError

	var visit func(v *Volume)
	visit = func(v *Volume) {
		switch color[v] {
		case black:
			return
		case gray:
			errs = append(errs, ValidationError{
				Volume:   v.Name,
				Message:  "volume is placed inside itself",
				Severity: SeverityError,
			})
			return
		}
		color[v] = gray
		for _, n := range v.Nodes {
			if n.Volume == nil {
				errs = append(errs, ValidationError{
					Volume:   v.Name,
					Message:  fmt.Sprintf("node %q has no volume", n.Name),
					Severity: SeverityError,
				})
				continue
			}
			visit(n.Volume)
		}
		color[v] = black
	}

	visit(m.Top.Volume)
	return errs
}

// validateShapes checks shape dimensions of every volume reachable from the
// top or registered with the manager.
func validateShapes(m *Manager) []ValidationError {
	var errs []ValidationError
	seen := make(map[*Volume]bool)

	check := func(v *Volume) {
		if seen[v] {
			return
		}
		seen[v] = true
		if v.Shape == nil {
			if len(v.Nodes) == 0 {
				errs = append(errs, ValidationError{
					Volume:   v.Name,
					Message:  "volume has neither shape nor daughters",
					Severity: SeverityWarning,
				})
			}
			return
		}
		for _, msg := range shapeProblems(v.Shape) {
			errs = append(errs, ValidationError{Volume: v.Name, Message: msg, Severity: SeverityError})
		}
	}

	var walk func(v *Volume)
	walk = func(v *Volume) {
		if seen[v] {
			return
		}
		check(v)
		for _, n := range v.Nodes {
			if n.Volume != nil {
				walk(n.Volume)
			}
		}
	}
	walk(m.Top.Volume)
	for _, v := range m.Volumes() {
		check(v)
	}
	return errs
}

func shapeProblems(s Shape) []string {
	switch sh := s.(type) {
	case *BoxShape:
		if sh.DX <= 0 || sh.DY <= 0 || sh.DZ <= 0 {
			return []string{fmt.Sprintf("box dimensions must be positive, got %g x %g x %g", sh.DX, sh.DY, sh.DZ)}
		}
	case *TubeShape:
		if sh.RMax <= 0 || sh.DZ <= 0 {
			return []string{fmt.Sprintf("tube rmax and dz must be positive, got rmax=%g dz=%g", sh.RMax, sh.DZ)}
		}
		if sh.RMin < 0 || sh.RMin >= sh.RMax {
			return []string{fmt.Sprintf("tube rmin must be in [0, rmax), got %g", sh.RMin)}
		}
	case *CompositeShape:
		if sh.Left.Shape == nil || sh.Right.Shape == nil {
			return []string{"composite shape requires both operands"}
		}
		problems := shapeProblems(sh.Left.Shape)
		return append(problems, shapeProblems(sh.Right.Shape)...)
	}
	return nil
}
