package geom

import "fmt"

// DefaultNSegments is the tessellation density used when none is set.
const DefaultNSegments = 20

// Manager owns a complete geometry: the volumes by name and the top node.
type Manager struct {
	Top         *Node
	MaxVisNodes int // suggested number of nodes to draw, 0 = unset
	NSegments   int // segments for curved surfaces, 0 = default

	volumes map[string]*Volume
	order   []*Volume
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{
		volumes: make(map[string]*Volume),
	}
}

// AddVolume registers a volume. A later volume with the same name replaces
// the earlier one in the name index.
func (m *Manager) AddVolume(v *Volume) {
	if _, ok := m.volumes[v.Name]; !ok {
		m.order = append(m.order, v)
	} else {
		for i, old := range m.order {
			if old.Name == v.Name {
				m.order[i] = v
			}
		}
	}
	m.volumes[v.Name] = v
}

// GetVolume returns the volume with the given name, or nil.
func (m *Manager) GetVolume(name string) *Volume {
	return m.volumes[name]
}

// MustGetVolume returns the volume with the given name, or panics.
func (m *Manager) MustGetVolume(name string) *Volume {
	v := m.GetVolume(name)
	if v == nil {
		panic(fmt.Sprintf("geom: no volume named %q", name))
	}
	return v
}

// Volumes returns all registered volumes in registration order.
func (m *Manager) Volumes() []*Volume {
	return m.order
}

// SetTopVolume makes v the world volume. The top node carries the volume's
// name and an identity matrix.
func (m *Manager) SetTopVolume(v *Volume) {
	if v == nil {
		m.Top = nil
		return
	}
	if m.volumes[v.Name] == nil {
		m.AddVolume(v)
	}
	m.Top = &Node{Name: v.Name, Volume: v, Matrix: Identity()}
}

// Segments returns NSegments or the default.
func (m *Manager) Segments() int {
	if m == nil || m.NSegments <= 0 {
		return DefaultNSegments
	}
	return m.NSegments
}

// VolumeCount returns the number of registered volumes.
func (m *Manager) VolumeCount() int {
	return len(m.volumes)
}
