package geodesc

import (
	"slices"
	"strings"
)

// PathSeparator separates node names in a path.
const PathSeparator = "/"

// FindNodeID returns the id of the node reached by stack, or -1 if the
// stack does not describe a path in the current flattening.
func (d *Description) FindNodeID(stack []int) int {
	if len(d.nodes) == 0 {
		return -1
	}
	nodeid := 0
	for _, k := range stack {
		node := &d.nodes[nodeid]
		if k < 0 || k >= len(node.Children) {
			return -1
		}
		nodeid = node.Children[k]
	}
	return nodeid
}

// MakeStackByIDs converts a chain of node ids starting at the root into a
// stack. It returns nil if the first id is not 0 or an id is not a child of
// its predecessor.
func (d *Description) MakeStackByIDs(ids []int) []int {
	if len(ids) == 0 || ids[0] != 0 || len(d.nodes) == 0 {
		d.log.Debug("stack by ids: wrong first id", "ids", ids)
		return nil
	}
	stack := []int{}
	node := &d.nodes[0]
	for _, id := range ids[1:] {
		k := slices.Index(node.Children, id)
		if k < 0 {
			d.log.Debug("stack by ids: not a child", "id", id, "parent", node.ID)
			return nil
		}
		stack = append(stack, k)
		node = &d.nodes[id]
	}
	return stack
}

// MakeIDsByStack returns the ids of every node along stack, starting with
// the root, or nil for an invalid stack.
func (d *Description) MakeIDsByStack(stack []int) []int {
	if len(d.nodes) == 0 {
		return nil
	}
	ids := []int{0}
	nodeid := 0
	for _, k := range stack {
		node := &d.nodes[nodeid]
		if k < 0 || k >= len(node.Children) {
			return nil
		}
		nodeid = node.Children[k]
		ids = append(ids, nodeid)
	}
	return ids
}

// MakePathByStack returns the names along stack joined by PathSeparator,
// starting with the root name, or "" for an invalid stack.
func (d *Description) MakePathByStack(stack []int) string {
	ids := d.MakeIDsByStack(stack)
	if ids == nil {
		return ""
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = d.nodes[id].Name
	}
	return strings.Join(names, PathSeparator)
}

// MakeStackByPath resolves a path made by MakePathByStack. Among siblings
// with the same name the first one wins. It returns nil if the path does
// not resolve.
func (d *Description) MakeStackByPath(path string) []int {
	if len(d.nodes) == 0 {
		return nil
	}
	names := strings.Split(strings.Trim(path, PathSeparator), PathSeparator)
	if names[0] != d.nodes[0].Name {
		return nil
	}
	stack := []int{}
	node := &d.nodes[0]
	for _, name := range names[1:] {
		k := -1
		for i, c := range node.Children {
			if d.nodes[c].Name == name {
				k = i
				break
			}
		}
		if k < 0 {
			return nil
		}
		stack = append(stack, k)
		node = &d.nodes[node.Children[k]]
	}
	return stack
}
