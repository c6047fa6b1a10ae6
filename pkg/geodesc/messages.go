package geodesc

import (
	"encoding/json"
	"fmt"
)

// Message prefixes understood by the client.
const (
	PrefixHierarchy      = "DESCR:"
	PrefixDraw           = "GDRAW:"
	PrefixAppend         = "APPND:"
	PrefixFound          = "FOUND:"
	PrefixFoundHierarchy = "FESCR:"
	PrefixFoundDraw      = "FDRAW:"
	PrefixShape          = "SHAPE:"
	PrefixModify         = "MODIF:"
	PrefixNodeInfo       = "NINFO:"

	// NoShape follows PrefixShape or PrefixAppend when nothing can be drawn.
	NoShape = "NO"
)

// Encoder turns a message body into structured text.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(v any) ([]byte, error)

// Encode calls f(v).
func (f EncoderFunc) Encode(v any) ([]byte, error) { return f(v) }

// JSONEncoder encodes message bodies as compact JSON.
var JSONEncoder Encoder = EncoderFunc(json.Marshal)

func (d *Description) message(prefix string, v any) (string, error) {
	data, err := d.enc.Encode(v)
	if err != nil {
		return "", fmt.Errorf("geodesc: encode %s message: %w", prefix, err)
	}
	return prefix + string(data), nil
}

// hierarchy is the body of the "DESCR:" message.
type hierarchy struct {
	DrawOpt string     `json:"drawopt"`
	NSegm   int        `json:"nsegm"`
	Nodes   []FlatNode `json:"nodes"`
}

// HierarchyMessage returns the "DESCR:" message describing every node.
func (d *Description) HierarchyMessage() (string, error) {
	nodes := d.nodes
	if nodes == nil {
		nodes = []FlatNode{}
	}
	return d.message(PrefixHierarchy, hierarchy{
		DrawOpt: d.drawOptions,
		NSegm:   d.NSegments(),
		Nodes:   nodes,
	})
}

// DrawingMessage returns prefix followed by the encoded drawing, or by
// NoShape when drawing is nil.
func (d *Description) DrawingMessage(prefix string, drawing *Drawing) (string, error) {
	if drawing == nil {
		return prefix + NoShape, nil
	}
	return d.message(prefix, drawing)
}

// NodeInfo describes one node reached by a path.
type NodeInfo struct {
	FullPath  string `json:"fullpath"`
	NodeType  string `json:"node_type"`
	NodeName  string `json:"node_name"`
	ShapeType string `json:"shape_type,omitempty"`
	ShapeName string `json:"shape_name,omitempty"`
	Faces     int    `json:"faces,omitempty"`
}

// MakeNodeInfo returns information about the node at path, or nil if the
// path does not resolve.
func (d *Description) MakeNodeInfo(path string) *NodeInfo {
	stack := d.MakeStackByPath(path)
	if stack == nil {
		return nil
	}
	id := d.FindNodeID(stack)
	if id < 0 {
		return nil
	}
	sn := d.src[id]
	info := &NodeInfo{
		FullPath: d.MakePathByStack(stack),
		NodeType: "Node",
		NodeName: sn.Name,
	}
	if sn.Division {
		info.NodeType = "DivisionNode"
	}
	if s := sn.Shape(); s != nil {
		info.ShapeType = s.TypeName()
		info.ShapeName = s.ShapeName()
		if e := d.shapeEntry(id); e != nil {
			info.Faces = e.Faces
		}
	}
	return info
}

// NodeInfoMessage returns the "NINFO:" message for path. An unresolved
// path yields "NINFO:null".
func (d *Description) NodeInfoMessage(path string) (string, error) {
	return d.message(PrefixNodeInfo, d.MakeNodeInfo(path))
}
