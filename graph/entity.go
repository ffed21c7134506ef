package graph

// NodeType discriminates the kinds of node in a document graph.
type NodeType string

// Node type constants used during construction, export and storage.
const (
	TypeSection         NodeType = "Section"
	TypeChunk           NodeType = "Chunk"
	TypeListItem        NodeType = "ListItem"
	TypeFigure          NodeType = "Figure"
	TypeReferenceTarget NodeType = "ReferenceTarget"
	TypeURL             NodeType = "Url"
)

// NodeTypes lists every node type in canonical rank order.
var NodeTypes = []NodeType{TypeSection, TypeChunk, TypeListItem, TypeFigure, TypeReferenceTarget, TypeURL}

// Rank returns the position of t in NodeTypes, or len(NodeTypes) if unknown.
func (t NodeType) Rank() int {
	for i, nt := range NodeTypes {
		if nt == t {
			return i
		}
	}
	return len(NodeTypes)
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool { return t.Rank() < len(NodeTypes) }

// Kind is the relation carried by an edge.
type Kind string

// Edge kind constants.
const (
	KindHasSubsection Kind = "HAS_SUBSECTION"
	KindHasChunk      Kind = "HAS_CHUNK"
	KindHasItem       Kind = "HAS_ITEM"
	KindCaptions      Kind = "CAPTIONS"
	KindLinksTo       Kind = "LINKS_TO"
)

// Kinds lists every edge kind in canonical rank order.
var Kinds = []Kind{KindHasSubsection, KindHasChunk, KindHasItem, KindCaptions, KindLinksTo}

// Rank returns the position of k in Kinds, or len(Kinds) if unknown.
func (k Kind) Rank() int {
	for i, kk := range Kinds {
		if kk == k {
			return i
		}
	}
	return len(Kinds)
}

// Valid reports whether k is a known edge kind.
func (k Kind) Valid() bool { return k.Rank() < len(Kinds) }

// Containment reports whether k expresses "is part of".
func (k Kind) Containment() bool {
	return k == KindHasSubsection || k == KindHasChunk || k == KindHasItem
}

// Node is a typed vertex. Attributes hold scalar values only.
type Node struct {
	ID         string         `json:"id"`
	Type       NodeType       `json:"type"`
	Order      Order          `json:"source_order"`
	Attributes map[string]any `json:"attributes"`
}

// Attr returns the attribute stored under key, or nil.
func (n Node) Attr(key string) any {
	if n.Attributes == nil {
		return nil
	}
	return n.Attributes[key]
}

// Text returns the attribute under key formatted as a string.
func (n Node) Text(key string) string {
	return FormatValue(n.Attr(key))
}

func (n Node) clone() Node {
	c := n
	if n.Attributes != nil {
		c.Attributes = make(map[string]any, len(n.Attributes))
		for k, v := range n.Attributes {
			c.Attributes[k] = v
		}
	}
	return c
}

// Edge is a typed directed relation between two node ids.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   Kind   `json:"kind"`
}
