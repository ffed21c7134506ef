package graph

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/zeebo/blake3"
)

// Assembler collects typed nodes and edges for one document and turns
// them into an immutable Graph. It is not safe for concurrent use.
type Assembler struct {
	nodes  map[string]Node
	edges  []Edge
	seen   map[Edge]bool
	merged int
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		nodes: make(map[string]Node),
		seen:  make(map[Edge]bool),
	}
}

// AddNode adds n. A node whose id is already present with the same type
// is merged into the existing one (the first attributes win) and
// AddNode reports false. The same id with a different type is an
// IdentityCollisionError.
func (a *Assembler) AddNode(n Node) (bool, error) {
	if !n.Type.Valid() {
		return false, fmt.Errorf("graph.AddNode: node %q has unknown type %q", n.ID, n.Type)
	}
	if existing, ok := a.nodes[n.ID]; ok {
		if existing.Type != n.Type {
			return false, &IdentityCollisionError{ID: n.ID, ExistingType: existing.Type, IncomingType: n.Type}
		}
		a.merged++
		return false, nil
	}
	a.nodes[n.ID] = n.clone()
	return true, nil
}

// AddEdge records e. Duplicate (source, target, kind) triples collapse
// into one edge; AddEdge reports whether e was new. Endpoints are
// checked by Build, not here.
func (a *Assembler) AddEdge(e Edge) bool {
	if a.seen[e] {
		return false
	}
	a.seen[e] = true
	a.edges = append(a.edges, e)
	return true
}

// Build validates referential integrity and returns the graph in
// canonical order. Nothing is returned on failure.
func (a *Assembler) Build() (*Graph, error) {
	parents := make(map[string]string)
	for _, e := range a.edges {
		src, ok := a.nodes[e.Source]
		if !ok {
			return nil, &DanglingEdgeError{Edge: e, MissingID: e.Source}
		}
		dst, ok := a.nodes[e.Target]
		if !ok {
			return nil, &DanglingEdgeError{Edge: e, MissingID: e.Target}
		}
		if !e.Kind.Permits(src.Type, dst.Type) {
			return nil, fmt.Errorf("%w: %s -[%s]-> %s", ErrInvalidEdge, src.Type, e.Kind, dst.Type)
		}
		if e.Kind == KindHasSubsection {
			pl, pok := level(src)
			cl, cok := level(dst)
			if pok && cok && cl <= pl {
				return nil, fmt.Errorf("%w: section %q (level %d) under %q (level %d)", ErrInvalidEdge, e.Target, cl, e.Source, pl)
			}
		}
		if e.Kind.Containment() {
			if p, ok := parents[e.Target]; ok {
				return nil, fmt.Errorf("%w: %q contained by %q and %q", ErrMultipleParents, e.Target, p, e.Source)
			}
			parents[e.Target] = e.Source
		}
	}

	nodes := make([]Node, 0, len(a.nodes))
	for _, n := range a.nodes {
		nodes = append(nodes, n.clone())
	}
	sort.Slice(nodes, func(i, j int) bool {
		if c := nodes[i].Order.Compare(nodes[j].Order); c != 0 {
			return c < 0
		}
		if ri, rj := nodes[i].Type.Rank(), nodes[j].Type.Rank(); ri != rj {
			return ri < rj
		}
		return nodes[i].ID < nodes[j].ID
	})

	g := newGraph(nodes, append([]Edge(nil), a.edges...))
	sort.Slice(g.edges, func(i, j int) bool {
		ei, ej := g.edges[i], g.edges[j]
		if si, sj := g.index[ei.Source], g.index[ej.Source]; si != sj {
			return si < sj
		}
		if ki, kj := ei.Kind.Rank(), ej.Kind.Rank(); ki != kj {
			return ki < kj
		}
		return g.index[ei.Target] < g.index[ej.Target]
	})
	g.link()

	slog.Debug("graph: assembled", "nodes", len(g.nodes), "edges", len(g.edges), "merged", a.merged)
	return g, nil
}

// level reads a Section's level attribute, which is an int when built
// and a json.Number when loaded back from storage.
func level(n Node) (int, bool) {
	switch v := n.Attr(AttrLevel).(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		return int(i), err == nil
	}
	return 0, false
}

// Graph is an assembled, immutable document graph. Accessors return
// copies.
type Graph struct {
	nodes []Node
	edges []Edge
	index map[string]int
	out   map[string][]int
	in    map[string][]int
}

func newGraph(nodes []Node, edges []Edge) *Graph {
	g := &Graph{nodes: nodes, edges: edges, index: make(map[string]int, len(nodes))}
	for i, n := range nodes {
		g.index[n.ID] = i
	}
	return g
}

func (g *Graph) link() {
	g.out = make(map[string][]int)
	g.in = make(map[string][]int)
	for i, e := range g.edges {
		g.out[e.Source] = append(g.out[e.Source], i)
		g.in[e.Target] = append(g.in[e.Target], i)
	}
}

// Len returns the number of nodes and edges.
func (g *Graph) Len() (nodes, edges int) { return len(g.nodes), len(g.edges) }

// Nodes returns all nodes in canonical order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.clone()
	}
	return out
}

// Edges returns all edges in canonical order.
func (g *Graph) Edges() []Edge { return append([]Edge(nil), g.edges...) }

// Node looks up a node by id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i].clone(), true
}

// NodesOfType returns the nodes of type t in canonical order.
func (g *Graph) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Type == t {
			out = append(out, n.clone())
		}
	}
	return out
}

// EdgesOfKind returns the edges of kind k in canonical order.
func (g *Graph) EdgesOfKind(k Kind) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Root returns the synthetic root Section.
func (g *Graph) Root() (Node, bool) {
	if len(g.nodes) == 0 {
		return Node{}, false
	}
	n := g.nodes[0]
	if n.Type != TypeSection || n.Order != RootOrder {
		return Node{}, false
	}
	return n.clone(), true
}

// Fingerprint returns a hex blake3 digest of the canonical node and edge
// encoding. Equal graphs have equal fingerprints.
func (g *Graph) Fingerprint() string {
	h := blake3.New()
	for _, n := range g.nodes {
		fmt.Fprintf(h, "N\x00%s\x00%s\x00%s", n.ID, n.Type, n.Order.Key())
		for _, c := range Columns(n.Type) {
			if v, ok := n.Attributes[c]; ok {
				fmt.Fprintf(h, "\x00%s=%s", c, FormatValue(v))
			}
		}
		h.Write([]byte{'\n'})
	}
	for _, e := range g.edges {
		fmt.Fprintf(h, "E\x00%s\x00%s\x00%s\n", e.Source, e.Target, e.Kind)
	}
	return hex.EncodeToString(h.Sum(nil))
}
