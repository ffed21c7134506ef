package graph

// Children returns the nodes directly contained by id, in canonical order.
func (g *Graph) Children(id string) []Node {
	var out []Node
	for _, i := range g.out[id] {
		e := g.edges[i]
		if e.Kind.Containment() {
			out = append(out, g.nodes[g.index[e.Target]].clone())
		}
	}
	return out
}

// Parent returns the node holding the single inbound containment edge of
// id. The root and non-contained nodes have no parent.
func (g *Graph) Parent(id string) (Node, bool) {
	for _, i := range g.in[id] {
		e := g.edges[i]
		if e.Kind.Containment() {
			return g.nodes[g.index[e.Source]].clone(), true
		}
	}
	return Node{}, false
}

// Ancestors returns the containment path above id, root first. The node
// itself is not included.
func (g *Graph) Ancestors(id string) []Node {
	var path []Node
	seen := map[string]bool{id: true}
	for cur := id; ; {
		p, ok := g.Parent(cur)
		if !ok || seen[p.ID] {
			break
		}
		seen[p.ID] = true
		path = append(path, p)
		cur = p.ID
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Descendants walks containment edges breadth-first from id up to
// maxDepth hops (maxDepth < 0 means unbounded) and returns the nodes
// reached, excluding id itself.
func (g *Graph) Descendants(id string, maxDepth int) []Node {
	if _, ok := g.index[id]; !ok || maxDepth == 0 {
		return nil
	}

	visited := map[string]bool{id: true}
	queue := []string{id}
	var out []Node

	for depth := 0; (maxDepth < 0 || depth < maxDepth) && len(queue) > 0; depth++ {
		var next []string
		for _, cur := range queue {
			for _, i := range g.out[cur] {
				e := g.edges[i]
				if !e.Kind.Containment() || visited[e.Target] {
					continue
				}
				visited[e.Target] = true
				next = append(next, e.Target)
				out = append(out, g.nodes[g.index[e.Target]].clone())
			}
		}
		queue = next
	}
	return out
}

// Targets returns the nodes id points at through edges of kind k.
func (g *Graph) Targets(id string, k Kind) []Node {
	var out []Node
	for _, i := range g.out[id] {
		if e := g.edges[i]; e.Kind == k {
			out = append(out, g.nodes[g.index[e.Target]].clone())
		}
	}
	return out
}

// Sources returns the nodes pointing at id through edges of kind k.
func (g *Graph) Sources(id string, k Kind) []Node {
	var out []Node
	for _, i := range g.in[id] {
		if e := g.edges[i]; e.Kind == k {
			out = append(out, g.nodes[g.index[e.Source]].clone())
		}
	}
	return out
}
