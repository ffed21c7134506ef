package link

import (
	"fmt"
	"log/slog"

	"github.com/brunobiangulo/docgraph/graph"
	"github.com/brunobiangulo/docgraph/identity"
	"github.com/brunobiangulo/docgraph/record"
)

// ChunkLocator finds the chunk containing a document position.
type ChunkLocator interface {
	Chunk(o graph.Order) (id string, ok bool)
}

// Stats counts link resolution outcomes.
type Stats struct {
	Links     int
	Anchors   int
	URLs      int
	Malformed int
}

// Resolve turns every link into one LINKS_TO edge from its containing
// chunk to a ReferenceTarget or Url node. Targets sharing a normalized
// key share one node. Malformed targets become flagged Url nodes that
// keep the raw target text as href; only their dedup key is trimmed.
func Resolve(links []record.Link, chunks ChunkLocator, reg *identity.Registry, asm *graph.Assembler) (Stats, error) {
	var st Stats
	for _, l := range links {
		source, ok := chunks.Chunk(l.ChunkOrder)
		if !ok {
			return st, &record.MalformedRecordError{
				Type:   record.TypeLink,
				Order:  l.Order.String(),
				Index:  l.Index,
				Field:  "chunk_order",
				Reason: fmt.Sprintf("no chunk at or before order %s", l.ChunkOrder),
			}
		}

		tgt := Classify(l.Target)
		var (
			typ   graph.NodeType
			key   string
			attrs map[string]any
		)
		switch tgt.Class {
		case Anchor:
			typ, key = graph.TypeReferenceTarget, identity.AnchorKey(tgt.Key)
			attrs = map[string]any{graph.AttrAnchorID: tgt.Key}
			st.Anchors++
		case URL:
			typ, key = graph.TypeURL, identity.URLKey(tgt.Key, false)
			attrs = map[string]any{graph.AttrHref: tgt.Key}
			st.URLs++
		default:
			typ, key = graph.TypeURL, identity.URLKey(tgt.Key, true)
			attrs = map[string]any{graph.AttrHref: tgt.Raw, graph.AttrMalformed: true}
			st.Malformed++
			slog.Warn("link: malformed target kept as url", "target", l.Target, "order", l.Order.String())
		}

		id, created, err := reg.Assign(typ, key)
		if err != nil {
			return st, fmt.Errorf("link: %w", err)
		}
		if created {
			if _, err := asm.AddNode(graph.Node{ID: id, Type: typ, Order: l.Order, Attributes: attrs}); err != nil {
				return st, fmt.Errorf("link: %w", err)
			}
		}
		asm.AddEdge(graph.Edge{Source: source, Target: id, Kind: graph.KindLinksTo})
		st.Links++
	}
	return st, nil
}
