// Package attach places chunks, list items and figures under the section
// tree and emits the containment and caption edges.
package attach

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/brunobiangulo/docgraph/graph"
	"github.com/brunobiangulo/docgraph/hierarchy"
	"github.com/brunobiangulo/docgraph/identity"
	"github.com/brunobiangulo/docgraph/record"
)

// Options configures attachment.
type Options struct {
	// RootTitle is the title given to the synthetic root section.
	RootTitle string
}

type chunkRef struct {
	order graph.Order
	id    string
}

// Index locates the nodes created by Resolve for later stages.
type Index struct {
	sections []string // node id per tree arena index
	orders   map[graph.Order]string
	chunks   []chunkRef
}

// Root returns the id of the synthetic root section.
func (ix *Index) Root() string { return ix.sections[hierarchy.RootIndex] }

// Section returns the node id of tree arena index i.
func (ix *Index) Section(i int) string { return ix.sections[i] }

// SectionAt returns the section whose heading sits exactly at o.
func (ix *Index) SectionAt(o graph.Order) (string, bool) {
	id, ok := ix.orders[o]
	return id, ok
}

// ChunkAt returns the chunk sitting exactly at o.
func (ix *Index) ChunkAt(o graph.Order) (string, bool) {
	i := sort.Search(len(ix.chunks), func(i int) bool { return ix.chunks[i].order.Compare(o) >= 0 })
	if i < len(ix.chunks) && ix.chunks[i].order == o {
		return ix.chunks[i].id, true
	}
	return "", false
}

// Chunk returns the chunk at o, or failing that the last chunk before o.
func (ix *Index) Chunk(o graph.Order) (string, bool) {
	i := sort.Search(len(ix.chunks), func(i int) bool { return ix.chunks[i].order.Compare(o) > 0 })
	if i == 0 {
		return "", false
	}
	return ix.chunks[i-1].id, true
}

// cursor walks the tree's sections in document order alongside an
// order-sorted entity stream. Sections[1:] are in document order.
type cursor struct {
	secs []hierarchy.Section
	pos  int
}

// enclosing advances past every heading at or before o and returns the
// arena index of the most recent one, or the root. A heading and an
// entity at the same order resolve heading first.
func (c *cursor) enclosing(o graph.Order) int {
	for c.pos+1 < len(c.secs) && c.secs[c.pos+1].Order.Compare(o) <= 0 {
		c.pos++
	}
	return c.pos
}

// Resolve emits Section, Chunk, ListItem and Figure nodes with their
// HAS_SUBSECTION, HAS_CHUNK, HAS_ITEM and CAPTIONS edges. A node that
// the registry deduplicates keeps the edges of its first occurrence
// only, so no node gains a second parent.
func Resolve(tree *hierarchy.Tree, set *record.Set, reg *identity.Registry, asm *graph.Assembler, opts Options) (*Index, error) {
	ix := &Index{
		sections: make([]string, len(tree.Sections)),
		orders:   make(map[graph.Order]string, len(tree.Sections)),
	}

	if err := resolveSections(tree, reg, asm, ix, opts); err != nil {
		return nil, err
	}

	cur := &cursor{secs: tree.Sections}
	demoted := make(map[string]bool)
	for _, c := range set.Chunks {
		encl := cur.enclosing(c.Order)
		id, created, err := reg.Assign(graph.TypeChunk, identity.OrderKey(c.Order, graph.TypeChunk))
		if err != nil {
			return nil, fmt.Errorf("attach: chunk %s: %w", c.Order, err)
		}
		if !created {
			if c.Demoted || demoted[id] {
				slog.Warn("attach: demoted heading and chunk share an order, keeping the first",
					"order", c.Order.String(), "dropped", c.Text, "demoted", c.Demoted)
			} else {
				slog.Debug("attach: duplicate chunk merged", "id", id, "order", c.Order.String())
			}
			continue
		}
		attrs := map[string]any{
			graph.AttrText: c.Text,
			graph.AttrPage: c.Page,
		}
		if c.Demoted {
			attrs[graph.AttrDemoted] = true
			demoted[id] = true
		}
		if err := addNode(asm, id, graph.TypeChunk, c.Order, attrs); err != nil {
			return nil, err
		}
		asm.AddEdge(graph.Edge{Source: ix.sections[encl], Target: id, Kind: graph.KindHasChunk})
		ix.chunks = append(ix.chunks, chunkRef{order: c.Order, id: id})
	}

	for _, li := range set.ListItems {
		owner, ok := ix.Chunk(li.ChunkOrder)
		if !ok {
			return nil, &record.MalformedRecordError{
				Type:   record.TypeListItem,
				Order:  li.Order.String(),
				Index:  li.Index,
				Field:  "chunk_order",
				Reason: fmt.Sprintf("no chunk at or before order %s", li.ChunkOrder),
			}
		}
		id, created, err := reg.Assign(graph.TypeListItem, identity.OrderKey(li.Order, graph.TypeListItem))
		if err != nil {
			return nil, fmt.Errorf("attach: list item %s: %w", li.Order, err)
		}
		if !created {
			continue
		}
		if err := addNode(asm, id, graph.TypeListItem, li.Order, map[string]any{
			graph.AttrText:    li.Text,
			graph.AttrOrdinal: li.Ordinal,
		}); err != nil {
			return nil, err
		}
		asm.AddEdge(graph.Edge{Source: owner, Target: id, Kind: graph.KindHasItem})
	}

	figCur := &cursor{secs: tree.Sections}
	for _, f := range set.Figures {
		encl := figCur.enclosing(f.Order)
		source, err := captionSource(ix, f, encl)
		if err != nil {
			return nil, err
		}
		id, created, err := reg.Assign(graph.TypeFigure, identity.FigureKey(f.Page, f.ImageRef, f.BBox))
		if err != nil {
			return nil, fmt.Errorf("attach: figure %s: %w", f.Order, err)
		}
		if !created {
			slog.Debug("attach: duplicate figure merged", "id", id, "order", f.Order.String())
			continue
		}
		attrs := map[string]any{
			graph.AttrImageRef: f.ImageRef,
			graph.AttrPage:     f.Page,
			graph.AttrBBox:     identity.BBox(f.BBox),
		}
		if f.CaptionText != "" {
			attrs[graph.AttrCaptionText] = f.CaptionText
		}
		if f.FigureNumber != "" {
			attrs[graph.AttrFigureNumber] = f.FigureNumber
		}
		if err := addNode(asm, id, graph.TypeFigure, f.Order, attrs); err != nil {
			return nil, err
		}
		asm.AddEdge(graph.Edge{Source: source, Target: id, Kind: graph.KindCaptions})
	}

	slog.Debug("attach: resolved",
		"sections", tree.Len(),
		"chunks", len(ix.chunks),
		"list_items", len(set.ListItems),
		"figures", len(set.Figures))
	return ix, nil
}

func resolveSections(tree *hierarchy.Tree, reg *identity.Registry, asm *graph.Assembler, ix *Index, opts Options) error {
	for i, s := range tree.Sections {
		key := identity.RootKey
		attrs := map[string]any{graph.AttrTitle: opts.RootTitle, graph.AttrLevel: 0}
		if i != hierarchy.RootIndex {
			key = identity.OrderKey(s.Order, graph.TypeSection)
			attrs = map[string]any{
				graph.AttrTitle:    s.Title,
				graph.AttrLevel:    s.Level,
				graph.AttrFontSize: s.FontSize,
				graph.AttrPage:     s.Page,
			}
		}
		id, created, err := reg.Assign(graph.TypeSection, key)
		if err != nil {
			return fmt.Errorf("attach: section %q: %w", s.Title, err)
		}
		ix.sections[i] = id
		if !created {
			continue
		}
		if err := addNode(asm, id, graph.TypeSection, s.Order, attrs); err != nil {
			return err
		}
		if i != hierarchy.RootIndex {
			ix.orders[s.Order] = id
			asm.AddEdge(graph.Edge{Source: ix.sections[s.Parent], Target: id, Kind: graph.KindHasSubsection})
		}
	}
	return nil
}

// captionSource picks the node a figure's CAPTIONS edge starts from: the
// chunk or heading at its caption order, or else its enclosing section.
func captionSource(ix *Index, f record.Figure, enclosing int) (string, error) {
	if f.CaptionOrder == nil {
		return ix.sections[enclosing], nil
	}
	if id, ok := ix.ChunkAt(*f.CaptionOrder); ok {
		return id, nil
	}
	if id, ok := ix.SectionAt(*f.CaptionOrder); ok {
		return id, nil
	}
	return "", &record.MalformedRecordError{
		Type:   record.TypeFigure,
		Order:  f.Order.String(),
		Index:  f.Index,
		Field:  "caption_order",
		Reason: fmt.Sprintf("no chunk or heading at order %s", f.CaptionOrder),
	}
}

func addNode(asm *graph.Assembler, id string, t graph.NodeType, o graph.Order, attrs map[string]any) error {
	if _, err := asm.AddNode(graph.Node{ID: id, Type: t, Order: o, Attributes: attrs}); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	return nil
}
