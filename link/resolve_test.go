package link

import (
	"errors"
	"testing"

	"github.com/brunobiangulo/docgraph/graph"
	"github.com/brunobiangulo/docgraph/identity"
	"github.com/brunobiangulo/docgraph/record"
)

// fixedChunks maps every order at or after seq 0 onto known chunk ids.
type fixedChunks map[int]string

func (f fixedChunks) Chunk(o graph.Order) (string, bool) {
	id, ok := f[o.Seq]
	return id, ok
}

func setup(t *testing.T) (*graph.Assembler, fixedChunks) {
	t.Helper()
	asm := graph.NewAssembler()
	chunks := fixedChunks{1: "chk_a", 2: "chk_b"}
	for _, id := range []string{"chk_a", "chk_b"} {
		if _, err := asm.AddNode(graph.Node{ID: id, Type: graph.TypeChunk, Attributes: map[string]any{}}); err != nil {
			t.Fatal(err)
		}
	}
	return asm, chunks
}

func link(seq int, target string) record.Link {
	return record.Link{Index: seq, Order: graph.Seq(seq), Target: target, ChunkOrder: graph.Seq(seq)}
}

func TestResolveDedupsURLs(t *testing.T) {
	asm, chunks := setup(t)
	st, err := Resolve([]record.Link{
		link(1, "http://Example.com/a/"),
		link(2, "http://example.com/a"),
	}, chunks, identity.NewRegistry(), asm)
	if err != nil {
		t.Fatal(err)
	}
	g, err := asm.Build()
	if err != nil {
		t.Fatal(err)
	}

	urls := g.NodesOfType(graph.TypeURL)
	if len(urls) != 1 {
		t.Fatalf("expected one Url node, got %d", len(urls))
	}
	if urls[0].Text(graph.AttrHref) != "http://example.com/a" {
		t.Errorf("href = %q", urls[0].Text(graph.AttrHref))
	}
	edges := g.EdgesOfKind(graph.KindLinksTo)
	if len(edges) != 2 {
		t.Fatalf("expected 2 LINKS_TO edges, got %d", len(edges))
	}
	for _, e := range edges {
		if e.Target != urls[0].ID {
			t.Errorf("edge %+v does not point at the shared node", e)
		}
	}
	if st.URLs != 2 || st.Links != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestResolveAnchorsAndMalformed(t *testing.T) {
	asm, chunks := setup(t)
	_, err := Resolve([]record.Link{
		link(1, "#sec2"),
		link(2, "#sec2"),
		link(2, "  not a link "),
		link(1, "not a link"),
	}, chunks, identity.NewRegistry(), asm)
	if err != nil {
		t.Fatal(err)
	}
	g, err := asm.Build()
	if err != nil {
		t.Fatal(err)
	}

	refs := g.NodesOfType(graph.TypeReferenceTarget)
	if len(refs) != 1 || refs[0].Text(graph.AttrAnchorID) != "sec2" {
		t.Fatalf("reference targets = %+v", refs)
	}
	if n := len(g.Sources(refs[0].ID, graph.KindLinksTo)); n != 2 {
		t.Errorf("anchor has %d inbound links, want 2", n)
	}

	urls := g.NodesOfType(graph.TypeURL)
	if len(urls) != 1 {
		t.Fatalf("expected malformed url node, got %+v", urls)
	}
	if urls[0].Attr(graph.AttrMalformed) != true || urls[0].Text(graph.AttrHref) != "  not a link " {
		t.Errorf("malformed node = %+v", urls[0])
	}
}

func TestResolveSameChunkSameTargetCollapses(t *testing.T) {
	asm, chunks := setup(t)
	if _, err := Resolve([]record.Link{link(1, "#x"), link(1, "#x")}, chunks, identity.NewRegistry(), asm); err != nil {
		t.Fatal(err)
	}
	g, err := asm.Build()
	if err != nil {
		t.Fatal(err)
	}
	if n := len(g.EdgesOfKind(graph.KindLinksTo)); n != 1 {
		t.Errorf("duplicate triples should collapse, got %d edges", n)
	}
}

func TestResolveWithoutChunk(t *testing.T) {
	asm, chunks := setup(t)
	_, err := Resolve([]record.Link{link(9, "#x")}, chunks, identity.NewRegistry(), asm)
	var me *record.MalformedRecordError
	if !errors.As(err, &me) || me.Type != record.TypeLink {
		t.Fatalf("expected link MalformedRecordError, got %v", err)
	}
}
