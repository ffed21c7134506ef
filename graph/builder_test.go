package graph

import (
	"encoding/json"
	"errors"
	"testing"
)

func section(id string, o Order, level int) Node {
	return Node{ID: id, Type: TypeSection, Order: o, Attributes: map[string]any{AttrTitle: id, AttrLevel: level}}
}

func chunk(id string, o Order) Node {
	return Node{ID: id, Type: TypeChunk, Order: o, Attributes: map[string]any{AttrText: id, AttrPage: 0}}
}

func mustAdd(t *testing.T, a *Assembler, nodes ...Node) {
	t.Helper()
	for _, n := range nodes {
		if _, err := a.AddNode(n); err != nil {
			t.Fatalf("adding %s: %v", n.ID, err)
		}
	}
}

// sampleGraph builds root -> s1 -> c1, root -> s2.
func sampleGraph(t *testing.T) *Graph {
	t.Helper()
	a := NewAssembler()
	mustAdd(t, a,
		section("s2", Seq(3), 1),
		chunk("c1", Seq(2)),
		section("root", RootOrder, 0),
		section("s1", Seq(1), 1),
	)
	a.AddEdge(Edge{Source: "s1", Target: "c1", Kind: KindHasChunk})
	a.AddEdge(Edge{Source: "root", Target: "s2", Kind: KindHasSubsection})
	a.AddEdge(Edge{Source: "root", Target: "s1", Kind: KindHasSubsection})
	g, err := a.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestBuildCanonicalOrder(t *testing.T) {
	g := sampleGraph(t)

	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	want := []string{"root", "s1", "c1", "s2"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("node order: got %v, want %v", ids, want)
		}
	}

	edges := g.Edges()
	wantEdges := []Edge{
		{Source: "root", Target: "s1", Kind: KindHasSubsection},
		{Source: "root", Target: "s2", Kind: KindHasSubsection},
		{Source: "s1", Target: "c1", Kind: KindHasChunk},
	}
	for i := range wantEdges {
		if edges[i] != wantEdges[i] {
			t.Errorf("edge %d: got %+v, want %+v", i, edges[i], wantEdges[i])
		}
	}

	root, ok := g.Root()
	if !ok || root.ID != "root" {
		t.Errorf("Root() = %v, %v", root.ID, ok)
	}
}

func TestBuildDanglingEdge(t *testing.T) {
	a := NewAssembler()
	mustAdd(t, a, section("root", RootOrder, 0))
	a.AddEdge(Edge{Source: "root", Target: "ghost", Kind: KindHasSubsection})

	g, err := a.Build()
	if g != nil {
		t.Fatal("expected no graph on failure")
	}
	var de *DanglingEdgeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DanglingEdgeError, got %v", err)
	}
	if de.MissingID != "ghost" {
		t.Errorf("MissingID = %q, want ghost", de.MissingID)
	}
	if !errors.Is(err, ErrDanglingEdge) {
		t.Error("expected errors.Is(err, ErrDanglingEdge)")
	}
}

func TestAddNodeCollision(t *testing.T) {
	a := NewAssembler()
	mustAdd(t, a, section("x", Seq(1), 1))

	created, err := a.AddNode(section("x", Seq(1), 1))
	if err != nil || created {
		t.Fatalf("same id and type: created=%v err=%v", created, err)
	}

	_, err = a.AddNode(chunk("x", Seq(1)))
	var ce *IdentityCollisionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected IdentityCollisionError, got %v", err)
	}
	if ce.ExistingType != TypeSection || ce.IncomingType != TypeChunk {
		t.Errorf("unexpected collision types: %+v", ce)
	}
}

func TestAddEdgeDedup(t *testing.T) {
	a := NewAssembler()
	mustAdd(t, a, section("root", RootOrder, 0), chunk("c", Seq(1)))
	e := Edge{Source: "root", Target: "c", Kind: KindHasChunk}
	if !a.AddEdge(e) {
		t.Fatal("first AddEdge should report new")
	}
	if a.AddEdge(e) {
		t.Fatal("duplicate AddEdge should report false")
	}
	g, err := a.Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, edges := g.Len(); edges != 1 {
		t.Errorf("edges = %d, want 1", edges)
	}
}

func TestBuildRejectsInvalidEdges(t *testing.T) {
	tests := []struct {
		name  string
		edges []Edge
		want  error
	}{
		{
			name:  "wrong endpoint types",
			edges: []Edge{{Source: "c", Target: "s", Kind: KindHasChunk}},
			want:  ErrInvalidEdge,
		},
		{
			name: "two parents",
			edges: []Edge{
				{Source: "root", Target: "c", Kind: KindHasChunk},
				{Source: "s", Target: "c", Kind: KindHasChunk},
			},
			want: ErrMultipleParents,
		},
		{
			name: "subsection not deeper than parent",
			edges: []Edge{
				{Source: "root", Target: "s", Kind: KindHasSubsection},
				{Source: "s", Target: "s2", Kind: KindHasSubsection},
			},
			want: ErrInvalidEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssembler()
			mustAdd(t, a, section("root", RootOrder, 0), section("s", Seq(1), 1), chunk("c", Seq(2)), section("s2", Seq(3), 1))
			for _, e := range tt.edges {
				a.AddEdge(e)
			}
			if _, err := a.Build(); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGraphAccessorsReturnCopies(t *testing.T) {
	g := sampleGraph(t)
	n, _ := g.Node("s1")
	n.Attributes[AttrTitle] = "mutated"
	again, _ := g.Node("s1")
	if again.Text(AttrTitle) != "s1" {
		t.Errorf("graph was mutated through accessor: %q", again.Text(AttrTitle))
	}
}

func TestFingerprintStable(t *testing.T) {
	a, b := sampleGraph(t), sampleGraph(t)
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("equal graphs should have equal fingerprints")
	}

	asm := NewAssembler()
	mustAdd(t, asm, section("root", RootOrder, 0))
	other, err := asm.Build()
	if err != nil {
		t.Fatal(err)
	}
	if other.Fingerprint() == a.Fingerprint() {
		t.Fatal("different graphs should differ")
	}
}

func TestFingerprintNumberForms(t *testing.T) {
	build := func(level any) *Graph {
		a := NewAssembler()
		mustAdd(t, a, Node{ID: "s", Type: TypeSection, Order: Seq(1), Attributes: map[string]any{AttrLevel: level}})
		g, err := a.Build()
		if err != nil {
			t.Fatal(err)
		}
		return g
	}
	if build(2).Fingerprint() != build(json.Number("2")).Fingerprint() {
		t.Error("int and json.Number attributes should fingerprint equally")
	}
}

func TestOrderCompare(t *testing.T) {
	tests := []struct {
		a, b Order
		want int
	}{
		{Order{Page: 0, Y: 10}, Order{Page: 1, Y: 0}, -1},
		{Order{Page: 1, Y: 10}, Order{Page: 1, Y: 5}, 1},
		{Order{Page: 1, Y: 5, Seq: 2}, Order{Page: 1, Y: 5, Seq: 2}, 0},
		{Order{Seq: 4}, Order{Seq: 4, Sub: 1}, -1},
		{RootOrder, Order{}, -1},
	}
	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOrderUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Order
		wantErr bool
	}{
		{name: "bare integer", in: `7`, want: Order{Seq: 7}},
		{name: "object", in: `{"page":2,"y":140.5,"seq":9}`, want: Order{Page: 2, Y: 140.5, Seq: 9}},
		{name: "fraction", in: `1.5`, wantErr: true},
		{name: "garbage", in: `"abc"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Order
			err := json.Unmarshal([]byte(tt.in), &o)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", o)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if o != tt.want {
				t.Errorf("got %+v, want %+v", o, tt.want)
			}
		})
	}
}
