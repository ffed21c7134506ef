package record

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/brunobiangulo/docgraph/graph"
)

func TestDecodeArrayAndLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name: "array",
			input: `[
				{"type":"heading","source_order":1,"text":"1. Intro","font_size":18},
				{"type":"chunk","source_order":{"page":0,"y":120.5,"seq":2},"text":"Welcome text"}
			]`,
		},
		{
			name: "json lines",
			input: `{"type":"heading","source_order":1,"text":"1. Intro","font_size":18}
{"type":"chunk","source_order":{"page":0,"y":120.5,"seq":2},"text":"Welcome text"}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raws, err := Decode(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(raws) != 2 {
				t.Fatalf("expected 2 records, got %d", len(raws))
			}
			if raws[0].Type != TypeHeading || raws[0].Order == nil || raws[0].Order.Seq != 1 {
				t.Errorf("unexpected first record: %+v", raws[0])
			}
			if _, ok := raws[0].Fields["font_size"].(json.Number); !ok {
				t.Errorf("font_size should decode as json.Number, got %T", raws[0].Fields["font_size"])
			}
			want := graph.Order{Page: 0, Y: 120.5, Seq: 2}
			if raws[1].Order == nil || *raws[1].Order != want {
				t.Errorf("order = %+v, want %+v", raws[1].Order, want)
			}
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	raws, err := Decode(strings.NewReader("  \n"))
	if err != nil || raws != nil {
		t.Fatalf("got %v, %v", raws, err)
	}
}

func TestRawRoundTrip(t *testing.T) {
	in := New(TypeLink, graph.Seq(4), map[string]any{"target": "#sec2"})
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Raw
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Type != TypeLink || out.Order == nil || *out.Order != graph.Seq(4) || out.Fields["target"] != "#sec2" {
		t.Errorf("round trip mismatch: %s -> %+v", data, out)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	tests := []struct {
		name      string
		raw       Raw
		wantField string
	}{
		{"missing type", Raw{Order: &graph.Order{Seq: 1}, Fields: map[string]any{"text": "x"}}, "type"},
		{"missing order", Raw{Type: TypeChunk, Fields: map[string]any{"text": "x"}}, "source_order"},
		{"bad order", Raw{Type: TypeChunk, Fields: map[string]any{"text": "x", "source_order": "first"}}, "source_order"},
		{"negative page", New(TypeChunk, graph.Order{Page: -2}, map[string]any{"text": "x"}), "source_order"},
		{"unknown type", New("table", graph.Seq(1), map[string]any{}), "type"},
		{"font size not numeric", New(TypeHeading, graph.Seq(1), map[string]any{"text": "A", "font_size": "big"}), "font_size"},
		{"font size missing", New(TypeHeading, graph.Seq(1), map[string]any{"text": "A"}), "font_size"},
		{"font size zero", New(TypeHeading, graph.Seq(1), map[string]any{"text": "A", "font_size": 0.0}), "font_size"},
		{"blank heading", New(TypeHeading, graph.Seq(1), map[string]any{"text": "  ", "font_size": 12.0}), "text"},
		{"chunk text missing", New(TypeChunk, graph.Seq(1), map[string]any{}), "text"},
		{"chunk text wrong type", New(TypeChunk, graph.Seq(1), map[string]any{"text": true}), "text"},
		{"items not a list", New(TypeChunk, graph.Seq(1), map[string]any{"text": "x", "items": "a"}), "items"},
		{"ordinal fraction", New(TypeListItem, graph.Seq(1), map[string]any{"text": "a", "ordinal": 1.5}), "ordinal"},
		{"ordinal negative", New(TypeListItem, graph.Seq(1), map[string]any{"text": "a", "ordinal": -1}), "ordinal"},
		{"figure bbox short", New(TypeFigure, graph.Seq(1), map[string]any{"image_ref": "a.png", "page": 1, "bbox": []any{1.0, 2.0}}), "bbox"},
		{"figure bbox text", New(TypeFigure, graph.Seq(1), map[string]any{"image_ref": "a.png", "page": 1, "bbox": []any{1.0, "x", 3.0, 4.0}}), "bbox"},
		{"figure page missing", New(TypeFigure, graph.Seq(1), map[string]any{"image_ref": "a.png", "bbox": []any{1.0, 2.0, 3.0, 4.0}}), "page"},
		{"figure caption order bad", New(TypeFigure, graph.Seq(1), map[string]any{"image_ref": "a.png", "page": 1, "bbox": "1,2,3,4", "caption_order": []any{}}), "caption_order"},
		{"link target missing", New(TypeLink, graph.Seq(1), map[string]any{}), "target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize([]Raw{tt.raw}, DefaultOptions())
			var me *MalformedRecordError
			if !errors.As(err, &me) {
				t.Fatalf("expected MalformedRecordError, got %v", err)
			}
			if me.Field != tt.wantField {
				t.Errorf("Field = %q, want %q (%v)", me.Field, tt.wantField, err)
			}
			if !errors.Is(err, ErrMalformedRecord) {
				t.Error("expected errors.Is(err, ErrMalformedRecord)")
			}
		})
	}
}

func TestMalformedErrorNamesTypeAndOrder(t *testing.T) {
	_, err := Normalize([]Raw{New(TypeHeading, graph.Seq(7), map[string]any{"text": "A", "font_size": "big"})}, DefaultOptions())
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "heading") || !strings.Contains(msg, "order 7") {
		t.Errorf("error should name type and order: %q", msg)
	}
}

func TestNormalizeCoercion(t *testing.T) {
	raws := []Raw{
		New(TypeHeading, graph.Seq(3), map[string]any{"text": " Café ", "font_size": json.Number("14.004")}),
		New(TypeHeading, graph.Seq(1), map[string]any{"text": "Top", "font_size": "18"}),
		New(TypeChunk, graph.Order{Page: 2, Seq: 4}, map[string]any{"text": "body"}),
		New(TypeFigure, graph.Seq(5), map[string]any{
			"image_ref":    "img/1.png",
			"page":         json.Number("2"),
			"bbox":         []any{json.Number("10"), json.Number("20"), 30.5, "40"},
			"caption_text": "Figure 3: Layout",
		}),
	}
	set, err := Normalize(raws, DefaultOptions())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if len(set.Headings) != 2 || set.Headings[0].Text != "Top" {
		t.Fatalf("headings not sorted by order: %+v", set.Headings)
	}
	h := set.Headings[1]
	if h.FontSize != 14 {
		t.Errorf("font size = %v, want 14", h.FontSize)
	}
	if h.Text != "Café" {
		t.Errorf("text = %q, want NFC-normalized Café", h.Text)
	}
	if set.Headings[0].FontSize != 18 {
		t.Errorf("numeric string font size = %v", set.Headings[0].FontSize)
	}

	if c := set.Chunks[0]; c.Page != 2 {
		t.Errorf("chunk page should default to order page, got %d", c.Page)
	}

	fig := set.Figures[0]
	if fig.BBox != [4]float64{10, 20, 30.5, 40} {
		t.Errorf("bbox = %v", fig.BBox)
	}
	if fig.FigureNumber != "3" {
		t.Errorf("figure number = %q, want 3", fig.FigureNumber)
	}
}

func TestNormalizeExpandsChunkLists(t *testing.T) {
	raws := []Raw{
		New(TypeChunk, graph.Seq(2), map[string]any{
			"text":             "Requirements",
			"items":            []any{"• first", "- second", "  ", "3) third"},
			"hyperlink_target": "https://example.com",
		}),
	}

	set, err := Normalize(raws, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(set.ListItems) != 3 {
		t.Fatalf("expected 3 list items, got %+v", set.ListItems)
	}
	for i, want := range []string{"first", "second", "third"} {
		li := set.ListItems[i]
		if li.Text != want || li.Ordinal != i || li.ChunkOrder != graph.Seq(2) || li.Order.Sub != i+1 {
			t.Errorf("item %d = %+v", i, li)
		}
	}
	if len(set.Links) != 1 || set.Links[0].ChunkOrder != graph.Seq(2) {
		t.Errorf("hyperlink_target should become a link: %+v", set.Links)
	}

	opts := DefaultOptions()
	opts.ExpandListItems = false
	set, err = Normalize(raws, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.ListItems) != 0 {
		t.Errorf("expansion disabled, got %d items", len(set.ListItems))
	}
}

func TestNormalizeTieBreakByInputPosition(t *testing.T) {
	raws := []Raw{
		New(TypeChunk, graph.Seq(1), map[string]any{"text": "b"}),
		New(TypeChunk, graph.Seq(1), map[string]any{"text": "a"}),
		New(TypeChunk, graph.Seq(0), map[string]any{"text": "z"}),
	}
	set, err := Normalize(raws, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, c := range set.Chunks {
		got = append(got, c.Text)
	}
	if strings.Join(got, ",") != "z,b,a" {
		t.Errorf("order = %v, want z,b,a", got)
	}
}

func TestSetDemote(t *testing.T) {
	set, err := Normalize([]Raw{
		New(TypeHeading, graph.Seq(1), map[string]any{"text": "Big", "font_size": 20.0}),
		New(TypeChunk, graph.Seq(2), map[string]any{"text": "body"}),
		New(TypeHeading, graph.Seq(0), map[string]any{"text": "small", "font_size": 9.0}),
	}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	set.Demote([]Heading{set.Headings[0]})

	if len(set.Headings) != 1 || set.Headings[0].Text != "Big" {
		t.Fatalf("headings after demote: %+v", set.Headings)
	}
	if len(set.Chunks) != 2 || set.Chunks[0].Text != "small" || !set.Chunks[0].Demoted {
		t.Fatalf("chunks after demote: %+v", set.Chunks)
	}
}

func TestStripMarker(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"• item", "item"},
		{"•item", "item"},
		{"- item", "item"},
		{"-5 degrees", "-5 degrees"},
		{"* star", "star"},
		{"1. first", "first"},
		{"b) second", "second"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := StripMarker(tt.in); got != tt.want {
			t.Errorf("StripMarker(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFigureNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Figure 3: Layout", "3"},
		{"Fig. 2.1 Wiring", "2.1"},
		{"Рис. 4 — Схема", "4"},
		{"Рисунок № 5", "5"},
		{"No caption here", ""},
	}
	for _, tt := range tests {
		if got := FigureNumber(tt.in); got != tt.want {
			t.Errorf("FigureNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
