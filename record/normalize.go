package record

import (
	"log/slog"
	"math"
	"sort"

	"github.com/brunobiangulo/docgraph/graph"
)

// Options tunes coercion.
type Options struct {
	// FontSizePrecision is the number of decimals heading font sizes are
	// rounded to before level assignment. Negative disables rounding.
	FontSizePrecision int

	// ExpandListItems turns a chunk's "items" list into ListItem entities.
	ExpandListItems bool
}

// DefaultOptions returns the coercion defaults.
func DefaultOptions() Options {
	return Options{FontSizePrecision: 2, ExpandListItems: true}
}

// Heading is a validated heading candidate.
type Heading struct {
	Index    int
	Order    graph.Order
	Text     string
	FontSize float64
	Page     int
}

// Chunk is a validated text fragment. Demoted is set on chunks that were
// heading candidates filtered out of the section hierarchy.
type Chunk struct {
	Index   int
	Order   graph.Order
	Text    string
	Page    int
	Demoted bool
}

// ListItem is a validated list entry. ChunkOrder locates the owning chunk.
type ListItem struct {
	Index      int
	Order      graph.Order
	Text       string
	Ordinal    int
	ChunkOrder graph.Order
}

// Figure is a validated image record. CaptionOrder, when set, locates the
// chunk or heading that captions it.
type Figure struct {
	Index        int
	Order        graph.Order
	ImageRef     string
	Page         int
	BBox         [4]float64
	CaptionOrder *graph.Order
	CaptionText  string
	FigureNumber string
}

// Link is a validated hyperlink. ChunkOrder locates the containing chunk.
type Link struct {
	Index      int
	Order      graph.Order
	Target     string
	ChunkOrder graph.Order
}

// Set is one document's validated records, each slice sorted by order
// key with ties broken by input position.
type Set struct {
	Headings  []Heading
	Chunks    []Chunk
	ListItems []ListItem
	Figures   []Figure
	Links     []Link
}

// Len returns the total number of normalized entities.
func (s *Set) Len() int {
	return len(s.Headings) + len(s.Chunks) + len(s.ListItems) + len(s.Figures) + len(s.Links)
}

// Demote moves the given headings out of the heading list and into the
// chunk list, keeping both sorted.
func (s *Set) Demote(hs []Heading) {
	if len(hs) == 0 {
		return
	}
	drop := make(map[int]bool, len(hs))
	for _, h := range hs {
		drop[h.Index] = true
		s.Chunks = append(s.Chunks, Chunk{Index: h.Index, Order: h.Order, Text: h.Text, Page: h.Page, Demoted: true})
	}
	kept := s.Headings[:0]
	for _, h := range s.Headings {
		if !drop[h.Index] {
			kept = append(kept, h)
		}
	}
	s.Headings = kept
	sortByOrder(s.Chunks, func(c Chunk) (graph.Order, int) { return c.Order, c.Index })
}

// Normalize validates and coerces raw records. The first invalid record
// aborts with a MalformedRecordError.
func Normalize(raws []Raw, opts Options) (*Set, error) {
	s := &Set{}
	for i, r := range raws {
		if err := s.add(i, r, opts); err != nil {
			return nil, err
		}
	}

	sortByOrder(s.Headings, func(h Heading) (graph.Order, int) { return h.Order, h.Index })
	sortByOrder(s.Chunks, func(c Chunk) (graph.Order, int) { return c.Order, c.Index })
	sortByOrder(s.ListItems, func(li ListItem) (graph.Order, int) { return li.Order, li.Index })
	sortByOrder(s.Figures, func(f Figure) (graph.Order, int) { return f.Order, f.Index })
	sortByOrder(s.Links, func(l Link) (graph.Order, int) { return l.Order, l.Index })

	slog.Debug("record: normalized",
		"records", len(raws),
		"headings", len(s.Headings),
		"chunks", len(s.Chunks),
		"list_items", len(s.ListItems),
		"figures", len(s.Figures),
		"links", len(s.Links))
	return s, nil
}

func (s *Set) add(i int, r Raw, opts Options) error {
	f := fields{typ: r.Type, index: i, m: r.Fields}
	if r.Type == "" {
		return f.malformed("type", "required field is missing")
	}

	switch {
	case r.Order != nil:
		f.order = *r.Order
	case f.has("source_order"):
		o, err := toOrder(r.Fields["source_order"])
		if err != nil {
			return f.malformed("source_order", "%v", err)
		}
		f.order = o
	default:
		return f.malformed("source_order", "required field is missing")
	}
	if f.order.Page < 0 {
		return f.malformed("source_order", "page must be at least 0")
	}

	switch r.Type {
	case TypeHeading:
		return s.addHeading(f, opts)
	case TypeChunk:
		return s.addChunk(f, opts)
	case TypeListItem:
		return s.addListItem(f)
	case TypeFigure:
		return s.addFigure(f)
	case TypeLink:
		return s.addLink(f)
	default:
		return f.malformed("type", "unknown record type %q", r.Type)
	}
}

type headingFields struct {
	Text     string  `json:"text" validate:"required"`
	FontSize float64 `json:"font_size" validate:"gt=0"`
	Page     int     `json:"page" validate:"min=0"`
}

func (s *Set) addHeading(f fields, opts Options) error {
	var hf headingFields
	var err error
	if hf.Text, err = f.str("text", true); err != nil {
		return err
	}
	if hf.FontSize, err = f.number("font_size", true); err != nil {
		return err
	}
	if hf.Page, err = f.integer("page", false, f.order.Page); err != nil {
		return err
	}
	if err := f.check(hf); err != nil {
		return err
	}
	s.Headings = append(s.Headings, Heading{
		Index:    f.index,
		Order:    f.order,
		Text:     hf.Text,
		FontSize: roundTo(hf.FontSize, opts.FontSizePrecision),
		Page:     hf.Page,
	})
	return nil
}

type chunkFields struct {
	Text            string   `json:"text"`
	Page            int      `json:"page" validate:"min=0"`
	Items           []string `json:"items"`
	HyperlinkTarget string   `json:"hyperlink_target"`
}

func (s *Set) addChunk(f fields, opts Options) error {
	var cf chunkFields
	var err error
	if cf.Text, err = f.str("text", true); err != nil {
		return err
	}
	if cf.Page, err = f.integer("page", false, f.order.Page); err != nil {
		return err
	}
	if cf.Items, err = f.strs("items"); err != nil {
		return err
	}
	if cf.HyperlinkTarget, err = f.str("hyperlink_target", false); err != nil {
		return err
	}
	if err := f.check(cf); err != nil {
		return err
	}

	s.Chunks = append(s.Chunks, Chunk{Index: f.index, Order: f.order, Text: cf.Text, Page: cf.Page})

	if opts.ExpandListItems {
		ordinal := 0
		for _, item := range cf.Items {
			text := clean(StripMarker(item))
			if text == "" {
				continue
			}
			o := f.order
			o.Sub = ordinal + 1
			s.ListItems = append(s.ListItems, ListItem{
				Index:      f.index,
				Order:      o,
				Text:       text,
				Ordinal:    ordinal,
				ChunkOrder: f.order,
			})
			ordinal++
		}
	}
	if cf.HyperlinkTarget != "" {
		s.Links = append(s.Links, Link{Index: f.index, Order: f.order, Target: cf.HyperlinkTarget, ChunkOrder: f.order})
	}
	return nil
}

type listItemFields struct {
	Text    string `json:"text" validate:"required"`
	Ordinal int    `json:"ordinal" validate:"min=0"`
}

func (s *Set) addListItem(f fields) error {
	var lf listItemFields
	var err error
	if lf.Text, err = f.str("text", true); err != nil {
		return err
	}
	lf.Text = StripMarker(lf.Text)
	if lf.Ordinal, err = f.integer("ordinal", true, 0); err != nil {
		return err
	}
	if err := f.check(lf); err != nil {
		return err
	}
	owner, err := f.orderKey("chunk_order")
	if err != nil {
		return err
	}
	if owner == nil {
		owner = &f.order
	}
	s.ListItems = append(s.ListItems, ListItem{
		Index:      f.index,
		Order:      f.order,
		Text:       lf.Text,
		Ordinal:    lf.Ordinal,
		ChunkOrder: *owner,
	})
	return nil
}

type figureFields struct {
	ImageRef     string    `json:"image_ref" validate:"required"`
	Page         int       `json:"page" validate:"min=0"`
	BBox         []float64 `json:"bbox" validate:"len=4"`
	CaptionText  string    `json:"caption_text"`
	FigureNumber string    `json:"figure_number"`
}

func (s *Set) addFigure(f fields) error {
	var ff figureFields
	var err error
	if ff.ImageRef, err = f.str("image_ref", true); err != nil {
		return err
	}
	if ff.Page, err = f.integer("page", true, 0); err != nil {
		return err
	}
	if ff.BBox, err = f.floats("bbox"); err != nil {
		return err
	}
	if ff.CaptionText, err = f.str("caption_text", false); err != nil {
		return err
	}
	if ff.FigureNumber, err = f.str("figure_number", false); err != nil {
		return err
	}
	if err := f.check(ff); err != nil {
		return err
	}
	caption, err := f.orderKey("caption_order")
	if err != nil {
		return err
	}
	if ff.FigureNumber == "" {
		ff.FigureNumber = FigureNumber(ff.CaptionText)
	}

	fig := Figure{
		Index:        f.index,
		Order:        f.order,
		ImageRef:     ff.ImageRef,
		Page:         ff.Page,
		CaptionOrder: caption,
		CaptionText:  ff.CaptionText,
		FigureNumber: ff.FigureNumber,
	}
	copy(fig.BBox[:], ff.BBox)
	s.Figures = append(s.Figures, fig)
	return nil
}

func (s *Set) addLink(f fields) error {
	target, err := f.str("target", true)
	if err != nil {
		return err
	}
	owner, err := f.orderKey("chunk_order")
	if err != nil {
		return err
	}
	if owner == nil {
		owner = &f.order
	}
	s.Links = append(s.Links, Link{Index: f.index, Order: f.order, Target: target, ChunkOrder: *owner})
	return nil
}

func roundTo(v float64, decimals int) float64 {
	if decimals < 0 {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func sortByOrder[T any](s []T, key func(T) (graph.Order, int)) {
	sort.SliceStable(s, func(i, j int) bool {
		oi, ii := key(s[i])
		oj, ij := key(s[j])
		if c := oi.Compare(oj); c != 0 {
			return c < 0
		}
		return ii < ij
	})
}
