// Package hierarchy reconstructs a document's section tree from heading
// candidates and their font sizes.
package hierarchy

import (
	"log/slog"
	"sort"

	"github.com/brunobiangulo/docgraph/graph"
	"github.com/brunobiangulo/docgraph/record"
)

// RootIndex is the arena index of the synthetic root section.
const RootIndex = 0

// Options filters which heading candidates become sections.
type Options struct {
	// MinFontSize drops candidates smaller than this size. Zero keeps all.
	MinFontSize float64

	// MaxLevels keeps only the MaxLevels largest distinct sizes as
	// levels. Zero keeps all.
	MaxLevels int
}

// Section is one node of the tree arena. Parent is -1 for the root.
type Section struct {
	Index    int
	Parent   int
	Order    graph.Order
	Title    string
	Level    int
	FontSize float64
	Page     int
	Children []int
}

// Level maps one distinct font size to a hierarchy level.
type Level struct {
	FontSize float64
	Level    int
}

// Tree is an arena of sections addressed by index; Sections[RootIndex]
// is the synthetic root. Sections other than the root appear in
// document order. Demoted holds candidates filtered out by Options;
// Merged holds candidates dropped because an earlier candidate (by
// input position) has the same order key and is the same section.
type Tree struct {
	Sections []Section
	Levels   []Level
	Demoted  []record.Heading
	Merged   []record.Heading
}

// Build nests headings (sorted by order, then input position) into a
// tree. Headings sharing an order key collapse into the first one before
// levels are ranked, so every child sits strictly deeper than its
// parent. Font sizes are ranked per call; nothing carries across
// documents.
func Build(headings []record.Heading, opts Options) *Tree {
	t := &Tree{Sections: []Section{{Index: RootIndex, Parent: -1, Order: graph.RootOrder}}}

	var kept []record.Heading
	for i, h := range headings {
		if i > 0 && h.Order == headings[i-1].Order {
			slog.Warn("hierarchy: heading merged into earlier heading at same order",
				"order", h.Order.String(), "text", h.Text, "kept", firstAt(headings, i).Text)
			t.Merged = append(t.Merged, h)
			continue
		}
		if opts.MinFontSize > 0 && h.FontSize < opts.MinFontSize {
			t.Demoted = append(t.Demoted, h)
			continue
		}
		kept = append(kept, h)
	}

	t.Levels = levels(kept)
	if opts.MaxLevels > 0 && len(t.Levels) > opts.MaxLevels {
		t.Levels = t.Levels[:opts.MaxLevels]
	}
	levelOf := make(map[float64]int, len(t.Levels))
	for _, l := range t.Levels {
		levelOf[l.FontSize] = l.Level
	}

	// stack holds arena indices of open sections; the root never pops.
	stack := []int{RootIndex}
	for _, h := range kept {
		level, ok := levelOf[h.FontSize]
		if !ok {
			t.Demoted = append(t.Demoted, h)
			continue
		}
		for len(stack) > 1 && t.Sections[stack[len(stack)-1]].Level >= level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		idx := len(t.Sections)
		t.Sections = append(t.Sections, Section{
			Index:    idx,
			Parent:   parent,
			Order:    h.Order,
			Title:    h.Text,
			Level:    level,
			FontSize: h.FontSize,
			Page:     h.Page,
		})
		t.Sections[parent].Children = append(t.Sections[parent].Children, idx)
		stack = append(stack, idx)
	}

	if len(t.Demoted) > 0 {
		sort.SliceStable(t.Demoted, func(i, j int) bool {
			if c := t.Demoted[i].Order.Compare(t.Demoted[j].Order); c != 0 {
				return c < 0
			}
			return t.Demoted[i].Index < t.Demoted[j].Index
		})
	}

	slog.Debug("hierarchy: built",
		"sections", len(t.Sections)-1,
		"levels", len(t.Levels),
		"demoted", len(t.Demoted),
		"merged", len(t.Merged),
		"depth", t.Depth())
	return t
}

// firstAt returns the first heading of the run of equal order keys that
// ends at i.
func firstAt(headings []record.Heading, i int) record.Heading {
	for i > 0 && headings[i-1].Order == headings[i].Order {
		i--
	}
	return headings[i]
}

// levels sorts the distinct font sizes descending and ranks them 1..k.
func levels(headings []record.Heading) []Level {
	seen := make(map[float64]bool)
	var sizes []float64
	for _, h := range headings {
		if !seen[h.FontSize] {
			seen[h.FontSize] = true
			sizes = append(sizes, h.FontSize)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))

	out := make([]Level, len(sizes))
	for i, s := range sizes {
		out[i] = Level{FontSize: s, Level: i + 1}
	}
	return out
}

// Root returns the synthetic root section.
func (t *Tree) Root() Section { return t.Sections[RootIndex] }

// Len returns the number of sections, excluding the root.
func (t *Tree) Len() int { return len(t.Sections) - 1 }

// Path returns the arena indices from the root down to i, inclusive.
func (t *Tree) Path(i int) []int {
	var path []int
	for cur := i; cur >= 0; cur = t.Sections[cur].Parent {
		path = append(path, cur)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// Depth returns the deepest nesting level present, 0 for a bare root.
func (t *Tree) Depth() int {
	depth := 0
	for _, s := range t.Sections[1:] {
		if d := len(t.Path(s.Index)) - 1; d > depth {
			depth = d
		}
	}
	return depth
}
