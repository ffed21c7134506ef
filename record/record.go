// Package record decodes, validates and coerces the flat per-entity
// records produced by an upstream document extractor.
package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"

	"github.com/brunobiangulo/docgraph/graph"
)

// Record type discriminators.
const (
	TypeHeading  = "heading"
	TypeChunk    = "chunk"
	TypeListItem = "list_item"
	TypeFigure   = "figure"
	TypeLink     = "link"
)

// typeRank breaks ties between records sharing one order key.
var typeRank = map[string]int{
	TypeHeading:  0,
	TypeChunk:    1,
	TypeListItem: 2,
	TypeFigure:   3,
	TypeLink:     4,
}

// Raw is one upstream record before validation. Fields holds every key
// other than "type" and "source_order".
type Raw struct {
	Type   string
	Order  *graph.Order
	Fields map[string]any
}

// New returns a Raw record with the given type, order and fields.
func New(typ string, o graph.Order, fields map[string]any) Raw {
	return Raw{Type: typ, Order: &o, Fields: fields}
}

// UnmarshalJSON decodes a flat record object. Numbers are kept as
// json.Number so that integer fields survive exactly. A source_order
// that cannot be decoded is left in Fields for Normalize to report.
func (r *Raw) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("record: expected object, got null")
	}

	*r = Raw{Fields: m}
	if t, ok := m["type"].(string); ok {
		r.Type = t
		delete(m, "type")
	}
	if v, ok := m["source_order"]; ok {
		if o, err := toOrder(v); err == nil {
			r.Order = &o
			delete(m, "source_order")
		}
	}
	return nil
}

// MarshalJSON encodes r as one flat object.
func (r Raw) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Fields)+2)
	maps.Copy(m, r.Fields)
	if r.Type != "" {
		m["type"] = r.Type
	}
	if r.Order != nil {
		m["source_order"] = *r.Order
	}
	return json.Marshal(m)
}

// Decode reads records from r, either as one JSON array or as JSON
// lines (one object per line).
func Decode(r io.Reader) ([]Raw, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record.Decode: %w", err)
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var out []Raw
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("record.Decode: %w", err)
		}
		return out, nil
	}

	var out []Raw
	for {
		var raw Raw
		err := dec.Decode(&raw)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record.Decode: record %d: %w", len(out), err)
		}
		out = append(out, raw)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
