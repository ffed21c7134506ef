package graph

import (
	"encoding/json"
	"strconv"
)

// Attribute keys.
const (
	AttrTitle        = "title"
	AttrLevel        = "level"
	AttrFontSize     = "font_size"
	AttrPage         = "page"
	AttrText         = "text"
	AttrDemoted      = "demoted"
	AttrOrdinal      = "ordinal"
	AttrImageRef     = "image_ref"
	AttrBBox         = "bbox"
	AttrCaptionText  = "caption_text"
	AttrFigureNumber = "figure_number"
	AttrAnchorID     = "anchor_id"
	AttrHref         = "href"
	AttrMalformed    = "malformed"
)

var columns = map[NodeType][]string{
	TypeSection:         {AttrTitle, AttrLevel, AttrFontSize, AttrPage},
	TypeChunk:           {AttrText, AttrPage, AttrDemoted},
	TypeListItem:        {AttrText, AttrOrdinal},
	TypeFigure:          {AttrImageRef, AttrPage, AttrBBox, AttrCaptionText, AttrFigureNumber},
	TypeReferenceTarget: {AttrAnchorID},
	TypeURL:             {AttrHref, AttrMalformed},
}

// Columns returns the fixed attribute columns of t, in export order.
func Columns(t NodeType) []string {
	return append([]string(nil), columns[t]...)
}

// AllColumns returns the union of every type's columns, each key at
// the position of its first appearance in NodeTypes order.
func AllColumns() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range NodeTypes {
		for _, c := range columns[t] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// endpoints lists the permitted (source, target) node types per kind.
var endpoints = map[Kind][][2]NodeType{
	KindHasSubsection: {{TypeSection, TypeSection}},
	KindHasChunk:      {{TypeSection, TypeChunk}},
	KindHasItem:       {{TypeChunk, TypeListItem}},
	KindCaptions:      {{TypeChunk, TypeFigure}, {TypeSection, TypeFigure}},
	KindLinksTo:       {{TypeChunk, TypeReferenceTarget}, {TypeChunk, TypeURL}},
}

// Permits reports whether an edge of kind k may run from a node of
// type src to a node of type dst.
func (k Kind) Permits(src, dst NodeType) bool {
	for _, p := range endpoints[k] {
		if p[0] == src && p[1] == dst {
			return true
		}
	}
	return false
}

// FormatValue renders a scalar attribute value as text. Nil renders as
// the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
