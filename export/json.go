package export

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/brunobiangulo/docgraph/graph"
)

// JSONNode is one node of the JSON graph document.
type JSONNode struct {
	ID         string         `json:"id" jsonschema:"required"`
	Type       string         `json:"type" jsonschema:"required,enum=Section,enum=Chunk,enum=ListItem,enum=Figure,enum=ReferenceTarget,enum=Url"`
	Attributes map[string]any `json:"attributes" jsonschema:"required"`
}

// JSONEdge is one edge of the JSON graph document.
type JSONEdge struct {
	Source string `json:"source" jsonschema:"required"`
	Target string `json:"target" jsonschema:"required"`
	Kind   string `json:"kind" jsonschema:"required,enum=HAS_SUBSECTION,enum=HAS_CHUNK,enum=HAS_ITEM,enum=CAPTIONS,enum=LINKS_TO"`
}

// JSONGraph is the JSON graph document.
type JSONGraph struct {
	Nodes []JSONNode `json:"nodes" jsonschema:"required"`
	Edges []JSONEdge `json:"edges" jsonschema:"required"`
}

// Document converts g into its JSON document form.
func Document(g *graph.Graph) JSONGraph {
	doc := JSONGraph{Nodes: []JSONNode{}, Edges: []JSONEdge{}}
	for _, n := range g.Nodes() {
		attrs := n.Attributes
		if attrs == nil {
			attrs = map[string]any{}
		}
		doc.Nodes = append(doc.Nodes, JSONNode{ID: n.ID, Type: string(n.Type), Attributes: attrs})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, JSONEdge{Source: e.Source, Target: e.Target, Kind: string(e.Kind)})
	}
	return doc
}

// JSON renders g as an indented JSON graph document. Attribute keys are
// sorted, so equal graphs render byte-identically.
func JSON(g *graph.Graph) ([]byte, error) {
	data, err := json.MarshalIndent(Document(g), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export.JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Schema returns the JSON Schema describing the JSON graph document.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := r.Reflect(&JSONGraph{})
	s.Title = "docgraph document graph"
	s.Description = "Typed nodes and edges reconstructed from one document's extraction records."

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export.Schema: %w", err)
	}
	return append(data, '\n'), nil
}
