// Package identity assigns stable node ids and deduplicates entities
// that share a dedup key.
package identity

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/brunobiangulo/docgraph/graph"
)

var prefixes = map[graph.NodeType]string{
	graph.TypeSection:         "sec_",
	graph.TypeChunk:           "chk_",
	graph.TypeListItem:        "li_",
	graph.TypeFigure:          "fig_",
	graph.TypeReferenceTarget: "ref_",
	graph.TypeURL:             "url_",
}

// hashLen is the number of hex digits kept from the digest.
const hashLen = 16

// Prefix returns the id prefix for t.
func Prefix(t graph.NodeType) string { return prefixes[t] }

// ID computes the id of an entity of type t with the given dedup key.
func ID(t graph.NodeType, key string) string {
	return Prefix(t) + digest(t, key)
}

func digest(t graph.NodeType, key string) string {
	sum := blake3.Sum256([]byte(string(t) + "\x00" + key))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// Dedup keys.

// RootKey is the dedup key of the synthetic root section.
const RootKey = "root"

// OrderKey keys sections, chunks and list items, which are never merged
// across extraction passes.
func OrderKey(o graph.Order, t graph.NodeType) string {
	return o.Key() + "|" + string(t)
}

// FigureKey keys a figure by page, image reference and bounding box.
func FigureKey(page int, imageRef string, bbox [4]float64) string {
	return strconv.Itoa(page) + "|" + imageRef + "|" + BBox(bbox)
}

// URLKey keys a Url by its normalized href. Malformed targets are keyed
// by their raw text in a separate namespace.
func URLKey(href string, malformed bool) string {
	if malformed {
		return "raw:" + href
	}
	return href
}

// AnchorKey keys a ReferenceTarget by its normalized anchor id.
func AnchorKey(anchor string) string { return anchor }

// BBox renders a bounding box as "x0,y0,x1,y1".
func BBox(b [4]float64) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

type entry struct {
	typ graph.NodeType
	key string
}

// Stats counts registry activity.
type Stats struct {
	Assigned int
	Merged   int
}

// Registry maps dedup keys to ids for one document. It is not safe for
// concurrent use; create one per document.
type Registry struct {
	digest func(graph.NodeType, string) string
	byKey  map[entry]string
	byID   map[string]entry
	stats  Stats
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return newRegistry(digest)
}

func newRegistry(fn func(graph.NodeType, string) string) *Registry {
	return &Registry{
		digest: fn,
		byKey:  make(map[entry]string),
		byID:   make(map[string]entry),
	}
}

// Assign returns the id for (t, key). The first call for a key creates
// it; later calls return the same id with created == false. Two distinct
// keys hashing to one id fail with graph.IdentityCollisionError.
func (r *Registry) Assign(t graph.NodeType, key string) (id string, created bool, err error) {
	prefix, ok := prefixes[t]
	if !ok {
		return "", false, fmt.Errorf("identity.Assign: unknown node type %q", t)
	}
	e := entry{typ: t, key: key}
	if id, ok := r.byKey[e]; ok {
		r.stats.Merged++
		return id, false, nil
	}

	id = prefix + r.digest(t, key)
	if prev, ok := r.byID[id]; ok {
		return "", false, &graph.IdentityCollisionError{
			ID:           id,
			ExistingType: prev.typ,
			ExistingKey:  prev.key,
			IncomingType: t,
			IncomingKey:  key,
		}
	}
	r.byKey[e] = id
	r.byID[id] = e
	r.stats.Assigned++
	return id, true, nil
}

// Stats returns the number of ids assigned and merges performed.
func (r *Registry) Stats() Stats { return r.stats }
