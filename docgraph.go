// Package docgraph builds a typed document graph (sections, chunks, list
// items, figures, anchors and URLs) from the flat records an upstream
// extractor produces for one document.
package docgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/docgraph/attach"
	"github.com/brunobiangulo/docgraph/graph"
	"github.com/brunobiangulo/docgraph/hierarchy"
	"github.com/brunobiangulo/docgraph/identity"
	"github.com/brunobiangulo/docgraph/link"
	"github.com/brunobiangulo/docgraph/record"
)

// Document is one document's extraction output.
type Document struct {
	Name    string
	Records []record.Raw
}

// LoadDocument reads a record file (JSON array or JSON lines). The
// document is named after the file.
func LoadDocument(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("docgraph.LoadDocument: %w", err)
	}
	defer f.Close()

	raws, err := record.Decode(f)
	if err != nil {
		return Document{}, fmt.Errorf("docgraph.LoadDocument %s: %w", path, err)
	}
	return Document{Name: filepath.Base(path), Records: raws}, nil
}

// Result is the outcome of building one document in a batch.
type Result struct {
	Name    string
	Graph   *graph.Graph
	Err     error
	Elapsed time.Duration
}

// Engine builds document graphs. It holds no per-document state, so one
// Engine may build many documents concurrently.
type Engine struct {
	cfg Config
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Build runs the whole construction pipeline for doc. Each stage
// completes before the next starts; on any error no graph is returned.
func (e *Engine) Build(ctx context.Context, doc Document) (*graph.Graph, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	set, err := record.Normalize(doc.Records, record.Options{
		FontSizePrecision: e.cfg.FontSizePrecision,
		ExpandListItems:   e.cfg.ExpandListItems,
	})
	if err != nil {
		return nil, fmt.Errorf("docgraph.Build %q: %w", doc.Name, err)
	}

	tree := hierarchy.Build(set.Headings, hierarchy.Options{
		MinFontSize: e.cfg.MinHeadingFontSize,
		MaxLevels:   e.cfg.MaxHeadingLevels,
	})
	set.Demote(tree.Demoted)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reg := identity.NewRegistry()
	asm := graph.NewAssembler()

	ix, err := attach.Resolve(tree, set, reg, asm, attach.Options{RootTitle: doc.Name})
	if err != nil {
		return nil, fmt.Errorf("docgraph.Build %q: %w", doc.Name, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	links, err := link.Resolve(set.Links, ix, reg, asm)
	if err != nil {
		return nil, fmt.Errorf("docgraph.Build %q: %w", doc.Name, err)
	}

	g, err := asm.Build()
	if err != nil {
		return nil, fmt.Errorf("docgraph.Build %q: %w", doc.Name, err)
	}

	nodes, edges := g.Len()
	stats := reg.Stats()
	slog.Info("docgraph: graph built",
		"document", doc.Name,
		"records", len(doc.Records),
		"sections", tree.Len(),
		"levels", len(tree.Levels),
		"demoted", len(tree.Demoted),
		"links", links.Links,
		"malformed_links", links.Malformed,
		"nodes", nodes,
		"edges", edges,
		"merged", stats.Merged,
		"elapsed", time.Since(start))
	return g, nil
}

// BuildAll builds every document with independent pipelines, at most
// Config.Parallelism at a time. A document rejected with a
// MalformedRecordError is reported in its Result and the batch goes on;
// any other failure cancels the batch and is returned.
func (e *Engine) BuildAll(ctx context.Context, docs []Document) ([]Result, error) {
	results := make([]Result, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.parallelism())

	for i := range docs {
		g.Go(func() error {
			start := time.Now()
			gr, err := e.Build(gctx, docs[i])
			results[i] = Result{Name: docs[i].Name, Graph: gr, Err: err, Elapsed: time.Since(start)}
			if err != nil {
				if IsRecoverable(err) {
					slog.Warn("docgraph: skipping malformed document", "document", docs[i].Name, "error", err)
					return nil
				}
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("docgraph.BuildAll: %w", err)
	}
	return results, nil
}
