package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/brunobiangulo/docgraph"
	"github.com/brunobiangulo/docgraph/export"
	"github.com/brunobiangulo/docgraph/graph"
	"github.com/brunobiangulo/docgraph/store"
)

// BuildCmd builds one graph per record file.
type BuildCmd struct {
	Files  []string `arg:"" type:"existingfile" help:"Record files (JSON array or JSON lines)"`
	Out    string   `short:"o" type:"path" default:"." help:"Output directory"`
	Format string   `short:"f" enum:"json,csv,xlsx,all" default:"all" help:"Export format"`
	Store  bool     `help:"Save each graph to the database"`
}

func (c *BuildCmd) Run(g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	engine, err := docgraph.New(cfg)
	if err != nil {
		return err
	}

	docs := make([]docgraph.Document, 0, len(c.Files))
	for _, path := range c.Files {
		doc, err := docgraph.LoadDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	ctx := context.Background()
	results, err := engine.BuildAll(ctx, docs)
	if err != nil {
		return err
	}

	var st *store.Store
	if c.Store {
		st, err = store.New(cfg.ResolveDBPath())
		if err != nil {
			return err
		}
		defer st.Close()
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			slog.Error("build failed", "document", r.Name, "error", r.Err)
			continue
		}
		if err := c.write(r.Name, r.Graph); err != nil {
			return err
		}
		if st != nil {
			id, changed, err := st.SaveGraph(ctx, r.Name, r.Graph)
			if err != nil {
				return err
			}
			slog.Info("stored", "document", r.Name, "id", id, "changed", changed)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

// write exports g under Out/<document stem>/.
func (c *BuildCmd) write(name string, g *graph.Graph) error {
	dir := filepath.Join(c.Out, strings.TrimSuffix(name, filepath.Ext(name)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if c.Format == "json" || c.Format == "all" {
		data, err := export.JSON(g)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, "graph.json"), data, 0o644); err != nil {
			return err
		}
	}

	tables := export.Tabular(g)
	if c.Format == "csv" || c.Format == "all" {
		if err := tables.WriteCSV(dir); err != nil {
			return err
		}
	}
	if c.Format == "xlsx" || c.Format == "all" {
		f, err := os.Create(filepath.Join(dir, "graph.xlsx"))
		if err != nil {
			return err
		}
		if err := tables.WriteXLSX(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	nodes, edges := g.Len()
	slog.Info("exported", "document", name, "dir", dir, "nodes", nodes, "edges", edges)
	return nil
}

// SchemaCmd prints the JSON Schema of the exported graph document.
type SchemaCmd struct{}

func (c *SchemaCmd) Run(g *Globals) error {
	data, err := export.Schema()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// OutlineCmd prints the section tree of a stored graph.
type OutlineCmd struct {
	Name  string `arg:"" help:"Document name"`
	Depth int    `default:"-1" help:"Maximum section depth (-1 for all)"`
}

func (c *OutlineCmd) Run(g *Globals) error {
	st, err := openStore(g)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	gr, err := st.LoadGraph(ctx, c.Name)
	if err != nil {
		return err
	}
	counts, err := st.CountByType(ctx, c.Name)
	if err != nil {
		return err
	}

	var parts []string
	for _, t := range graph.NodeTypes {
		if n := counts[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", t, n))
		}
	}
	fmt.Printf("%s (%s)\n", c.Name, strings.Join(parts, " "))
	return writeOutline(os.Stdout, gr, c.Depth)
}

// writeOutline prints one line per section, indented by depth, with the
// number of entities nested below it.
func writeOutline(w io.Writer, g *graph.Graph, maxDepth int) error {
	root, ok := g.Root()
	if !ok {
		return errors.New("graph has no root section")
	}
	var walk func(n graph.Node, depth int) error
	walk = func(n graph.Node, depth int) error {
		if maxDepth >= 0 && depth > maxDepth {
			return nil
		}
		below := len(g.Descendants(n.ID, -1))
		if _, err := fmt.Fprintf(w, "%s%s [%d]\n", strings.Repeat("  ", depth), n.Text(graph.AttrTitle), below); err != nil {
			return err
		}
		for _, child := range g.Children(n.ID) {
			if child.Type != graph.TypeSection {
				continue
			}
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root, 0)
}

// ListCmd lists the stored graphs.
type ListCmd struct{}

func (c *ListCmd) Run(g *Globals) error {
	st, err := openStore(g)
	if err != nil {
		return err
	}
	defer st.Close()

	docs, err := st.ListDocuments(context.Background())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tNODES\tEDGES\tUPDATED\tKEY")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", d.Name, d.NodeCount, d.EdgeCount, d.UpdatedAt, d.Key)
	}
	return tw.Flush()
}

// DeleteCmd removes a stored graph.
type DeleteCmd struct {
	Name string `arg:"" help:"Document name"`
}

func (c *DeleteCmd) Run(g *Globals) error {
	st, err := openStore(g)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteDocument(context.Background(), c.Name); err != nil {
		return err
	}
	slog.Info("deleted", "document", c.Name)
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Printf("docgraph %s\n", version)
	return nil
}

func openStore(g *Globals) (*store.Store, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	return store.New(cfg.ResolveDBPath())
}
