// Package export serializes an assembled graph into tabular rows (CSV,
// XLSX) and a JSON node/edge document. Every adapter is a pure function
// of the graph.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/docgraph/graph"
)

// Table is one flat row set with a fixed header.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Tables holds the unified node and edge tables plus one table per node
// type and per edge kind, always in canonical order.
type Tables struct {
	Nodes       Table
	Edges       Table
	NodesByType []Table
	EdgesByKind []Table
}

// All returns every table: all_nodes, all_edges, then per-type node
// tables, then per-kind edge tables.
func (t *Tables) All() []Table {
	out := []Table{t.Nodes, t.Edges}
	out = append(out, t.NodesByType...)
	return append(out, t.EdgesByKind...)
}

// Table returns the table with the given name.
func (t *Tables) Table(name string) (Table, bool) {
	for _, tb := range t.All() {
		if tb.Name == name {
			return tb, true
		}
	}
	return Table{}, false
}

var edgeColumns = []string{"source_id", "target_id", "kind"}

// Tabular flattens g into node and edge rows. Node columns are id, type
// and the attribute columns of the schema, empty where inapplicable.
func Tabular(g *graph.Graph) *Tables {
	all := graph.AllColumns()
	t := &Tables{
		Nodes: Table{Name: "all_nodes", Columns: append([]string{"id", "type"}, all...)},
		Edges: Table{Name: "all_edges", Columns: edgeColumns},
	}

	byType := make(map[graph.NodeType]*Table, len(graph.NodeTypes))
	for _, nt := range graph.NodeTypes {
		t.NodesByType = append(t.NodesByType, Table{
			Name:    "nodes_" + snake(string(nt)),
			Columns: append([]string{"id", "type"}, graph.Columns(nt)...),
		})
	}
	for i, nt := range graph.NodeTypes {
		byType[nt] = &t.NodesByType[i]
	}

	byKind := make(map[graph.Kind]*Table, len(graph.Kinds))
	for _, k := range graph.Kinds {
		t.EdgesByKind = append(t.EdgesByKind, Table{
			Name:    "edges_" + strings.ToLower(string(k)),
			Columns: edgeColumns,
		})
	}
	for i, k := range graph.Kinds {
		byKind[k] = &t.EdgesByKind[i]
	}

	for _, n := range g.Nodes() {
		t.Nodes.Rows = append(t.Nodes.Rows, nodeRow(n, all))
		if tb := byType[n.Type]; tb != nil {
			tb.Rows = append(tb.Rows, nodeRow(n, graph.Columns(n.Type)))
		}
	}
	for _, e := range g.Edges() {
		row := []string{e.Source, e.Target, string(e.Kind)}
		t.Edges.Rows = append(t.Edges.Rows, row)
		if tb := byKind[e.Kind]; tb != nil {
			tb.Rows = append(tb.Rows, row)
		}
	}
	return t
}

func nodeRow(n graph.Node, cols []string) []string {
	row := make([]string, 0, len(cols)+2)
	row = append(row, n.ID, string(n.Type))
	for _, c := range cols {
		row = append(row, n.Text(c))
	}
	return row
}

// snake converts "ReferenceTarget" to "reference_target".
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// WriteCSV writes the header and rows of t.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("export: writing %s: %w", t.Name, err)
	}
	return nil
}

// WriteCSV writes one <name>.csv file per table into dir, creating it
// when needed.
func (t *Tables) WriteCSV(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("export: creating %s: %w", dir, err)
	}
	for _, tb := range t.All() {
		if err := writeCSVFile(filepath.Join(dir, tb.Name+".csv"), tb); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVFile(path string, tb Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := tb.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteXLSX writes every table as a sheet of one workbook.
func (t *Tables) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, tb := range t.All() {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), tb.Name); err != nil {
				return fmt.Errorf("export: naming sheet %s: %w", tb.Name, err)
			}
		} else if _, err := f.NewSheet(tb.Name); err != nil {
			return fmt.Errorf("export: adding sheet %s: %w", tb.Name, err)
		}
		if err := writeSheet(f, tb); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, tb Table) error {
	rows := append([][]string{tb.Columns}, tb.Rows...)
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(row))
		for i, v := range row {
			vals[i] = v
		}
		if err := f.SetSheetRow(tb.Name, cell, &vals); err != nil {
			return fmt.Errorf("export: sheet %s row %d: %w", tb.Name, r+1, err)
		}
	}
	return nil
}
