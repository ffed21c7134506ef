// Package store persists assembled document graphs in SQLite.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/brunobiangulo/docgraph/graph"
)

// ErrDocumentNotFound is returned when no graph is stored under a name.
var ErrDocumentNotFound = errors.New("store: document not found")

// Document represents a row in the documents table.
type Document struct {
	ID          int64  `json:"id"`
	Key         string `json:"doc_key"`
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Store wraps the SQLite database holding document graphs.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DocumentKey returns the stable UUID (v5) identifying a document name
// across databases.
func DocumentKey(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docgraph:"+name)).String()
}

// --- Graph operations ---

// SaveGraph stores g under name, replacing any previous graph. When the
// stored fingerprint already matches, nothing is written and changed is
// false.
func (s *Store) SaveGraph(ctx context.Context, name string, g *graph.Graph) (id int64, changed bool, err error) {
	fp := g.Fingerprint()
	if doc, err := s.GetDocument(ctx, name); err == nil && doc.Fingerprint == fp {
		return doc.ID, false, nil
	} else if err != nil && !errors.Is(err, ErrDocumentNotFound) {
		return 0, false, err
	}

	nodes, edges := g.Nodes(), g.Edges()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (doc_key, name, fingerprint, node_count, edge_count)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				fingerprint = excluded.fingerprint,
				node_count = excluded.node_count,
				edge_count = excluded.edge_count,
				updated_at = CURRENT_TIMESTAMP
		`, DocumentKey(name), name, fp, len(nodes), len(edges)); err != nil {
			return fmt.Errorf("upserting document: %w", err)
		}
		if err := tx.QueryRowContext(ctx, "SELECT id FROM documents WHERE name = ?", name).Scan(&id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM edges WHERE document_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE document_id = ?", id); err != nil {
			return err
		}

		nodeStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO nodes (document_id, id, node_type, ord_page, ord_y, ord_seq, ord_sub, position, attributes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer nodeStmt.Close()
		for i, n := range nodes {
			attrs, err := json.Marshal(n.Attributes)
			if err != nil {
				return fmt.Errorf("encoding attributes of %s: %w", n.ID, err)
			}
			if _, err := nodeStmt.ExecContext(ctx, id, n.ID, string(n.Type),
				n.Order.Page, n.Order.Y, n.Order.Seq, n.Order.Sub, i, string(attrs)); err != nil {
				return fmt.Errorf("inserting node %s: %w", n.ID, err)
			}
		}

		edgeStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO edges (document_id, source_id, target_id, kind, position)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer edgeStmt.Close()
		for i, e := range edges {
			if _, err := edgeStmt.ExecContext(ctx, id, e.Source, e.Target, string(e.Kind), i); err != nil {
				return fmt.Errorf("inserting edge %s->%s: %w", e.Source, e.Target, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("store.SaveGraph: %w", err)
	}

	slog.Info("store: graph saved", "name", name, "id", id, "nodes", len(nodes), "edges", len(edges))
	return id, true, nil
}

// LoadGraph reads the graph stored under name. The graph is re-assembled,
// so referential integrity is checked again on the way out.
func (s *Store) LoadGraph(ctx context.Context, name string) (*graph.Graph, error) {
	doc, err := s.GetDocument(ctx, name)
	if err != nil {
		return nil, err
	}

	asm := graph.NewAssembler()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node_type, ord_page, ord_y, ord_seq, ord_sub, attributes
		FROM nodes WHERE document_id = ? ORDER BY position
	`, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("store.LoadGraph: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n     graph.Node
			typ   string
			attrs string
		)
		if err := rows.Scan(&n.ID, &typ, &n.Order.Page, &n.Order.Y, &n.Order.Seq, &n.Order.Sub, &attrs); err != nil {
			return nil, err
		}
		n.Type = graph.NodeType(typ)
		dec := json.NewDecoder(bytes.NewReader([]byte(attrs)))
		dec.UseNumber()
		if err := dec.Decode(&n.Attributes); err != nil {
			return nil, fmt.Errorf("store.LoadGraph: decoding attributes of %s: %w", n.ID, err)
		}
		if _, err := asm.AddNode(n); err != nil {
			return nil, fmt.Errorf("store.LoadGraph: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edges, err := s.db.QueryContext(ctx, `
		SELECT source_id, target_id, kind FROM edges WHERE document_id = ? ORDER BY position
	`, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("store.LoadGraph: %w", err)
	}
	defer edges.Close()

	for edges.Next() {
		var e graph.Edge
		var kind string
		if err := edges.Scan(&e.Source, &e.Target, &kind); err != nil {
			return nil, err
		}
		e.Kind = graph.Kind(kind)
		asm.AddEdge(e)
	}
	if err := edges.Err(); err != nil {
		return nil, err
	}

	g, err := asm.Build()
	if err != nil {
		return nil, fmt.Errorf("store.LoadGraph: %w", err)
	}
	return g, nil
}

// --- Document operations ---

// GetDocument retrieves a document by name.
func (s *Store) GetDocument(ctx context.Context, name string) (*Document, error) {
	doc := &Document{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, doc_key, name, fingerprint, node_count, edge_count, created_at, updated_at
		FROM documents WHERE name = ?
	`, name).Scan(&doc.ID, &doc.Key, &doc.Name, &doc.Fingerprint,
		&doc.NodeCount, &doc.EdgeCount, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrDocumentNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns all documents ordered by name.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_key, name, fingerprint, node_count, edge_count, created_at, updated_at
		FROM documents ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Key, &d.Name, &d.Fingerprint,
			&d.NodeCount, &d.EdgeCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; nodes and edges cascade.
func (s *Store) DeleteDocument(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrDocumentNotFound, name)
	}
	return nil
}

// CountByType returns the number of stored nodes per type for a document.
func (s *Store) CountByType(ctx context.Context, name string) (map[graph.NodeType]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.node_type, c.node_count FROM document_type_counts c
		JOIN documents d ON d.id = c.document_id
		WHERE d.name = ?
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[graph.NodeType]int)
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return nil, err
		}
		out[graph.NodeType(t)] = c
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
