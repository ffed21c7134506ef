package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

type migration struct {
	version     int
	description string
	stmts       []string
}

// migrations run in version order after schemaSQL. Append only.
var migrations = []migration{
	{version: 1, description: "initial schema"},
	{
		version:     2,
		description: "index edges by kind",
		stmts: []string{
			"CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(document_id, kind)",
		},
	},
	{
		version:     3,
		description: "node counts per document and type",
		stmts: []string{
			`CREATE VIEW IF NOT EXISTS document_type_counts AS
				SELECT document_id, node_type, COUNT(*) AS node_count
				FROM nodes GROUP BY document_id, node_type`,
		},
	},
}

const versionTableSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	description TEXT,
	applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// Migrate applies every migration newer than the recorded version, each
// in its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, versionTableSQL); err != nil {
		return fmt.Errorf("store.Migrate: creating schema_version: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("store.Migrate: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		slog.Info("store: applying migration", "version", m.version, "description", m.description)
		if err := s.inTx(ctx, func(tx *sql.Tx) error { return m.apply(ctx, tx) }); err != nil {
			return fmt.Errorf("store.Migrate: %w", err)
		}
	}
	return nil
}

func (m migration) apply(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, description) VALUES (?, ?)",
		m.version, m.description)
	if err != nil {
		return fmt.Errorf("recording migration %d: %w", m.version, err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}
