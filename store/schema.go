package store

// schemaSQL is the DDL for all tables.
const schemaSQL = `
-- Document registry with fingerprint-based change detection
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    doc_key TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL UNIQUE,
    fingerprint TEXT NOT NULL,
    node_count INTEGER NOT NULL DEFAULT 0,
    edge_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Graph nodes; position is the canonical export order
CREATE TABLE IF NOT EXISTS nodes (
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    node_type TEXT NOT NULL,
    ord_page INTEGER NOT NULL,
    ord_y REAL NOT NULL,
    ord_seq INTEGER NOT NULL,
    ord_sub INTEGER NOT NULL,
    position INTEGER NOT NULL,
    attributes JSON NOT NULL,
    PRIMARY KEY (document_id, id)
);

-- Typed edges between nodes of the same document
CREATE TABLE IF NOT EXISTS edges (
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (document_id, source_id, target_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(document_id, node_type);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(document_id, target_id);
`
