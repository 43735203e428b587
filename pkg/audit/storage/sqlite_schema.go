package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
// The audit_entries table is append-only: the engine never issues UPDATE or
// DELETE against it.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    timestamp TIMESTAMP NOT NULL,
    event TEXT NOT NULL,
    detector TEXT NOT NULL,
    tier TEXT NOT NULL,
    confidence REAL NOT NULL,
    details TEXT,
    shadow BOOLEAN NOT NULL,
    approved BOOLEAN NOT NULL,
    action_taken TEXT,
    mode TEXT NOT NULL,
    approval_id TEXT,
    reviewer TEXT,
    notes TEXT,
    reviewed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_detector ON audit_entries(detector);
CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_entries(event);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_tier ON audit_entries(tier);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
