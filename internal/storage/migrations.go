package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// CurrentSchemaVersion tracks the database schema version
const CurrentSchemaVersion = 1

// migrations are applied by position; schema_version records the highest
// applied version
var migrations = []string{
	migrationV1,
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS repos (
    repo_key TEXT PRIMARY KEY,
    repo_name TEXT NOT NULL,
    root_path TEXT NOT NULL,
    doc_count INTEGER NOT NULL DEFAULT 0,
    built_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repo_key TEXT NOT NULL,
    doc_id TEXT NOT NULL,
    path TEXT NOT NULL,
    filename TEXT NOT NULL,
    parent_dir TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    meta TEXT NOT NULL,
    FOREIGN KEY (repo_key) REFERENCES repos(repo_key) ON DELETE CASCADE,
    UNIQUE(repo_key, path)
);

CREATE INDEX IF NOT EXISTS idx_documents_repo ON documents(repo_key);
CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(repo_key, parent_dir);
`

// ApplyMigrations brings the database schema up to the current version
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
		    version INTEGER PRIMARY KEY,
		    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var applied int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&applied)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := applied; i < len(migrations); i++ {
		version := i + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}
