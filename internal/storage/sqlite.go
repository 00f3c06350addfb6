package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when no tree is cached for a repo key
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens the tree cache and applies migrations
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveTree replaces the stored tree for the tree's repo key. The delete
// and all inserts run in one transaction so readers never see a partial
// tree.
func (s *SQLiteStorage) SaveTree(ctx context.Context, tree *types.DocumentTree) error {
	if tree == nil || tree.RepoKey == "" {
		return fmt.Errorf("invalid tree: missing repo key")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO repos (repo_key, repo_name, root_path, doc_count, built_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_key) DO UPDATE SET
			repo_name = excluded.repo_name,
			root_path = excluded.root_path,
			doc_count = excluded.doc_count,
			built_at = excluded.built_at,
			updated_at = excluded.updated_at`,
		tree.RepoKey, tree.RepoName, tree.RootPath, tree.Len(), tree.BuiltAt, now, now); err != nil {
		return fmt.Errorf("upserting repo: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents WHERE repo_key = ?", tree.RepoKey); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (repo_key, doc_id, path, filename, parent_dir, content, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, path := range tree.Paths() {
		rec := tree.Records[path]
		meta, err := json.Marshal(rec.Meta)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", path, err)
		}
		if _, err := stmt.ExecContext(ctx,
			tree.RepoKey, rec.ID, rec.Path, rec.Filename, rec.ParentDir,
			rec.Content, string(meta)); err != nil {
			return fmt.Errorf("inserting document %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tree: %w", err)
	}
	return nil
}

// LoadTree returns the stored tree for a repo key
func (s *SQLiteStorage) LoadTree(ctx context.Context, repoKey string) (*types.DocumentTree, error) {
	var (
		repoName string
		rootPath string
		builtAt  time.Time
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT repo_name, root_path, built_at FROM repos WHERE repo_key = ?", repoKey).
		Scan(&repoName, &rootPath, &builtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: repo %s", ErrNotFound, repoKey)
	}
	if err != nil {
		return nil, fmt.Errorf("loading repo: %w", err)
	}

	tree := types.NewDocumentTree(repoKey, repoName, rootPath)
	tree.BuiltAt = builtAt

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, path, filename, parent_dir, content, meta
		FROM documents WHERE repo_key = ? ORDER BY path`, repoKey)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec types.DocumentRecord
		var metaJSON string
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Filename, &rec.ParentDir,
			&rec.Content, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &rec.Meta); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", rec.Path, err)
		}
		tree.Add(&rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	if tree.Len() == 0 {
		return nil, fmt.Errorf("%w: repo %s has no documents", ErrNotFound, repoKey)
	}
	return tree, nil
}

// DeleteTree removes the stored tree for a repo key, if any
func (s *SQLiteStorage) DeleteTree(ctx context.Context, repoKey string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM repos WHERE repo_key = ?", repoKey); err != nil {
		return fmt.Errorf("deleting repo: %w", err)
	}
	return nil
}

// ListRepos returns summaries of all cached trees
func (s *SQLiteStorage) ListRepos(ctx context.Context) ([]RepoSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT repo_key, repo_name, root_path, doc_count, built_at, updated_at
		FROM repos ORDER BY repo_name`)
	if err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}
	defer rows.Close()

	var repos []RepoSummary
	for rows.Next() {
		var r RepoSummary
		if err := rows.Scan(&r.RepoKey, &r.RepoName, &r.RootPath,
			&r.DocCount, &r.BuiltAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning repo: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}
