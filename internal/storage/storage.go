package storage

import (
	"context"
	"time"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// Storage persists built document trees between runs. It is a cache, not
// an authority: callers treat every load or decode failure as a cache
// miss and rebuild from source.
type Storage interface {
	// SaveTree replaces the stored tree for the tree's repo key in one
	// transaction
	SaveTree(ctx context.Context, tree *types.DocumentTree) error

	// LoadTree returns the stored tree for a repo key, or ErrNotFound
	LoadTree(ctx context.Context, repoKey string) (*types.DocumentTree, error)

	// DeleteTree removes the stored tree for a repo key, if any
	DeleteTree(ctx context.Context, repoKey string) error

	// ListRepos returns summaries of all cached trees
	ListRepos(ctx context.Context) ([]RepoSummary, error)

	// Close closes the underlying database
	Close() error
}

// RepoSummary describes one cached tree
type RepoSummary struct {
	RepoKey   string
	RepoName  string
	RootPath  string
	DocCount  int
	BuiltAt   time.Time
	UpdatedAt time.Time
}
