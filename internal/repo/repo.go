// Package repo provides repository snapshots and documentation discovery.
// A source is either a local directory, used in place, or a git URL,
// cloned into a cache directory and refreshed on demand.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Common errors
var (
	ErrSourceNotFound = errors.New("source not found")
	ErrNoDocuments    = errors.New("no documentation files found")
)

// Directory names never descended into during discovery
var excludedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"build":        true,
	"dist":         true,
	"target":       true,
	"tests":        true,
	"test":         true,
	"__pycache__":  true,
}

// Filename stems excluded from courses regardless of location
var excludedStems = map[string]bool{
	"license":         true,
	"licence":         true,
	"contributing":    true,
	"code_of_conduct": true,
	"security":        true,
	"notice":          true,
}

// Snapshot is a prepared local copy of a documentation source
type Snapshot struct {
	// Root is the local directory holding the documentation
	Root string
	// Name is a short human label derived from the source
	Name string
	// Key stably identifies the source across builds
	Key string
	// Cloned reports whether the snapshot lives in the cache dir
	Cloned bool
}

// Prepare resolves a source into a local snapshot. Local directories are
// used as-is. Git URLs are cloned under cacheDir; when a clone already
// exists and update is set, a pull is attempted and a pull failure only
// logs a warning, the stale snapshot is still served.
func Prepare(ctx context.Context, logger *zap.Logger, source, cacheDir string, update bool) (*Snapshot, error) {
	if isGitURL(source) {
		return prepareClone(ctx, logger, source, cacheDir, update)
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolving source path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceNotFound, source)
	}

	return &Snapshot{
		Root: abs,
		Name: filepath.Base(abs),
		Key:  sourceKey(abs),
	}, nil
}

func prepareClone(ctx context.Context, logger *zap.Logger, url, cacheDir string, update bool) (*Snapshot, error) {
	name := repoNameFromURL(url)
	dest := filepath.Join(cacheDir, "repos", name)

	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		if update {
			if out, err := gitRun(ctx, dest, "pull", "--ff-only"); err != nil {
				logger.Warn("git pull failed, serving stale snapshot",
					zap.String("repo", name),
					zap.String("output", strings.TrimSpace(out)),
					zap.Error(err))
			}
		}
		return &Snapshot{Root: dest, Name: name, Key: sourceKey(url), Cloned: true}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	if out, err := gitRun(ctx, "", "clone", "--depth", "1", url, dest); err != nil {
		return nil, fmt.Errorf("git clone failed: %s: %w", strings.TrimSpace(out), err)
	}
	logger.Info("cloned repository", zap.String("repo", name), zap.String("dest", dest))

	return &Snapshot{Root: dest, Name: name, Key: sourceKey(url), Cloned: true}, nil
}

func gitRun(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Discover walks root for markdown documentation, applying the exclusion
// rules and an optional folder allow-list, and returns sorted paths
// relative to root.
func Discover(root string, includeFolders []string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if excludedDirs[strings.ToLower(name)] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".md" && ext != ".mdx" {
			return nil
		}
		stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		if excludedStems[stem] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !folderAllowed(rel, includeFolders) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// folderAllowed applies the include allow-list. Root-level documents are
// always allowed so a README survives any filter.
func folderAllowed(rel string, includeFolders []string) bool {
	if len(includeFolders) == 0 {
		return true
	}
	if !strings.Contains(rel, "/") {
		return true
	}
	for _, f := range includeFolders {
		f = strings.Trim(filepath.ToSlash(f), "/")
		if f == "" {
			continue
		}
		if rel == f || strings.HasPrefix(rel, f+"/") {
			return true
		}
	}
	return false
}

// ReadOverview returns the content of the named overview document, or of
// a root README when no name is given. Missing overview is not an error.
func ReadOverview(root, overviewDoc string) string {
	candidates := []string{overviewDoc}
	if overviewDoc == "" {
		candidates = []string{"README.md", "readme.md", "README.mdx", "index.md"}
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(c)))
		if err == nil {
			return string(data)
		}
	}
	return ""
}

func isGitURL(source string) bool {
	return strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasSuffix(source, ".git")
}

// repoNameFromURL derives a filesystem-safe directory name from a git URL
func repoNameFromURL(url string) string {
	trimmed := strings.TrimSuffix(url, ".git")
	trimmed = strings.TrimSuffix(trimmed, "/")
	if i := strings.LastIndexAny(trimmed, "/:"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		return "repo"
	}
	return trimmed
}

// sourceKey produces the stable identity used by the tree cache
func sourceKey(source string) string {
	key := strings.ToLower(source)
	key = strings.TrimSuffix(key, ".git")
	for _, prefix := range []string{"https://", "http://", "git@"} {
		key = strings.TrimPrefix(key, prefix)
	}
	return strings.NewReplacer(":", "/", "\\", "/").Replace(key)
}
