// Package pipeline composes the full course build: snapshot, discovery,
// cache, extraction and classification, clustering per level, content
// assembly, and export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coursecraft/coursecraft-mcp/internal/builder"
	"github.com/coursecraft/coursecraft-mcp/internal/classify"
	"github.com/coursecraft/coursecraft-mcp/internal/cluster"
	"github.com/coursecraft/coursecraft-mcp/internal/course"
	"github.com/coursecraft/coursecraft-mcp/internal/repo"
	"github.com/coursecraft/coursecraft-mcp/internal/storage"
	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// Pipeline errors
var (
	ErrNoDocuments = errors.New("no documentation discovered")
	ErrNoCourses   = errors.New("no courses could be exported")
)

// Options controls one pipeline run
type Options struct {
	Source         string             // local path or git URL
	Output         string             // export root for generated courses
	Rebuild        bool               // bypass the tree cache
	Update         bool               // refresh an existing clone
	IncludeFolders []string           // optional folder allow-list for discovery
	OverviewDoc    string             // named overview document for context
	BatchSize      int                // classification batch size
	Levels         []types.Complexity // levels to generate; default all
}

// Result summarizes one pipeline run
type Result struct {
	RepoName     string
	Documents    int
	SoftFailures int
	HardFailures int
	FromCache    bool
	Courses      []types.Complexity
	Duration     time.Duration
}

// Pipeline wires the build stages together
type Pipeline struct {
	store    storage.Storage
	factory  classify.Factory
	logger   *zap.Logger
	cacheDir string
}

// New creates a Pipeline. The store may be nil, disabling the tree cache.
func New(store storage.Storage, factory classify.Factory, cacheDir string, logger *zap.Logger) *Pipeline {
	return &Pipeline{store: store, factory: factory, cacheDir: cacheDir, logger: logger}
}

// Run executes the full build. It hard-fails only at the boundaries the
// learner cannot work around: nothing discovered, nothing classified,
// nothing exported. Everything in between degrades.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	snap, err := repo.Prepare(ctx, p.logger, opts.Source, p.cacheDir, opts.Update)
	if err != nil {
		return nil, err
	}

	tree, result, err := p.obtainTree(ctx, snap, opts)
	if err != nil {
		return nil, err
	}
	result.RepoName = snap.Name

	overview := repo.ReadOverview(snap.Root, opts.OverviewDoc)

	levels := opts.Levels
	if len(levels) == 0 {
		levels = types.AllComplexities()
	}

	svc, err := p.factory()
	if err != nil {
		p.logger.Warn("content service unavailable, clustering falls back to heuristics",
			zap.Error(err))
		svc = classify.NewStaticService(nil)
	}
	defer svc.Close()

	clusterer := cluster.New(svc, p.logger)
	assembler := course.NewAssembler(p.factory, p.logger)
	exporter := course.NewExporter(p.logger)

	for _, level := range levels {
		modules, err := clusterer.Cluster(ctx, tree, level, overview)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("skipping level, no modules",
				zap.String("level", string(level)), zap.Error(err))
			continue
		}

		plan := clusterer.BuildCourse(ctx, tree, level, modules)
		gen, err := assembler.Assemble(ctx, tree, plan)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("skipping level, assembly failed",
				zap.String("level", string(level)), zap.Error(err))
			continue
		}

		if _, err := exporter.Export(gen, opts.Output); err != nil {
			p.logger.Warn("skipping level, export failed",
				zap.String("level", string(level)), zap.Error(err))
			continue
		}
		result.Courses = append(result.Courses, level)
	}

	if len(result.Courses) == 0 {
		return nil, fmt.Errorf("%w: from %d documents", ErrNoCourses, tree.Len())
	}

	result.Duration = time.Since(start)
	p.logger.Info("pipeline complete",
		zap.String("repo", snap.Name),
		zap.Int("documents", result.Documents),
		zap.Int("courses", len(result.Courses)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// obtainTree loads the cached tree unless a rebuild is forced, otherwise
// builds from source and refreshes the cache. Cache failures of any kind
// are misses, never fatal.
func (p *Pipeline) obtainTree(ctx context.Context, snap *repo.Snapshot, opts Options) (*types.DocumentTree, *Result, error) {
	result := &Result{}

	if !opts.Rebuild && p.store != nil {
		tree, err := p.store.LoadTree(ctx, snap.Key)
		if err == nil {
			p.logger.Info("using cached document tree",
				zap.String("repo", snap.Name), zap.Int("documents", tree.Len()))
			result.Documents = tree.Len()
			result.FromCache = true
			return tree, result, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			p.logger.Warn("tree cache unreadable, rebuilding", zap.Error(err))
		}
	}

	paths, err := repo.Discover(snap.Root, opts.IncludeFolders)
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("%w: under %s", ErrNoDocuments, snap.Root)
	}

	overview := repo.ReadOverview(snap.Root, opts.OverviewDoc)
	b := builder.New(p.factory, p.logger, builder.Config{BatchSize: opts.BatchSize})
	tree, stats, err := b.Build(ctx, snap.Key, snap.Name, snap.Root, paths, overview)
	if err != nil {
		return nil, nil, err
	}

	result.Documents = stats.Processed
	result.SoftFailures = stats.SoftFailures
	result.HardFailures = len(stats.HardFailures)

	if p.store != nil {
		if err := p.store.SaveTree(ctx, tree); err != nil {
			p.logger.Warn("failed to cache document tree", zap.Error(err))
		}
	}

	return tree, result, nil
}
