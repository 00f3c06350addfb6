// Package builder turns discovered documentation paths into a classified
// DocumentTree. It runs in two phases: a CPU-bound pool reads and
// extracts structure, then an I/O-bound pool classifies documents in
// sequential batches against the content service.
package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coursecraft/coursecraft-mcp/internal/classify"
	"github.com/coursecraft/coursecraft-mcp/internal/extract"
	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// ErrNoDocuments is returned when no document survives the build
var ErrNoDocuments = errors.New("no documents could be processed")

// DefaultBatchSize is the classification batch size when none is given
const DefaultBatchSize = 10

// Config contains builder configuration
type Config struct {
	Workers   int // CPU pool size for extraction (default: runtime.NumCPU())
	BatchSize int // documents per classification batch (default: 10)
}

// DocumentError records one document that could not be ingested
type DocumentError struct {
	Path string
	Err  error
}

func (e DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Stats summarizes one build
type Stats struct {
	Discovered   int
	Processed    int
	HardFailures []DocumentError // unreadable documents, excluded from the tree
	SoftFailures int             // classification fell back to heuristics
	Duration     time.Duration
}

// Builder coordinates extraction and classification
type Builder struct {
	factory classify.Factory
	logger  *zap.Logger
	cfg     Config
}

// New creates a Builder. The factory is invoked once per classification
// worker so each goroutine owns its service client.
func New(factory classify.Factory, logger *zap.Logger, cfg Config) *Builder {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Builder{factory: factory, logger: logger, cfg: cfg}
}

// Build reads, extracts, and classifies the given documents. Unreadable
// documents are recorded as hard failures and skipped; classification
// failures degrade to heuristic analyses and never remove a document.
// The build as a whole fails only when nothing survives.
func (b *Builder) Build(ctx context.Context, repoKey, repoName, root string, paths []string, overview string) (*types.DocumentTree, *Stats, error) {
	start := time.Now()
	stats := &Stats{Discovered: len(paths)}
	tree := types.NewDocumentTree(repoKey, repoName, root)

	records, hardFailures := b.extractAll(ctx, root, paths)
	stats.HardFailures = hardFailures

	if len(records) == 0 {
		stats.Duration = time.Since(start)
		return nil, stats, fmt.Errorf("%w: %d discovered, %d unreadable",
			ErrNoDocuments, len(paths), len(hardFailures))
	}

	soft, err := b.classifyAll(ctx, records, overview)
	if err != nil {
		stats.Duration = time.Since(start)
		return nil, stats, err
	}
	stats.SoftFailures = soft

	for _, rec := range records {
		tree.Add(rec)
	}
	stats.Processed = tree.Len()
	stats.Duration = time.Since(start)

	b.logger.Info("build complete",
		zap.String("repo", repoName),
		zap.Int("documents", stats.Processed),
		zap.Int("hard_failures", len(stats.HardFailures)),
		zap.Int("soft_failures", stats.SoftFailures),
		zap.Duration("duration", stats.Duration))

	return tree, stats, nil
}

// extractAll is phase 1: a CPU pool reads each file and extracts
// structure. Read failures become per-document errors; extraction itself
// is total.
func (b *Builder) extractAll(ctx context.Context, root string, paths []string) ([]*types.DocumentRecord, []DocumentError) {
	var mu sync.Mutex
	records := make([]*types.DocumentRecord, 0, len(paths))
	var failures []DocumentError

	semaphore := make(chan struct{}, b.cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			select {
			case semaphore <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-semaphore }()

			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
			if err != nil {
				mu.Lock()
				failures = append(failures, DocumentError{Path: path, Err: err})
				mu.Unlock()
				b.logger.Warn("skipping unreadable document",
					zap.String("path", path), zap.Error(err))
				return nil
			}

			content := string(data)
			rec := &types.DocumentRecord{
				ID:        uuid.NewString(),
				Path:      path,
				Filename:  filepath.Base(path),
				ParentDir: parentDir(path),
				Content:   content,
				Meta:      extract.Extract(content, path),
			}

			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}

	// Pool errors can only come from context cancellation; partially
	// collected records are still returned to the caller
	_ = g.Wait()

	return records, failures
}

// classifyAll is phase 2: sequential batches, one goroutine per document
// within a batch, a fresh service client per goroutine. A batch fully
// completes before the next one starts. Returns the soft-failure count.
func (b *Builder) classifyAll(ctx context.Context, records []*types.DocumentRecord, overview string) (int, error) {
	var softFailures atomic.Int32

	for batchStart := 0; batchStart < len(records); batchStart += b.cfg.BatchSize {
		end := batchStart + b.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[batchStart:end]

		var succeeded atomic.Int32
		g, gctx := errgroup.WithContext(ctx)

		for _, rec := range batch {
			rec := rec
			g.Go(func() error {
				svc, err := b.factory()
				if err != nil {
					// No provider at all still yields a usable tree
					b.applyFallback(rec, err)
					softFailures.Add(1)
					return nil
				}
				defer svc.Close()

				analysis, err := svc.AnalyzeDocument(gctx, classify.AnalyzeRequest{
					Path:     rec.Path,
					Title:    rec.Meta.Title,
					Content:  rec.Content,
					Headings: rec.Meta.Headings,
				})
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					b.applyFallback(rec, err)
					softFailures.Add(1)
					return nil
				}

				applyAnalysis(rec, analysis)
				succeeded.Add(1)
				return nil
			})
		}

		// Full-batch barrier
		if err := g.Wait(); err != nil {
			return int(softFailures.Load()), err
		}

		b.logger.Info("classified batch",
			zap.Int("batch_start", batchStart),
			zap.Int("batch_size", len(batch)),
			zap.Int32("succeeded", succeeded.Load()),
			zap.Int32("soft_failures", softFailures.Load()))
	}

	return int(softFailures.Load()), nil
}

func (b *Builder) applyFallback(rec *types.DocumentRecord, cause error) {
	b.logger.Warn("classification fell back to heuristics",
		zap.String("path", rec.Path), zap.Error(cause))
	analysis := classify.FallbackAnalysis(rec.Path, rec.Meta)
	applyAnalysis(rec, analysis)
	rec.Meta.Fallback = true
}

// applyAnalysis copies an analysis into the record, field by field with
// per-field fallbacks so a partially valid response still contributes
func applyAnalysis(rec *types.DocumentRecord, a *classify.Analysis) {
	fallback := classify.FallbackAnalysis(rec.Path, rec.Meta)

	rec.Meta.Summary = a.Summary
	if rec.Meta.Summary == "" {
		rec.Meta.Summary = fallback.Summary
	}
	rec.Meta.KeyConcepts = a.KeyConcepts
	if len(rec.Meta.KeyConcepts) == 0 {
		rec.Meta.KeyConcepts = fallback.KeyConcepts
	}
	rec.Meta.Objectives = a.Objectives
	if len(rec.Meta.Objectives) == 0 {
		rec.Meta.Objectives = fallback.Objectives
	}
	rec.Meta.DocType = types.ParseDocumentType(a.DocType,
		types.ParseDocumentType(fallback.DocType, types.DocOther))
}

func parentDir(path string) string {
	dir := filepath.ToSlash(filepath.Dir(path))
	if dir == "." {
		return ""
	}
	return dir
}
