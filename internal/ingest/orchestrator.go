package ingest

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docent-ai/docent/internal/content"
	"github.com/docent-ai/docent/internal/log"
)

// Policy decides whether a URL needs (re-)ingestion and performs it.
type Policy interface {
	IngestURIIfNeeded(ctx context.Context, uri string) (*content.Node, error)
}

// Store is the slice of the chunk store the orchestrator writes through.
type Store interface {
	WriteAndChunkDocument(ctx context.Context, root *content.Node) error
}

// DirectoryParser parses every supported file under a directory.
type DirectoryParser interface {
	ParseDirectory(dir string) (*content.DirectoryResult, error)
}

// Config holds the reference sources and tuning for a run. Directories must
// already be resolved to absolute paths.
type Config struct {
	URLs        []string
	Directories []string
	// Concurrency bounds parallel URL ingestion; <= 0 means 4.
	Concurrency int
}

// Orchestrator runs bulk ingestion over the configured sources. Failures
// are isolated at two levels: a failed URL or directory never aborts the
// run, and a failed document never fails its directory.
type Orchestrator struct {
	policy      Policy
	store       Store
	parser      DirectoryParser
	urls        []string
	directories []string
	concurrency int
	logger      log.Logger
}

// New creates an Orchestrator.
func New(policy Policy, store Store, parser DirectoryParser, cfg Config, logger log.Logger) *Orchestrator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Orchestrator{
		policy:      policy,
		store:       store,
		parser:      parser,
		urls:        append([]string(nil), cfg.URLs...),
		directories: append([]string(nil), cfg.Directories...),
		concurrency: concurrency,
		logger:      logger,
	}
}

// LoadReferences ingests every configured URL and directory. URLs run with
// bounded parallelism; directories run sequentially after. The result
// attributes every item correctly regardless of completion order.
func (o *Orchestrator) LoadReferences(ctx context.Context) *Result {
	start := time.Now()
	result := &Result{}

	var mu sync.Mutex
	g := errgroup.Group{}
	g.SetLimit(o.concurrency)

	for _, url := range o.urls {
		g.Go(func() error {
			o.logger.Info("loading url", "url", url)
			_, err := o.policy.IngestURIIfNeeded(ctx, url)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				o.logger.Error("url ingestion failed", "url", url, "error", err)
				result.FailedURLs = append(result.FailedURLs, FailureFromError(url, err))
				return nil
			}
			result.LoadedURLs = append(result.LoadedURLs, url)
			return nil
		})
	}
	_ = g.Wait()

	// Deterministic ordering for the summary banner.
	sort.Strings(result.LoadedURLs)
	sort.Slice(result.FailedURLs, func(i, j int) bool {
		return result.FailedURLs[i].Source < result.FailedURLs[j].Source
	})

	for _, dir := range o.directories {
		docFailures, err := o.IngestDirectory(ctx, dir)
		if err != nil {
			o.logger.Error("directory ingestion failed", "dir", dir, "error", err)
			result.FailedDirectories = append(result.FailedDirectories, FailureFromError(dir, err))
			continue
		}
		result.IngestedDirectories = append(result.IngestedDirectories, dir)
		result.FailedDocuments = append(result.FailedDocuments, docFailures...)
	}

	result.Elapsed = time.Since(start)
	o.logger.Info("ingestion run complete",
		"loaded_urls", len(result.LoadedURLs),
		"failed_urls", len(result.FailedURLs),
		"ingested_directories", len(result.IngestedDirectories),
		"failed_directories", len(result.FailedDirectories),
		"failed_documents", len(result.FailedDocuments),
		"elapsed", result.Elapsed)
	return result
}

// IngestDirectory parses and writes every supported document under dir.
// Per-document failures (parse or write) are returned; only an unreadable
// directory is an error.
func (o *Orchestrator) IngestDirectory(ctx context.Context, dir string) ([]Failure, error) {
	parsed, err := o.parser.ParseDirectory(dir)
	if err != nil {
		return nil, err
	}

	var failures []Failure
	for _, f := range parsed.Failures {
		failures = append(failures, FailureFromError(f.Path, f.Err))
	}
	for _, root := range parsed.Roots {
		if err := o.store.WriteAndChunkDocument(ctx, root); err != nil {
			o.logger.Error("document write failed", "uri", root.URI, "error", err)
			failures = append(failures, FailureFromError(root.URI, err))
			continue
		}
		o.logger.Info("ingested document", "uri", root.URI, "elements", root.ElementCount())
	}
	return failures, nil
}
