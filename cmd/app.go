package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/docent-ai/docent/internal/chat"
	"github.com/docent-ai/docent/internal/config"
	"github.com/docent-ai/docent/internal/content"
	"github.com/docent-ai/docent/internal/identity"
	"github.com/docent-ai/docent/internal/ingest"
	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/reference"
	"github.com/docent-ai/docent/internal/refresh"
	"github.com/docent-ai/docent/internal/store"
)

// app holds the wired application components shared by the commands.
type app struct {
	cfg          *config.Config
	logger       log.Logger
	pg           *store.Postgres
	store        *store.Store
	catalog      *reference.Catalog
	orchestrator *ingest.Orchestrator
	runner       *ingest.Runner
	session      *chat.Session
	resolver     *identity.Resolver
}

// setup loads configuration and wires every component. The returned app
// must be closed to release the connection pool.
func setup(ctx context.Context, logger log.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)

	pg, err := store.NewPostgres(ctx, cfg.ConnString(), logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	st := store.New(pg, embedder, store.Config{
		TopK:                cfg.Retrieval.TopK,
		SimilarityThreshold: float32(cfg.Retrieval.SimilarityThreshold),
		MaxLatency:          time.Duration(cfg.Retrieval.MaxLatencyMs) * time.Millisecond,
	}, logger)

	parser := content.NewParser(nil)
	fetcher := content.NewFetcher(parser, &http.Client{
		Timeout: time.Duration(cfg.FetchTimeoutMs) * time.Millisecond,
	}, logger)
	policy := refresh.NewPolicy(cfg.SnapshotPatterns, st, fetcher, logger)

	directories, err := cfg.ResolvedDirectories()
	if err != nil {
		pg.Close()
		return nil, err
	}
	orchestrator := ingest.New(policy, st, parser, ingest.Config{
		URLs:        cfg.URLs,
		Directories: directories,
		Concurrency: cfg.FetchParallelism,
	}, logger)
	runner := ingest.NewRunner(orchestrator, st, cfg.Addr, os.Stdout, logger)

	catalog, warnings, err := setupCatalog(ctx, cfg, st, logger)
	if err != nil {
		pg.Close()
		return nil, err
	}
	for _, w := range warnings {
		logger.Warn("reference unavailable", "source", w.Source, "reason", w.Reason)
	}

	resolver := identity.NewResolver(identity.NewPostgresRepository(pg.Pool()), logger)

	completer := chat.NewGenkitCompleter(g, cfg.FullModelName())
	session := chat.NewSession(completer, st, catalog, chat.Config{
		DefaultPersona:      cfg.DefaultPersona,
		TopK:                cfg.Retrieval.TopK,
		SimilarityThreshold: float32(cfg.Retrieval.SimilarityThreshold),
		MaxLatency:          time.Duration(cfg.Retrieval.MaxLatencyMs) * time.Millisecond,
	}, logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		pg:           pg,
		store:        st,
		catalog:      catalog,
		orchestrator: orchestrator,
		runner:       runner,
		session:      session,
		resolver:     resolver,
	}, nil
}

func (a *app) Close() {
	a.pg.Close()
}

// setupCatalog builds the reference catalog. A references file that simply
// does not exist is not fatal; configured package dirs and repositories are
// still assembled.
func setupCatalog(ctx context.Context, cfg *config.Config, st *store.Store, logger log.Logger) (*reference.Catalog, []reference.InitWarning, error) {
	refCfg := reference.Config{
		ReferencesFile: cfg.ReferencesFile,
		CloneDir:       cfg.CloneDir,
		PackageDirs:    cfg.APIPackageDirs,
		Repositories:   cfg.Repositories,
	}
	if refCfg.ReferencesFile != "" {
		if _, err := os.Stat(refCfg.ReferencesFile); err != nil {
			logger.Warn("references file not found, skipping", "path", refCfg.ReferencesFile)
			refCfg.ReferencesFile = ""
		}
	}
	return reference.NewCatalog(ctx, refCfg, st, logger)
}

// resolveDir applies the configured path resolution rule to a single
// command-line directory argument.
func resolveDir(dir string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return config.ResolvePath(dir, home, cwd), nil
}
