package cmd

import (
	"context"
	"fmt"

	"github.com/docent-ai/docent/internal/ingest"
	"github.com/docent-ai/docent/internal/log"
)

// withIngestionLock serializes ingestion across processes. The same lock
// guards the server's data endpoints.
func withIngestionLock(fn func() error) error {
	return ingest.WithLock(ingest.DefaultLockPath(), fn)
}

// runProvision creates the store schema.
func runProvision(ctx context.Context, logger log.Logger) error {
	a, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Provision(ctx); err != nil {
		return fmt.Errorf("provisioning store: %w", err)
	}
	fmt.Println("Store provisioned.")
	return nil
}

// runLoad runs a full reference reload and prints the summary banner.
func runLoad(ctx context.Context, logger log.Logger) error {
	a, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return withIngestionLock(func() error {
		result := a.runner.Run(ctx)
		if result.HasFailures() {
			return fmt.Errorf("%d item(s) failed", result.TotalFailures())
		}
		return nil
	})
}

// runIngest ingests a single directory.
func runIngest(ctx context.Context, logger log.Logger, dir string) error {
	a, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resolved, err := resolveDir(dir)
	if err != nil {
		return err
	}

	return withIngestionLock(func() error {
		failures, err := a.orchestrator.IngestDirectory(ctx, resolved)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", resolved, err)
		}
		for _, f := range failures {
			fmt.Printf("  ✗ %s\n    reason: %s\n", f.Source, f.Reason)
		}
		fmt.Printf("Ingested %s (%d document failure(s)).\n", resolved, len(failures))
		return nil
	})
}

// runStats prints the store counts.
func runStats(ctx context.Context, logger log.Logger) error {
	a, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := a.store.Info(ctx)
	if err != nil {
		return fmt.Errorf("reading store stats: %w", err)
	}
	fmt.Printf("Documents: %d\n", info.DocumentCount)
	fmt.Printf("Chunks:    %d\n", info.ChunkCount)
	fmt.Printf("Elements:  %d\n", info.ContentElementCount)
	return nil
}
