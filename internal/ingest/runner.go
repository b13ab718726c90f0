package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/store"
)

// InfoSource reports store-wide counts for the summary.
type InfoSource interface {
	Info(ctx context.Context) (store.Info, error)
}

// Runner executes a full ingestion run on startup and prints a structured
// summary to its writer, so a shell script (or human) can see exactly what
// was loaded without parsing log files.
type Runner struct {
	orchestrator *Orchestrator
	info         InfoSource
	addr         string
	out          io.Writer
	logger       log.Logger
}

// NewRunner creates a Runner writing its summary to out. addr is the serve
// address included at the bottom of the banner.
func NewRunner(orchestrator *Orchestrator, info InfoSource, addr string, out io.Writer, logger log.Logger) *Runner {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Runner{
		orchestrator: orchestrator,
		info:         info,
		addr:         addr,
		out:          out,
		logger:       logger,
	}
}

// Run loads all references and prints the summary banner.
func (r *Runner) Run(ctx context.Context) *Result {
	r.logger.Info("starting ingestion run")
	result := r.orchestrator.LoadReferences(ctx)

	info, err := r.info.Info(ctx)
	if err != nil {
		r.logger.Warn("store info unavailable for summary", "error", err)
	}
	r.printSummary(result, info)
	return result
}

func (r *Runner) printSummary(result *Result, info store.Info) {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString("╔══════════════════════════════════════════════════╗\n")
	sb.WriteString("║           INGESTION COMPLETE                     ║\n")
	sb.WriteString("╚══════════════════════════════════════════════════╝\n")
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "  Time: %s\n\n", formatDuration(result.Elapsed))

	fmt.Fprintf(&sb, "  ── URLs (%d/%d loaded) ──\n", len(result.LoadedURLs), result.TotalURLs())
	if len(result.LoadedURLs) > 0 {
		sb.WriteString("    Loaded:\n")
		for _, u := range result.LoadedURLs {
			fmt.Fprintf(&sb, "      ✓ %s\n", u)
		}
	}
	if len(result.FailedURLs) > 0 {
		sb.WriteString("    Failed:\n")
		for _, f := range result.FailedURLs {
			fmt.Fprintf(&sb, "      ✗ %s\n        reason: %s\n", f.Source, f.Reason)
		}
	}
	sb.WriteString("\n")

	if result.TotalDirectories() > 0 {
		fmt.Fprintf(&sb, "  ── Directories (%d/%d ingested) ──\n",
			len(result.IngestedDirectories), result.TotalDirectories())
		if len(result.IngestedDirectories) > 0 {
			sb.WriteString("    Ingested:\n")
			for _, d := range result.IngestedDirectories {
				fmt.Fprintf(&sb, "      ✓ %s\n", d)
			}
		}
		if len(result.FailedDirectories) > 0 {
			sb.WriteString("    Failed:\n")
			for _, f := range result.FailedDirectories {
				fmt.Fprintf(&sb, "      ✗ %s\n        reason: %s\n", f.Source, f.Reason)
			}
		}
	} else {
		sb.WriteString("  ── Directories: none configured ──\n")
	}

	if len(result.FailedDocuments) > 0 {
		fmt.Fprintf(&sb, "\n  ── Document Failures (%d) ──\n", len(result.FailedDocuments))
		for _, f := range result.FailedDocuments {
			fmt.Fprintf(&sb, "      ✗ %s\n        reason: %s\n", f.Source, f.Reason)
		}
	}

	sb.WriteString("\n")
	sb.WriteString("  ── RAG Store ──\n")
	fmt.Fprintf(&sb, "    Documents: %d\n", info.DocumentCount)
	fmt.Fprintf(&sb, "    Chunks:    %d\n", info.ChunkCount)
	fmt.Fprintf(&sb, "    Elements:  %d\n", info.ContentElementCount)
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "  Docent is running on %s\n", r.addr)
	sb.WriteString("  MCP server: docent mcp (stdio)\n")
	sb.WriteString("\n")

	fmt.Fprint(r.out, sb.String())
}

// formatDuration renders durations the way an operator reads them:
// "45s" under a minute, "2m 5s" above.
func formatDuration(d time.Duration) string {
	totalSec := int64(d.Seconds())
	if totalSec < 60 {
		return fmt.Sprintf("%ds", totalSec)
	}
	return fmt.Sprintf("%dm %ds", totalSec/60, totalSec%60)
}
