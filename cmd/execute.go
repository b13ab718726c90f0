// Package cmd contains the docent command-line entry points: the HTTP
// server, the MCP server and the operator-facing data commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/docent-ai/docent/internal/log"
)

// Execute routes the command line to the matching command. Called from
// main with a minimal entry point, kubectl-style.
func Execute() error {
	args := os.Args[1:]

	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "version", "--version", "-v":
		printVersion()
		return nil
	case "help", "--help", "-h":
		printHelp()
		return nil
	}

	logger := initLogger()
	slog.SetDefault(logger)

	if err := checkRequiredEnv(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "serve":
		return runServe(ctx, logger)
	case "mcp":
		return runMCP(ctx, logger)
	case "provision":
		return runProvision(ctx, logger)
	case "load":
		return runLoad(ctx, logger)
	case "ingest":
		if len(args) < 2 {
			return errors.New("usage: docent ingest <directory>")
		}
		return runIngest(ctx, logger, args[1])
	case "stats":
		return runStats(ctx, logger)
	default:
		printHelp()
		return fmt.Errorf("unknown command %q", command)
	}
}

// initLogger builds the process logger. DEBUG in the environment enables
// debug level. Logs go to stderr so stdout stays free for MCP JSON-RPC.
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}

func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Docent needs a Gemini API key for embeddings and chat.")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		return errors.New("GEMINI_API_KEY not set")
	}
	return nil
}

func printHelp() {
	fmt.Println("Docent - documentation assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  docent                 Start the HTTP server (default)")
	fmt.Println("  docent serve           Start the HTTP server")
	fmt.Println("  docent mcp             Start the MCP server on stdio")
	fmt.Println("  docent provision       Create the store schema")
	fmt.Println("  docent load            Run a full reference reload (URLs + directories)")
	fmt.Println("  docent ingest <dir>    Ingest a single directory")
	fmt.Println("  docent stats           Show store counts")
	fmt.Println("  docent version         Show version information")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY         Required: Gemini API key")
	fmt.Println("  DEBUG                  Optional: enable debug logging")
}
