package cmd

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/mcp"
)

// runMCP starts the MCP server on stdio transport.
func runMCP(ctx context.Context, logger log.Logger) error {
	a, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := mcp.NewServer(mcp.Config{
		Name:       "docent",
		Version:    Version,
		ToolPrefix: a.cfg.ToolPrefix,
		ToolGroups: a.cfg.ToolGroups,
	}, a.store, a.catalog.All(), logger)
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "transport", "stdio")
	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}
