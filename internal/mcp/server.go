// Package mcp exports documentation retrieval over the Model Context
// Protocol so external agents can consult the same store and references
// the chat surface uses.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/reference"
	"github.com/docent-ai/docent/internal/store"
)

// Tool groups selectable via configuration.
const (
	GroupSearch     = "search"
	GroupReferences = "references"
)

// Searcher runs semantic retrieval against the chunk store.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...store.SearchOption) ([]store.Result, error)
}

// Config holds MCP server configuration.
type Config struct {
	Name       string
	Version    string
	ToolPrefix string
	// ToolGroups selects which groups are exported; empty means all.
	ToolGroups []string
}

// Server wraps the MCP SDK server with the docent tools.
type Server struct {
	mcpServer *mcp.Server
	searcher  Searcher
	logger    log.Logger
	cfg       Config
}

// NewServer creates the MCP server and registers the configured tool groups.
func NewServer(cfg Config, searcher Searcher, references []reference.Reference, logger log.Logger) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		searcher: searcher,
		logger:   logger,
		cfg:      cfg,
	}

	if s.groupEnabled(GroupSearch) {
		if s.searcher == nil {
			return nil, fmt.Errorf("search tool group requires a searcher")
		}
		if err := s.registerSearchTool(); err != nil {
			return nil, fmt.Errorf("registering search tool: %w", err)
		}
	}
	if s.groupEnabled(GroupReferences) {
		if err := s.registerReferenceTools(references); err != nil {
			return nil, fmt.Errorf("registering reference tools: %w", err)
		}
	}

	return s, nil
}

// Run starts the MCP server on the given transport. Blocks until the
// transport closes or ctx is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) groupEnabled(group string) bool {
	if len(s.cfg.ToolGroups) == 0 {
		return true
	}
	for _, g := range s.cfg.ToolGroups {
		if g == group {
			return true
		}
	}
	return false
}

// toolName applies the configured prefix and normalizes the name to the
// MCP tool-name character set.
func (s *Server) toolName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s.cfg.ToolPrefix + name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
