package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docent-ai/docent/internal/store"
)

// SearchInput is the input schema for the documentation search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"The question or topic to search the documentation for"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of chunks to return (default 4)"`
}

func (s *Server) registerSearchTool() error {
	inputSchema, err := jsonschema.For[SearchInput](nil)
	if err != nil {
		return fmt.Errorf("schema for search input: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: s.toolName("search_docs"),
		Description: "Search the ingested documentation using semantic similarity. " +
			"Returns the most relevant documentation chunks for the query.",
		InputSchema: inputSchema,
	}, s.searchDocs)

	return nil
}

func (s *Server) searchDocs(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	var opts []store.SearchOption
	if input.MaxResults > 0 {
		opts = append(opts, store.WithTopK(input.MaxResults))
	}

	results, err := s.searcher.Search(ctx, input.Query, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("searching documentation: %w", err)
	}
	if len(results) == 0 {
		return textResult("No relevant documentation found."), nil, nil
	}

	var sections []string
	for _, r := range results {
		if r.Chunk.Section != "" {
			sections = append(sections, fmt.Sprintf("[%s]\n%s", r.Chunk.Section, r.Chunk.Text))
		} else {
			sections = append(sections, r.Chunk.Text)
		}
	}
	return textResult(strings.Join(sections, "\n\n---\n\n")), nil, nil
}
