package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docent-ai/docent/internal/reference"
)

// RetrieveInput is the input schema shared by all reference tools.
type RetrieveInput struct {
	Query string `json:"query,omitempty" jsonschema:"Topic to retrieve material for; empty returns an overview"`
}

// registerReferenceTools exports one tool per catalog reference.
func (s *Server) registerReferenceTools(references []reference.Reference) error {
	inputSchema, err := jsonschema.For[RetrieveInput](nil)
	if err != nil {
		return fmt.Errorf("schema for retrieve input: %w", err)
	}

	for _, ref := range references {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        s.toolName(ref.Name()),
			Description: ref.Description(),
			InputSchema: inputSchema,
		}, s.retrieveHandler(ref))
		s.logger.Debug("registered reference tool", "reference", ref.Name())
	}
	return nil
}

func (s *Server) retrieveHandler(ref reference.Reference) func(context.Context, *mcp.CallToolRequest, RetrieveInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, any, error) {
		material, err := ref.Retrieve(ctx, input.Query)
		if err != nil {
			return nil, nil, fmt.Errorf("retrieving from %s: %w", ref.Name(), err)
		}
		if material == "" {
			return textResult("No material found."), nil, nil
		}
		return textResult(material), nil, nil
	}
}
