package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// GenkitCompleter implements Completer on a Genkit model.
type GenkitCompleter struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitCompleter creates a GenkitCompleter. modelName is the fully
// qualified Genkit model name (e.g. "googleai/gemini-2.0-flash").
func NewGenkitCompleter(g *genkit.Genkit, modelName string) *GenkitCompleter {
	return &GenkitCompleter{g: g, modelName: modelName}
}

// Complete generates a single response. An empty system prompt is omitted.
func (c *GenkitCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithPrompt("%s", prompt),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem("%s", system))
	}
	if c.modelName != "" {
		opts = append(opts, ai.WithModelName(c.modelName))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
