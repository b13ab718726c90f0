package reference

import (
	"context"
	"fmt"
	"strings"

	"github.com/docent-ai/docent/internal/store"
)

// docsReference serves retrieval over the chunk store, scoped to the
// documents declared for this reference.
type docsReference struct {
	name        string
	description string
	urls        []string
	searcher    Searcher
}

func newDocsReference(e entry, searcher Searcher) *docsReference {
	return &docsReference{
		name:        e.Name,
		description: e.Description,
		urls:        append([]string(nil), e.URLs...),
		searcher:    searcher,
	}
}

func (d *docsReference) Name() string        { return d.name }
func (d *docsReference) Description() string { return d.description }

func (d *docsReference) Retrieve(ctx context.Context, query string) (string, error) {
	results, err := d.searcher.Search(ctx, query, store.WithDocumentFilter(d.urls...))
	if err != nil {
		return "", fmt.Errorf("search %q: %w", d.name, err)
	}
	if len(results) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		if r.Chunk.Section != "" {
			fmt.Fprintf(&sb, "[%s]\n", r.Chunk.Section)
		}
		sb.WriteString(r.Chunk.Text)
	}
	return sb.String(), nil
}
