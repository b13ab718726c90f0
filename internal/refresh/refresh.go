// Package refresh decides whether a URI needs (re-)ingestion.
//
// URIs matching a configured volatile pattern (by default "-SNAPSHOT", the
// convention for unreleased artifact versions) are always re-fetched:
// their content changes under the same URI. Everything else is ingested at
// most once.
package refresh

import (
	"context"
	"fmt"
	"strings"

	"github.com/docent-ai/docent/internal/content"
	"github.com/docent-ai/docent/internal/log"
)

// DefaultPatterns is the volatile pattern list used when none is configured.
var DefaultPatterns = []string{"-SNAPSHOT"}

// Store is the slice of the chunk store the policy needs.
type Store interface {
	HasDocument(ctx context.Context, uri string) (bool, error)
	WriteAndChunkDocument(ctx context.Context, root *content.Node) error
}

// Fetcher retrieves and parses a remote document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*content.Node, error)
}

// Policy gates ingestion on volatility and prior presence.
type Policy struct {
	patterns []string
	store    Store
	fetcher  Fetcher
	logger   log.Logger
}

// NewPolicy creates a Policy. An empty pattern list falls back to
// DefaultPatterns.
func NewPolicy(patterns []string, store Store, fetcher Fetcher, logger log.Logger) *Policy {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Policy{
		patterns: append([]string(nil), patterns...),
		store:    store,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// Volatile reports whether the URI matches any configured pattern. Plain
// substring match, evaluated fresh on every call.
func (p *Policy) Volatile(uri string) bool {
	for _, pattern := range p.patterns {
		if strings.Contains(uri, pattern) {
			return true
		}
	}
	return false
}

// IngestURIIfNeeded fetches and writes the document unless it is
// non-volatile and already present, in which case it returns (nil, nil).
// Volatile URIs are always re-fetched; the rewrite replaces prior chunks.
func (p *Policy) IngestURIIfNeeded(ctx context.Context, uri string) (*content.Node, error) {
	if !p.Volatile(uri) {
		has, err := p.store.HasDocument(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("check prior ingestion of %q: %w", uri, err)
		}
		if has {
			p.logger.Debug("document already ingested", "uri", uri)
			return nil, nil
		}
	}

	node, err := p.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := p.store.WriteAndChunkDocument(ctx, node); err != nil {
		return nil, err
	}

	p.logger.Info("ingested document", "uri", uri, "volatile", p.Volatile(uri))
	return node, nil
}
