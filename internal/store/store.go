package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/docent-ai/docent/internal/content"
	"github.com/docent-ai/docent/internal/log"
)

// ChunkRecord pairs a chunk with its embedding for persistence.
type ChunkRecord struct {
	Chunk
	Embedding []float32
}

// Query is the backend-level search request, already resolved from options.
type Query struct {
	Embedding []float32
	TopK      int
	Threshold float32
	Documents []string
}

// Backend is the persistence interface the Store depends on. Defined on the
// consumer side so tests can substitute an in-memory implementation.
type Backend interface {
	// Provision creates the schema. Idempotent; never destroys data.
	Provision(ctx context.Context) error

	// ReplaceDocument atomically swaps every chunk of doc's URI for the
	// given set, inside one transaction.
	ReplaceDocument(ctx context.Context, doc DocumentRecord, chunks []ChunkRecord) error

	// HasDocument reports whether a document with the URI was ingested.
	HasDocument(ctx context.Context, uri string) (bool, error)

	// Info returns store-wide counts.
	Info(ctx context.Context) (Info, error)

	// SearchChunks runs a similarity query.
	SearchChunks(ctx context.Context, q Query) ([]Result, error)
}

// Config carries the store-level defaults applied to every search unless
// overridden per call.
type Config struct {
	Chunker             ChunkerConfig
	TopK                int
	SimilarityThreshold float32
	MaxLatency          time.Duration
}

// Store chunks documents, embeds them and serves similarity search.
type Store struct {
	backend  Backend
	embedder ai.Embedder
	cfg      Config
	logger   log.Logger
}

// New creates a Store. Zero-value Config fields fall back to defaults.
func New(backend Backend, embedder ai.Embedder, cfg Config, logger log.Logger) *Store {
	if cfg.Chunker.MaxTokens <= 0 {
		cfg.Chunker = DefaultChunkerConfig()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.7
	}
	if cfg.MaxLatency <= 0 {
		cfg.MaxLatency = 10 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		backend:  backend,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Provision prepares the backing schema. Safe to call on every startup.
func (s *Store) Provision(ctx context.Context) error {
	return s.backend.Provision(ctx)
}

// WriteAndChunkDocument splits a parsed document into chunks, embeds them
// and replaces the document's prior chunks in one transaction.
func (s *Store) WriteAndChunkDocument(ctx context.Context, root *content.Node) error {
	if root == nil {
		return errors.New("nil document")
	}

	chunks := chunkTree(root, s.cfg.Chunker)

	records := make([]ChunkRecord, 0, len(chunks))
	if len(chunks) > 0 {
		embeddings, err := s.embed(ctx, chunkTexts(chunks))
		if err != nil {
			return fmt.Errorf("embed document %q: %w", root.URI, err)
		}
		for i, c := range chunks {
			c.ID = uuid.New().String()
			records = append(records, ChunkRecord{Chunk: c, Embedding: embeddings[i]})
		}
	}

	doc := DocumentRecord{
		URI:          root.URI,
		Title:        root.Title,
		ElementCount: root.ElementCount(),
		IngestedAt:   time.Now(),
	}
	if err := s.backend.ReplaceDocument(ctx, doc, records); err != nil {
		return fmt.Errorf("write document %q: %w", root.URI, err)
	}

	s.logger.Debug("wrote document",
		"uri", root.URI, "chunks", len(records), "elements", doc.ElementCount)
	return nil
}

// HasDocument reports whether the URI was already ingested.
func (s *Store) HasDocument(ctx context.Context, uri string) (bool, error) {
	return s.backend.HasDocument(ctx, uri)
}

// Info returns document, chunk and content-element counts.
func (s *Store) Info(ctx context.Context) (Info, error) {
	return s.backend.Info(ctx)
}

// Search performs semantic search. The latency budget covers embedding and
// query; when it expires the call returns what it has (possibly nothing)
// instead of blocking.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := searchConfig{
		topK:       s.cfg.TopK,
		threshold:  s.cfg.SimilarityThreshold,
		maxLatency: s.cfg.MaxLatency,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	queryCtx, cancel := context.WithTimeout(ctx, cfg.maxLatency)
	defer cancel()

	embeddings, err := s.embed(queryCtx, []string{query})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Warn("search latency budget exhausted during embedding", "query_len", len(query))
			return nil, nil
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.backend.SearchChunks(queryCtx, Query{
		Embedding: embeddings[0],
		TopK:      cfg.topK,
		Threshold: cfg.threshold,
		Documents: cfg.documents,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Warn("search latency budget exhausted during query", "query_len", len(query))
			return nil, nil
		}
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

func chunkTexts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

// embed generates embeddings for a batch of texts in one request.
func (s *Store) embed(ctx context.Context, texts []string) ([][]float32, error) {
	input := make([]*ai.Document, len(texts))
	for i, t := range texts {
		input[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(t)}}
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d inputs",
			len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		out[i] = e.Embedding
	}
	return out, nil
}
