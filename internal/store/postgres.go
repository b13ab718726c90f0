package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/docent-ai/docent/db"
	"github.com/docent-ai/docent/internal/log"
)

// Postgres implements Backend on PostgreSQL with the pgvector extension.
type Postgres struct {
	pool    *pgxpool.Pool
	connURL string
	logger  log.Logger
}

// NewPostgres connects to the database and verifies the connection. The
// schema is not touched here; call Provision (or Store.Provision) first on
// a fresh database.
func NewPostgres(ctx context.Context, connURL string, logger log.Logger) (*Postgres, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	poolCfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool, connURL: connURL, logger: logger}, nil
}

// Pool exposes the underlying pool for health checks.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Provision applies the embedded schema migrations. Repeated calls are
// no-ops; existing data is never touched.
func (p *Postgres) Provision(ctx context.Context) error {
	if err := db.Migrate(p.connURL); err != nil {
		return fmt.Errorf("provision schema: %w", err)
	}
	p.logger.Debug("schema provisioned")
	return nil
}

// ReplaceDocument swaps every chunk of the document in one transaction.
// Concurrent readers see either the old generation or the new one, never a
// mix.
func (p *Postgres) ReplaceDocument(ctx context.Context, doc DocumentRecord, chunks []ChunkRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO documents (uri, title, element_count, ingested_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uri) DO UPDATE
		SET title = EXCLUDED.title,
		    element_count = EXCLUDED.element_count,
		    ingested_at = EXCLUDED.ingested_at`,
		doc.URI, doc.Title, doc.ElementCount, doc.IngestedAt)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_uri = $1`, doc.URI); err != nil {
		return fmt.Errorf("delete prior chunks: %w", err)
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			INSERT INTO chunks (id, document_uri, section, ordinal, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.DocumentURI, c.Section, c.Ordinal, c.Text,
			pgvector.NewVector(c.Embedding))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Postgres) HasDocument(ctx context.Context, uri string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE uri = $1)`, uri).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document %q: %w", uri, err)
	}
	return exists, nil
}

func (p *Postgres) Info(ctx context.Context) (Info, error) {
	var info Info
	err := p.pool.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM documents),
		       (SELECT count(*) FROM chunks),
		       (SELECT coalesce(sum(element_count), 0) FROM documents)`).
		Scan(&info.DocumentCount, &info.ChunkCount, &info.ContentElementCount)
	if err != nil {
		return Info{}, fmt.Errorf("read store info: %w", err)
	}
	return info, nil
}

func (p *Postgres) SearchChunks(ctx context.Context, q Query) ([]Result, error) {
	query := pgvector.NewVector(q.Embedding)

	// Cosine similarity, same operator class as the HNSW index.
	sql := `
		SELECT id, document_uri, section, ordinal, content,
		       1 - (embedding <=> $1) AS similarity
		FROM chunks
		WHERE 1 - (embedding <=> $1) >= $2`
	args := []any{query, q.Threshold}
	if len(q.Documents) > 0 {
		sql += ` AND document_uri = ANY($3)`
		args = append(args, q.Documents)
	}
	sql += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, q.TopK)

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Chunk.ID, &r.Chunk.DocumentURI, &r.Chunk.Section,
			&r.Chunk.Ordinal, &r.Chunk.Text, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
