package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores users in the users table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository on an existing pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindOrCreate inserts with ON CONFLICT DO NOTHING and then selects, so
// concurrent callers racing on the same (kind, external_id) all end up with
// the single surviving row.
func (r *PostgresRepository) FindOrCreate(ctx context.Context, kind Kind, externalID, displayName string) (*User, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, kind, external_id, display_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, external_id) DO NOTHING`,
		uuid.New().String(), string(kind), externalID, displayName)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	var u User
	var kindStr string
	err = r.pool.QueryRow(ctx, `
		SELECT id, kind, external_id, display_name, created_at
		FROM users WHERE kind = $1 AND external_id = $2`,
		string(kind), externalID).
		Scan(&u.ID, &kindStr, &u.ExternalID, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	u.Kind = Kind(kindStr)
	return &u, nil
}
