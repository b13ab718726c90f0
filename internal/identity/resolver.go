package identity

import (
	"context"
	"fmt"

	"github.com/docent-ai/docent/internal/log"
)

// Hint carries what a transport knows about the caller. The zero value
// means an unidentified caller.
type Hint struct {
	Kind        Kind
	ExternalID  string
	DisplayName string
}

// Resolver turns transport hints into stored users.
type Resolver struct {
	repo   Repository
	logger log.Logger
}

// NewResolver creates a Resolver.
func NewResolver(repo Repository, logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Resolver{repo: repo, logger: logger}
}

// Resolve finds or creates the user for a hint. An unidentified caller
// (no external ID) returns (nil, nil): the caller proceeds on the degraded
// anonymous path rather than failing the turn.
func (r *Resolver) Resolve(ctx context.Context, hint Hint) (*User, error) {
	if hint.ExternalID == "" {
		r.logger.Warn("unidentified caller, proceeding without user record")
		return nil, nil
	}
	kind := hint.Kind
	if kind == "" {
		kind = KindOther
	}

	user, err := r.repo.FindOrCreate(ctx, kind, hint.ExternalID, hint.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s/%s: %w", kind, hint.ExternalID, err)
	}
	return user, nil
}
