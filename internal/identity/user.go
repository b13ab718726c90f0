// Package identity resolves chat principals to stored user records.
package identity

import (
	"context"
	"time"
)

// Kind tags where a user comes from.
type Kind string

const (
	KindDiscord   Kind = "discord"
	KindWeb       Kind = "web"
	KindAnonymous Kind = "anonymous"
	KindOther     Kind = "other"
)

// User is a resolved chat principal.
type User struct {
	ID          string
	Kind        Kind
	ExternalID  string
	DisplayName string
	CreatedAt   time.Time
}

// Repository persists users. FindOrCreate must be atomic: concurrent calls
// with the same (kind, externalID) yield exactly one record.
type Repository interface {
	FindOrCreate(ctx context.Context, kind Kind, externalID, displayName string) (*User, error)
}
