package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository for tests and single-node
// development.
type MemoryRepository struct {
	mu    sync.Mutex
	users map[string]*User
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*User)}
}

func key(kind Kind, externalID string) string {
	return string(kind) + "\x00" + externalID
}

// FindOrCreate returns the existing record or creates one. The whole
// operation runs under one lock, so concurrent callers converge on a
// single record.
func (m *MemoryRepository) FindOrCreate(ctx context.Context, kind Kind, externalID, displayName string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[key(kind, externalID)]; ok {
		copied := *u
		return &copied, nil
	}

	u := &User{
		ID:          uuid.New().String(),
		Kind:        kind,
		ExternalID:  externalID,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
	m.users[key(kind, externalID)] = u
	copied := *u
	return &copied, nil
}
