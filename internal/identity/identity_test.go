package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docent-ai/docent/internal/log"
)

func TestMemoryFindOrCreate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	u1, err := repo.FindOrCreate(ctx, KindDiscord, "12345", "alex")
	require.NoError(t, err)
	assert.NotEmpty(t, u1.ID)
	assert.Equal(t, KindDiscord, u1.Kind)
	assert.Equal(t, "alex", u1.DisplayName)

	u2, err := repo.FindOrCreate(ctx, KindDiscord, "12345", "alex")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)

	u3, err := repo.FindOrCreate(ctx, KindWeb, "12345", "alex")
	require.NoError(t, err)
	assert.NotEqual(t, u1.ID, u3.ID, "same external id under a different kind is a different user")
}

func TestMemoryFindOrCreateConcurrent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	const goroutines = 10
	ids := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := repo.FindOrCreate(ctx, KindAnonymous, "session-77", "")
			require.NoError(t, err)
			ids[i] = u.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id, "concurrent find-or-create must converge on one record")
	}
}

func TestResolverKnownUser(t *testing.T) {
	r := NewResolver(NewMemoryRepository(), log.NewNop())

	u, err := r.Resolve(context.Background(), Hint{Kind: KindWeb, ExternalID: "w-1", DisplayName: "sam"})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, KindWeb, u.Kind)
}

func TestResolverUnidentifiedCaller(t *testing.T) {
	r := NewResolver(NewMemoryRepository(), log.NewNop())

	u, err := r.Resolve(context.Background(), Hint{})
	require.NoError(t, err, "an unidentified caller is not an error")
	assert.Nil(t, u)
}

func TestResolverDefaultsKind(t *testing.T) {
	r := NewResolver(NewMemoryRepository(), log.NewNop())

	u, err := r.Resolve(context.Background(), Hint{ExternalID: "x-9"})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, KindOther, u.Kind)
}
