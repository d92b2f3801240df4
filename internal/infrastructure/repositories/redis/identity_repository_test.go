package redis

import (
	"context"
	"testing"

	"stagepass/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIdentityRepository(t *testing.T) {
	client, _ := setupRedis(t)
	repo := NewRedisIdentityRepository(client, testPrefix)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	require.NoError(t, repo.Upsert(ctx, &domain.Identity{
		UserID:  "admin-1",
		IsAdmin: true,
		Roles:   []string{"admin", "moderator"},
	}))

	got, err := repo.GetByID(ctx, "admin-1")
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	assert.False(t, got.IsPrivilegedRole)
	assert.Equal(t, []string{"admin", "moderator"}, got.Roles)

	require.NoError(t, repo.Upsert(ctx, &domain.Identity{UserID: "admin-1", IsPrivilegedRole: true}))

	got, err = repo.GetByID(ctx, "admin-1")
	require.NoError(t, err)
	assert.False(t, got.IsAdmin)
	assert.True(t, got.IsPrivilegedRole)
	assert.Empty(t, got.Roles)
}
