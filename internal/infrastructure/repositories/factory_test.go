package repositories

import (
	"context"
	"testing"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/pkg/circuitbreaker"
	"stagepass/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRepositoryFactory_FallsBackToMemory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = "127.0.0.1:1"

	factory := NewRepositoryFactory(cfg, zap.NewNop().Sugar())
	defer factory.Close()

	assert.Equal(t, "memory", factory.Backend())
	assert.NoError(t, factory.HealthCheck(context.Background()))
}

func TestRepositoryFactory_UsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = mr.Addr()

	factory := NewRepositoryFactory(cfg, zap.NewNop().Sugar())
	defer factory.Close()

	require.Equal(t, "redis", factory.Backend())
	require.NoError(t, factory.HealthCheck(context.Background()))

	streams := factory.CreateStreamRepository()
	now := time.Now().UTC()
	require.NoError(t, streams.Create(context.Background(), domain.NewStream("s1", "show", "astro-1", now)))
	assert.True(t, mr.Exists(cfg.Redis.Prefix+"stream:s1"))
}

func TestRepositoryFactory_GuardsRedisRepositories(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = mr.Addr()
	cfg.Reliability.Breaker.FailureThreshold = 2
	cfg.Reliability.Breaker.OpenTimeout = time.Hour

	factory := NewRepositoryFactory(cfg, zap.NewNop().Sugar())
	defer factory.Close()
	require.Equal(t, "redis", factory.Backend())

	streams := factory.CreateStreamRepository()
	ctx := context.Background()

	_, err := streams.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrStreamNotFound)

	mr.Close()
	for i := 0; i < 2; i++ {
		_, err = streams.GetByID(ctx, "s1")
		require.Error(t, err)
	}

	_, err = streams.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	_, err = factory.CreateIdentityRepository().GetByID(ctx, "u1")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
}

func TestSeedIdentities(t *testing.T) {
	factory := NewRepositoryFactory(config.DefaultConfig(), zap.NewNop().Sugar())
	repo := factory.CreateIdentityRepository()
	ctx := context.Background()

	err := SeedIdentities(ctx, repo, []domain.Identity{
		{UserID: "admin-1", IsAdmin: true, Roles: []string{"admin"}},
		{UserID: "astro-1", IsPrivilegedRole: true},
	})
	require.NoError(t, err)

	admin, err := repo.GetByID(ctx, "admin-1")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	err = SeedIdentities(ctx, repo, []domain.Identity{{IsAdmin: true}})
	assert.Error(t, err)
}
