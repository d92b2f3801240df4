package repositories

import (
	"context"
	"fmt"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	"stagepass/internal/infrastructure/repositories/memory"
	redisrepo "stagepass/internal/infrastructure/repositories/redis"
	"stagepass/internal/infrastructure/reliability"
	"stagepass/pkg/circuitbreaker"
	"stagepass/pkg/config"
	"stagepass/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	prefix      string
	txRetry     retry.Config
	guard       *reliability.StoreGuard
	identityTTL time.Duration
	caches      []*CachedIdentityRepository
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory connects to Redis when enabled and falls back to the
// in-memory repositories if the connection fails.
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) *RepositoryFactory {
	factory := &RepositoryFactory{
		useRedis:    cfg.Redis.Enabled,
		prefix:      cfg.Redis.Prefix,
		txRetry:     redisrepo.TxRetryConfig(cfg.Join.MaxTxAttempts, cfg.Join.TxInitialDelay, cfg.Join.TxMaxDelay),
		identityTTL: cfg.Redis.IdentityCacheTTL,
		logger:      logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(redisrepo.ClientOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		}, logger)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			if b := cfg.Reliability.Breaker; b.Enabled {
				factory.guard = reliability.NewStoreGuard("redis", circuitbreaker.Config{
					FailureThreshold:    b.FailureThreshold,
					SuccessThreshold:    b.SuccessThreshold,
					OpenTimeout:         b.OpenTimeout,
					MaxRequestsHalfOpen: b.MaxRequestsHalfOpen,
				}, logger)
			}
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory
}

func (f *RepositoryFactory) Backend() string {
	if f.useRedis && f.redisClient != nil {
		return "redis"
	}
	return "memory"
}

func (f *RepositoryFactory) CreateStreamRepository() ports.StreamRepository {
	if f.useRedis && f.redisClient != nil {
		repo := redisrepo.NewRedisStreamRepository(f.redisClient, f.prefix, f.txRetry)
		if f.guard != nil {
			return f.guard.GuardStreamRepository(repo)
		}
		return repo
	}
	return memory.NewMemoryStreamRepository()
}

func (f *RepositoryFactory) CreateIdentityRepository() ports.IdentityRepository {
	if f.useRedis && f.redisClient != nil {
		repo := redisrepo.NewRedisIdentityRepository(f.redisClient, f.prefix)
		if f.guard != nil {
			repo = f.guard.GuardIdentityRepository(repo)
		}
		if f.identityTTL > 0 {
			cached := NewCachedIdentityRepository(repo, f.identityTTL)
			f.caches = append(f.caches, cached)
			return cached
		}
		return repo
	}
	return memory.NewMemoryIdentityRepository()
}

// SeedIdentities upserts the configured identity records.
func SeedIdentities(ctx context.Context, repo ports.IdentityRepository, identities []domain.Identity) error {
	for i := range identities {
		identity := identities[i]
		if identity.UserID == "" {
			return fmt.Errorf("identity %d has an empty user_id", i)
		}
		if err := repo.Upsert(ctx, &identity); err != nil {
			return fmt.Errorf("failed to seed identity %s: %w", identity.UserID, err)
		}
	}
	return nil
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	for _, c := range f.caches {
		c.Close()
	}
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		if err := f.redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		if f.guard != nil {
			return f.guard.HealthCheck(ctx)
		}
	}
	return nil
}
