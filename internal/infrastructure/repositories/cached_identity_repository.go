package repositories

import (
	"context"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	"stagepass/pkg/cache"
)

// CachedIdentityRepository keeps recently read identity records in memory.
// Changes made by other replicas become visible once the entry expires.
type CachedIdentityRepository struct {
	next  ports.IdentityRepository
	cache *cache.Cache[domain.UserID, domain.Identity]
}

func NewCachedIdentityRepository(next ports.IdentityRepository, ttl time.Duration) *CachedIdentityRepository {
	return &CachedIdentityRepository{
		next:  next,
		cache: cache.New[domain.UserID, domain.Identity](ttl),
	}
}

func (r *CachedIdentityRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.Identity, error) {
	identity, err := r.cache.GetOrLoad(ctx, id, func(ctx context.Context) (domain.Identity, error) {
		loaded, err := r.next.GetByID(ctx, id)
		if err != nil {
			return domain.Identity{}, err
		}
		return *loaded, nil
	})
	if err != nil {
		return nil, err
	}

	identity.Roles = append([]string(nil), identity.Roles...)
	return &identity, nil
}

func (r *CachedIdentityRepository) Upsert(ctx context.Context, identity *domain.Identity) error {
	r.cache.Delete(identity.UserID)
	return r.next.Upsert(ctx, identity)
}

func (r *CachedIdentityRepository) Close() {
	r.cache.Stop()
}
