package memory

import (
	"context"
	"sync"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
)

type MemoryIdentityRepository struct {
	identities map[domain.UserID]domain.Identity
	mu         sync.RWMutex
}

func NewMemoryIdentityRepository() ports.IdentityRepository {
	return &MemoryIdentityRepository{
		identities: make(map[domain.UserID]domain.Identity),
	}
}

func (r *MemoryIdentityRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, exists := r.identities[id]
	if !exists {
		return nil, domain.ErrIdentityNotFound
	}

	identity.Roles = append([]string(nil), identity.Roles...)
	return &identity, nil
}

func (r *MemoryIdentityRepository) Upsert(ctx context.Context, identity *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *identity
	stored.Roles = append([]string(nil), identity.Roles...)
	r.identities[identity.UserID] = stored
	return nil
}
