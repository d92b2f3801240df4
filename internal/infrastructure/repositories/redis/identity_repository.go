package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisIdentityRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisIdentityRepository(client *redis.Client, prefix string) ports.IdentityRepository {
	return &RedisIdentityRepository{
		client: client,
		prefix: prefix + "identity:",
	}
}

func (r *RedisIdentityRepository) identityKey(id domain.UserID) string {
	return r.prefix + string(id)
}

func (r *RedisIdentityRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.Identity, error) {
	fields, err := r.client.HGetAll(ctx, r.identityKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity from Redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrIdentityNotFound
	}

	identity := &domain.Identity{UserID: id}
	identity.IsAdmin, _ = strconv.ParseBool(fields["is_admin"])
	identity.IsPrivilegedRole, _ = strconv.ParseBool(fields["is_privileged_role"])
	if raw := fields["roles"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &identity.Roles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal roles: %w", err)
		}
	}
	return identity, nil
}

func (r *RedisIdentityRepository) Upsert(ctx context.Context, identity *domain.Identity) error {
	roles := identity.Roles
	if roles == nil {
		roles = []string{}
	}
	data, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("failed to marshal roles: %w", err)
	}

	key := r.identityKey(identity.UserID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"is_admin", strconv.FormatBool(identity.IsAdmin),
			"is_privileged_role", strconv.FormatBool(identity.IsPrivilegedRole),
			"roles", string(data),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert identity in Redis: %w", err)
	}
	return nil
}
