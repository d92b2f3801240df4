package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	"stagepass/pkg/retry"
	"stagepass/pkg/tracing"

	"github.com/redis/go-redis/v9"
)

const (
	fieldName        = "name"
	fieldOwner       = "owner_id"
	fieldStatus      = "status"
	fieldViewerCount = "viewer_count"
	fieldCreatedAt   = "created_at"
	fieldLastUpdated = "last_updated"
)

// RedisStreamRepository stores a stream as a hash plus a set of viewer ids.
// Writes that touch both keys run as WATCH/MULTI/EXEC transactions and are
// retried when a concurrent writer invalidates the watch.
type RedisStreamRepository struct {
	client   *redis.Client
	prefix   string
	retryCfg retry.Config
}

// TxRetryConfig builds the retry policy for optimistic transactions.
func TxRetryConfig(maxAttempts int, initialDelay, maxDelay time.Duration) retry.Config {
	return retry.Config{
		Enabled:         true,
		MaxAttempts:     maxAttempts,
		InitialDelay:    initialDelay,
		MaxDelay:        maxDelay,
		Multiplier:      2.0,
		Jitter:          true,
		RetryableErrors: []error{redis.TxFailedErr},
	}
}

func NewRedisStreamRepository(client *redis.Client, prefix string, retryCfg retry.Config) ports.StreamRepository {
	return &RedisStreamRepository{
		client:   client,
		prefix:   prefix + "stream:",
		retryCfg: retryCfg,
	}
}

func (r *RedisStreamRepository) streamKey(id domain.StreamID) string {
	return r.prefix + string(id)
}

func (r *RedisStreamRepository) viewersKey(id domain.StreamID) string {
	return r.prefix + string(id) + ":viewers"
}

// watch runs fn inside an optimistic transaction, retrying on conflicts.
func (r *RedisStreamRepository) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	err := retry.Retry(ctx, r.retryCfg, func() error {
		return r.client.Watch(ctx, fn, keys...)
	})
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{domain.ErrStreamNotFound, domain.ErrStreamExists, domain.ErrStreamNotLive, domain.ErrInvalidTransition} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return fmt.Errorf("redis transaction: %w", err)
}

func (r *RedisStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	ctx, span := tracing.TraceStoreOperation(ctx, "stream.create", "redis")
	defer span.End()

	key := r.streamKey(stream.ID)
	viewersKey := r.viewersKey(stream.ID)

	return r.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return domain.ErrStreamExists
		}

		members := make([]interface{}, 0, len(stream.Viewers))
		for id := range stream.Viewers {
			members = append(members, string(id))
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, viewersKey)
			if len(members) > 0 {
				pipe.SAdd(ctx, viewersKey, members...)
			}
			pipe.HSet(ctx, key,
				fieldName, stream.Name,
				fieldOwner, string(stream.OwnerID),
				fieldStatus, string(stream.Status),
				fieldViewerCount, len(members),
				fieldCreatedAt, formatTime(stream.CreatedAt),
				fieldLastUpdated, formatTime(stream.LastUpdated),
			)
			return nil
		})
		return err
	}, key, viewersKey)
}

func (r *RedisStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, "stream.get", "redis")
	defer span.End()

	var (
		fieldsCmd  *redis.MapStringStringCmd
		viewersCmd *redis.StringSliceCmd
	)
	// MULTI gives a consistent snapshot of the hash and the set.
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fieldsCmd = pipe.HGetAll(ctx, r.streamKey(id))
		viewersCmd = pipe.SMembers(ctx, r.viewersKey(id))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get stream from Redis: %w", err)
	}

	fields := fieldsCmd.Val()
	if len(fields) == 0 {
		return nil, domain.ErrStreamNotFound
	}
	return decodeStream(id, fields, viewersCmd.Val())
}

func (r *RedisStreamRepository) UpdateStatus(ctx context.Context, id domain.StreamID, status domain.StreamStatus, now time.Time) (*domain.Stream, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, "stream.update_status", "redis")
	defer span.End()

	key := r.streamKey(id)
	err := r.watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldStatus).Result()
		if err == redis.Nil {
			return domain.ErrStreamNotFound
		}
		if err != nil {
			return err
		}
		if !domain.StreamStatus(current).CanTransition(status) {
			return domain.ErrInvalidTransition
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldStatus, string(status), fieldLastUpdated, formatTime(now))
			return nil
		})
		return err
	}, key)
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *RedisStreamRepository) AddViewer(ctx context.Context, id domain.StreamID, viewerID domain.UserID, now time.Time) (*domain.JoinResult, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, "stream.add_viewer", "redis")
	defer span.End()

	key := r.streamKey(id)
	viewersKey := r.viewersKey(id)

	var result *domain.JoinResult
	err := r.watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HMGet(ctx, key, fieldStatus, fieldViewerCount).Result()
		if err != nil {
			return err
		}
		status, ok := fields[0].(string)
		if !ok {
			return domain.ErrStreamNotFound
		}
		if domain.StreamStatus(status) != domain.StreamLive {
			return domain.ErrStreamNotLive
		}

		present, err := tx.SIsMember(ctx, viewersKey, string(viewerID)).Result()
		if err != nil {
			return err
		}
		if present {
			count, _ := fields[1].(string)
			n, err := strconv.Atoi(count)
			if err != nil {
				return fmt.Errorf("corrupt viewer_count for stream %s: %w", id, err)
			}
			result = &domain.JoinResult{Joined: true, AlreadyPresent: true, ViewerCount: n}
			return nil
		}

		// EXEC fails with TxFailedErr if either key changed since WATCH.
		var incr *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, viewersKey, string(viewerID))
			incr = pipe.HIncrBy(ctx, key, fieldViewerCount, 1)
			pipe.HSet(ctx, key, fieldLastUpdated, formatTime(now))
			return nil
		})
		if err != nil {
			return err
		}
		result = &domain.JoinResult{Joined: true, ViewerCount: int(incr.Val())}
		return nil
	}, key, viewersKey)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return result, nil
}

func decodeStream(id domain.StreamID, fields map[string]string, viewers []string) (*domain.Stream, error) {
	count, err := strconv.Atoi(fields[fieldViewerCount])
	if err != nil {
		return nil, fmt.Errorf("corrupt viewer_count for stream %s: %w", id, err)
	}
	createdAt, err := parseTime(fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("corrupt created_at for stream %s: %w", id, err)
	}
	lastUpdated, err := parseTime(fields[fieldLastUpdated])
	if err != nil {
		return nil, fmt.Errorf("corrupt last_updated for stream %s: %w", id, err)
	}

	stream := &domain.Stream{
		ID:          id,
		Name:        fields[fieldName],
		OwnerID:     domain.UserID(fields[fieldOwner]),
		Status:      domain.StreamStatus(fields[fieldStatus]),
		Viewers:     make(map[domain.UserID]struct{}, len(viewers)),
		ViewerCount: count,
		CreatedAt:   createdAt,
		LastUpdated: lastUpdated,
	}
	for _, v := range viewers {
		stream.Viewers[domain.UserID(v)] = struct{}{}
	}
	return stream, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
