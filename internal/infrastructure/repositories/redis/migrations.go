package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stagepass/pkg/distributed"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	currentSchemaVersion = 1

	migrationLockTTL  = 30 * time.Second
	migrationLockWait = time.Minute
)

// Migration represents a key schema migration under a prefix.
type Migration struct {
	Version int
	Up      func(ctx context.Context, client *redis.Client, prefix string) error
}

// Migrate runs all pending migrations for the given key prefix. Replicas
// starting together serialize on a lock so each migration runs once.
func Migrate(ctx context.Context, client *redis.Client, prefix string, logger *zap.SugaredLogger) error {
	return distributed.WithLock(ctx, client, prefix+"schema:lock", migrationLockTTL, migrationLockWait,
		func(ctx context.Context) error {
			return migrate(ctx, client, prefix, logger)
		})
}

func migrate(ctx context.Context, client *redis.Client, prefix string, logger *zap.SugaredLogger) error {
	versionKey := prefix + "schema:version"

	currentVersion, err := getSchemaVersion(ctx, client, versionKey)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion >= currentSchemaVersion {
		if logger != nil {
			logger.Infow("schema is up to date",
				"current_version", currentVersion,
				"target_version", currentSchemaVersion,
			)
		}
		return nil
	}

	for _, migration := range getMigrations() {
		if migration.Version <= currentVersion {
			continue
		}
		if logger != nil {
			logger.Infow("running migration", "version", migration.Version)
		}

		if err := migration.Up(ctx, client, prefix); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if err := client.Set(ctx, versionKey, migration.Version, 0).Err(); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	if logger != nil {
		logger.Infow("all migrations completed", "final_version", currentSchemaVersion)
	}
	return nil
}

func getSchemaVersion(ctx context.Context, client *redis.Client, key string) (int, error) {
	val, err := client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func getMigrations() []Migration {
	return []Migration{
		{
			// Stream hashes written before viewer_count existed get it
			// backfilled from the cardinality of their viewers set.
			Version: 1,
			Up: func(ctx context.Context, client *redis.Client, prefix string) error {
				iter := client.Scan(ctx, 0, prefix+"stream:*", 100).Iterator()
				for iter.Next(ctx) {
					key := iter.Val()
					if strings.HasSuffix(key, ":viewers") {
						continue
					}
					if t, err := client.Type(ctx, key).Result(); err != nil || t != "hash" {
						continue
					}
					count, err := client.SCard(ctx, key+":viewers").Result()
					if err != nil {
						return err
					}
					if err := client.HSetNX(ctx, key, fieldViewerCount, count).Err(); err != nil {
						return err
					}
				}
				return iter.Err()
			},
		},
	}
}
