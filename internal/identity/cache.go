package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const profileKeyPrefix = "multimind:profile:"

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedisCache(cfg RedisConfig) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCache{
		rdb: rdb,
		ttl: cfg.TTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) GetProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error) {
	profiles := make(map[string]Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = profileKeyPrefix + id
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return profiles, fmt.Errorf("read profiles from redis: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var p Profile
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			continue
		}
		profiles[userIDs[i]] = p
	}
	return profiles, nil
}

func (c *RedisCache) SetProfiles(ctx context.Context, profiles []Profile) error {
	pipe := c.rdb.Pipeline()
	for _, p := range profiles {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("serialize profile: %w", err)
		}
		pipe.Set(ctx, profileKeyPrefix+p.ID, data, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store profiles in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
