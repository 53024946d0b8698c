package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"golfacademy/training-planner/internal/logger"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisClaimer struct {
	log *logger.Logger
	rdb goredis.UniversalClient
	ttl time.Duration
}

// NewRedis connects to addr and returns a Claimer backed by SET NX with a TTL.
func NewRedis(ctx context.Context, log *logger.Logger, addr, password string, db int, ttl time.Duration) (Claimer, func() error, error) {
	if log == nil {
		return nil, nil, fmt.Errorf("logger required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisWithClient(log, rdb, ttl), rdb.Close, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(log *logger.Logger, rdb goredis.UniversalClient, ttl time.Duration) Claimer {
	return &redisClaimer{log: log.Component("claims"), rdb: rdb, ttl: ttl}
}

func (c *redisClaimer) Claim(ctx context.Context, playerID primitive.ObjectID, token string) (bool, error) {
	key := Key(playerID)
	ok, err := c.rdb.SetNX(ctx, key, token, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	if ok {
		return true, nil
	}

	holder, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		// Expired between SETNX and GET.
		return c.rdb.SetNX(ctx, key, token, c.ttl).Result()
	}
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	if holder == token {
		return true, c.rdb.Expire(ctx, key, c.ttl).Err()
	}
	c.log.Debug("claim held elsewhere", "key", key, "holder", holder)
	return false, nil
}

func (c *redisClaimer) Release(ctx context.Context, playerID primitive.ObjectID, token string) error {
	key := Key(playerID)
	if err := releaseScript.Run(ctx, c.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
