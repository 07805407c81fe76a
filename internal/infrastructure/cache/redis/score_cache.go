package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"credit-engine/internal/config"
	"credit-engine/internal/domain/creditscore"

	"github.com/redis/go-redis/v9"
)

const scoreKeyPrefix = "credit_score"

// ScoreCache backs the credit score engine with Redis. Every operation is
// bounded by opTimeout so a dead backend degrades the engine instead of
// stalling it.
type ScoreCache struct {
	client    redis.UniversalClient
	ttl       time.Duration
	opTimeout time.Duration
	logger    *slog.Logger
}

var _ creditscore.Cache = (*ScoreCache)(nil)

func NewScoreCache(client redis.UniversalClient, cfg config.RedisConfig, logger *slog.Logger) *ScoreCache {
	if client == nil {
		panic("redis client cannot be nil")
	}
	ttl := cfg.ScoreTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 500 * time.Millisecond
	}
	return &ScoreCache{
		client:    client,
		ttl:       ttl,
		opTimeout: opTimeout,
		logger:    logger.With(slog.String("component", "ScoreCache")),
	}
}

func NewClient(cfg config.RedisConfig) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func scoreKey(customerID int64) string {
	return fmt.Sprintf("%s:%d", scoreKeyPrefix, customerID)
}

func (c *ScoreCache) Get(ctx context.Context, customerID int64) (int, creditscore.Lookup) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	val, err := c.client.Get(opCtx, scoreKey(customerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, creditscore.LookupMiss
		}
		c.logger.WarnContext(ctx, "Score cache read failed", "customer_id", customerID, slog.Any("error", err))
		return 0, creditscore.LookupUnavailable
	}

	score, err := strconv.Atoi(val)
	if err != nil {
		// A corrupt entry is treated as a miss; the write-back will repair it.
		c.logger.WarnContext(ctx, "Discarding malformed cached score", "customer_id", customerID, "value", val)
		return 0, creditscore.LookupMiss
	}
	return score, creditscore.LookupHit
}

func (c *ScoreCache) Set(ctx context.Context, customerID int64, score int) error {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Set(opCtx, scoreKey(customerID), strconv.Itoa(score), c.ttl).Err(); err != nil {
		return fmt.Errorf("cache score for customer %d: %w", customerID, err)
	}
	return nil
}

func (c *ScoreCache) Delete(ctx context.Context, customerID int64) error {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	// DEL on an absent key is a no-op, which keeps invalidation idempotent.
	if err := c.client.Del(opCtx, scoreKey(customerID)).Err(); err != nil {
		return fmt.Errorf("invalidate score for customer %d: %w", customerID, err)
	}
	return nil
}
