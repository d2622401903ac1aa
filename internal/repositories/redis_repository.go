package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopsphere/commerce-core/internal/config"
)

type RateLimitRepository interface {
	CheckCartRateLimit(ctx context.Context, ownerKey string) (bool, int, error)
}

type redisRepository struct {
	client *redis.Client
	cfg    *config.Config
}

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {

	redisURL := cfg.RedisConnect.GetDSN()

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", slog.Any("error", err))
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.DB = cfg.RedisConnect.DB

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test the connection
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("✅ Successfully connected to Redis")
	return client, nil

}

func NewRateLimitRepo(client *redis.Client, cfg *config.Config) RateLimitRepository {
	return &redisRepository{client: client, cfg: cfg}
}

// CheckCartRateLimit applies a sliding window per cart owner to add-to-cart
// calls. Returns whether the call is allowed and how many attempts remain.
func (r *redisRepository) CheckCartRateLimit(ctx context.Context, ownerKey string) (bool, int, error) {

	key := fmt.Sprintf("cart_adds:%s", ownerKey)

	now := time.Now().UnixNano()

	windowStart := now - r.cfg.RateConfig.WindowSize.Nanoseconds()

	pipe := r.client.Pipeline()

	// drop attempts that fell out of the window
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})

	count := pipe.ZCard(ctx, key)

	pipe.Expire(ctx, key, r.cfg.RateConfig.WindowSize)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to check rate limit: %w", err)
	}

	attempts := count.Val()

	if attempts > r.cfg.RateConfig.MaxAttempts {
		return false, 0, nil
	}

	return true, int(r.cfg.RateConfig.MaxAttempts - attempts), nil
}
