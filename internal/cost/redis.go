package cost

import (
	"context"
	"errors"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const redisKeyPrefix = "fashionfinder:fx:"

// RedisConfig mirrors the redis client settings the service needs.
type RedisConfig struct {
	URL          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

// NewRedisClient parses the URL, applies timeouts and pings the server.
func (c RedisConfig) NewRedisClient(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, err
	}
	opts.ReadTimeout = orDefault(c.ReadTimeout, 3*time.Second)
	opts.WriteTimeout = orDefault(c.WriteTimeout, 3*time.Second)
	opts.DialTimeout = orDefault(c.DialTimeout, 5*time.Second)

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// RedisCache shares live rates between processes for ttl.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetRate(ctx context.Context, pair string) (decimal.Decimal, bool) {
	s, err := c.client.Get(ctx, redisKeyPrefix+pair).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logx.Debug().Err(err).Str("pair", pair).Msg("redis rate lookup failed")
		}
		return decimal.Zero, false
	}
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return rate, true
}

func (c *RedisCache) SetRate(ctx context.Context, pair string, rate decimal.Decimal) {
	if err := c.client.Set(ctx, redisKeyPrefix+pair, rate.String(), c.ttl).Err(); err != nil {
		logx.Debug().Err(err).Str("pair", pair).Msg("redis rate store failed")
	}
}
