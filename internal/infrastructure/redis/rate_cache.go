package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"moneyrates-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const rateCachePrefix = "rates:cbr:"

// RateCache keeps one parsed day of central-bank rates per date key. The TTL
// bounds what the original process-lifetime map let grow without limit; any
// backend or decode error degrades to a cache miss.
type RateCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRateCache(client *redis.Client, ttl time.Duration) *RateCache {
	return &RateCache{Client: client, TTL: ttl}
}

func (c *RateCache) Get(ctx context.Context, key string) (map[string]domain.RawQuote, bool) {
	data, err := c.Client.Get(ctx, rateCachePrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var out map[string]domain.RawQuote
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (c *RateCache) Set(ctx context.Context, key string, rates map[string]domain.RawQuote) {
	data, err := json.Marshal(rates)
	if err != nil {
		return
	}
	_ = c.Client.Set(ctx, rateCachePrefix+key, data, c.TTL).Err()
}
