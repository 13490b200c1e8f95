package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"volunteerhub/internal/metrics"
)

// cache remembers validated principals by token hash. A nil cache is a no-op.
type cache struct {
	client *redis.Client
	ttl    time.Duration
}

func newCache(client *redis.Client, ttl time.Duration) *cache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &cache{client: client, ttl: ttl}
}

func tokenKey(hash string) string {
	return "volunteerhub:session:" + hash
}

func accountKey(accountID string) string {
	return "volunteerhub:session-account:" + accountID
}

func (c *cache) get(ctx context.Context, hash string) (Principal, bool) {
	if c == nil {
		return Principal{}, false
	}
	data, err := c.client.Get(ctx, tokenKey(hash)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Ctx(ctx).Warn().Err(err).Msg("session cache read")
		}
		metrics.SessionCache.WithLabelValues("miss").Inc()
		return Principal{}, false
	}
	var p Principal
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.SessionCache.WithLabelValues("miss").Inc()
		return Principal{}, false
	}
	metrics.SessionCache.WithLabelValues("hit").Inc()
	return p, true
}

func (c *cache) put(ctx context.Context, hash string, p Principal, now time.Time) {
	if c == nil {
		return
	}
	ttl := c.ttl
	if remaining := p.ExpiresAt.Sub(now); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, tokenKey(hash), data, ttl)
	pipe.SAdd(ctx, accountKey(p.AccountID), hash)
	pipe.Expire(ctx, accountKey(p.AccountID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("session cache write")
	}
}

func (c *cache) drop(ctx context.Context, hash string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, tokenKey(hash)).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("session cache delete")
	}
}

// forget drops every cached principal of the account.
func (c *cache) forget(ctx context.Context, accountID string) {
	if c == nil {
		return
	}
	hashes, err := c.client.SMembers(ctx, accountKey(accountID)).Result()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("session cache members")
		return
	}
	keys := make([]string, 0, len(hashes)+1)
	for _, hash := range hashes {
		keys = append(keys, tokenKey(hash))
	}
	keys = append(keys, accountKey(accountID))
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("session cache forget")
	}
}
