package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"volunteerhub/internal/model"
)

func openTestRedis(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
		return nil
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCacheRoundTripAndForget(t *testing.T) {
	client := openTestRedis(t)
	if client == nil {
		return
	}
	ctx := context.Background()
	c := newCache(client, time.Minute)
	now := time.Now().UTC()
	accountID := uuid.NewString()
	first, second := uuid.NewString(), uuid.NewString()

	p := Principal{AccountID: accountID, Role: model.RoleStaff, TokenID: "tok", ExpiresAt: now.Add(time.Hour)}
	c.put(ctx, first, p, now)
	c.put(ctx, second, p, now)

	got, ok := c.get(ctx, first)
	if !ok || got.AccountID != accountID || got.Role != model.RoleStaff {
		t.Fatalf("expected cached principal, got %+v (hit=%v)", got, ok)
	}

	c.drop(ctx, first)
	if _, ok := c.get(ctx, first); ok {
		t.Fatalf("expected dropped entry to miss")
	}

	c.forget(ctx, accountID)
	if _, ok := c.get(ctx, second); ok {
		t.Fatalf("expected forget to drop every entry of the account")
	}
}

func TestCacheSkipsExpiredPrincipal(t *testing.T) {
	client := openTestRedis(t)
	if client == nil {
		return
	}
	ctx := context.Background()
	c := newCache(client, time.Minute)
	now := time.Now().UTC()
	hash := uuid.NewString()

	c.put(ctx, hash, Principal{AccountID: uuid.NewString(), ExpiresAt: now.Add(-time.Second)}, now)
	if _, ok := c.get(ctx, hash); ok {
		t.Fatalf("expected an already expired principal not to be cached")
	}
}
