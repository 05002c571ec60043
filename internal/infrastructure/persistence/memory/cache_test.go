package memory

import (
	"context"
	"testing"
	"time"

	"warehouse-assistant-api/internal/config"
	"warehouse-assistant-api/internal/domain/repository"
)

func testTypes() map[string]config.CacheTypeConfig {
	return map[string]config.CacheTypeConfig{
		"sql":    {TTL: 300 * time.Second, MaxEntries: 3},
		"vector": {TTL: 600 * time.Second, MaxEntries: 10},
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	c := NewCache(testTypes())
	ctx := context.Background()

	c.Set(ctx, repository.CacheTypeSQL, "k1", []byte("v1"), 0)
	got, ok := c.Get(ctx, repository.CacheTypeSQL, "k1")
	if !ok || string(got) != "v1" {
		t.Fatalf("Get() = %q, %v; want v1, true", got, ok)
	}

	if _, ok := c.Get(ctx, repository.CacheTypeVector, "k1"); ok {
		t.Fatal("namespaces must be isolated between types")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewCache(testTypes())
	ctx := context.Background()

	now := time.Now()
	c.Now = func() time.Time { return now }

	c.Set(ctx, repository.CacheTypeSQL, "k1", []byte("v1"), 0)

	now = now.Add(299 * time.Second)
	if _, ok := c.Get(ctx, repository.CacheTypeSQL, "k1"); !ok {
		t.Fatal("entry should still be live before type TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get(ctx, repository.CacheTypeSQL, "k1"); ok {
		t.Fatal("entry should expire after type TTL")
	}
}

func TestLRUCeiling(t *testing.T) {
	c := NewCache(testTypes())
	ctx := context.Background()

	c.Set(ctx, repository.CacheTypeSQL, "k1", []byte("v1"), 0)
	c.Set(ctx, repository.CacheTypeSQL, "k2", []byte("v2"), 0)
	c.Set(ctx, repository.CacheTypeSQL, "k3", []byte("v3"), 0)

	// 访问 k1 让 k2 成为最久未使用
	if _, ok := c.Get(ctx, repository.CacheTypeSQL, "k1"); !ok {
		t.Fatal("k1 should be present")
	}

	c.Set(ctx, repository.CacheTypeSQL, "k4", []byte("v4"), 0)

	if got := c.Len(repository.CacheTypeSQL); got != 3 {
		t.Fatalf("ceiling is 3 entries, got %d", got)
	}
	if _, ok := c.Get(ctx, repository.CacheTypeSQL, "k2"); ok {
		t.Fatal("least recently used entry should be evicted")
	}
	if _, ok := c.Get(ctx, repository.CacheTypeSQL, "k1"); !ok {
		t.Fatal("recently accessed entry must survive eviction")
	}
}

func TestInvalidatePattern(t *testing.T) {
	c := NewCache(testTypes())
	ctx := context.Background()

	c.Set(ctx, repository.CacheTypeSQL, "availability:sku=SKU123", []byte("a"), 0)
	c.Set(ctx, repository.CacheTypeSQL, "quantity_total:sku=SKU123", []byte("b"), 0)
	c.Set(ctx, repository.CacheTypeSQL, "availability:sku=SKU999", []byte("c"), 0)

	removed, err := c.Invalidate(ctx, "sql:*sku=SKU123*")
	if err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 entries removed, got %d", removed)
	}
	if _, ok := c.Get(ctx, repository.CacheTypeSQL, "availability:sku=SKU999"); !ok {
		t.Fatal("unrelated entry must survive invalidation")
	}
}
