package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"warehouse-assistant-api/internal/config"
	"warehouse-assistant-api/internal/domain/repository"
	"warehouse-assistant-api/pkg/logger"
	"warehouse-assistant-api/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

// TypedCache 分类型 Redis 缓存。
// 键按类型加前缀（sql:/vector:/evidence:/session:/config:），每个类型
// 各自的 TTL 与容量上限来自配置；容量上限通过按访问时间排序的
// ZSET 索引近似 LRU 淘汰。
// 后端故障被吞掉：Get 按未命中处理，Set 异步尽力而为。
type TypedCache struct {
	client    *Client
	opTimeout time.Duration
	types     map[repository.CacheType]config.CacheTypeConfig
}

// NewTypedCache 创建分类型缓存
func NewTypedCache(client *Client, opTimeout time.Duration, types map[string]config.CacheTypeConfig) *TypedCache {
	if opTimeout <= 0 {
		opTimeout = 50 * time.Millisecond
	}
	typed := make(map[repository.CacheType]config.CacheTypeConfig, len(types))
	for name, cfg := range types {
		typed[repository.CacheType(name)] = cfg
	}
	return &TypedCache{
		client:    client,
		opTimeout: opTimeout,
		types:     typed,
	}
}

func namespacedKey(typ repository.CacheType, key string) string {
	return string(typ) + ":" + key
}

func lruIndexKey(typ repository.CacheType) string {
	return "lru:" + string(typ)
}

// Get 读取缓存值。任何后端错误都按未命中处理。
func (c *TypedCache) Get(ctx context.Context, typ repository.CacheType, key string) ([]byte, bool) {
	ctx, span := cacheTracer.Start(ctx, "cache.Get",
		trace.WithAttributes(
			attribute.String("cache.type", string(typ)),
			attribute.String("cache.key", key),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	nsKey := namespacedKey(typ, key)
	val, err := c.client.rdb.Get(ctx, nsKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.RecordError(err)
			logger.Debug(ctx, "cache backend error treated as miss", "key", nsKey, "error", err.Error())
		}
		span.SetAttributes(attribute.Bool("cache.hit", false))
		metrics.CacheMissesTotal.WithLabelValues(string(typ)).Inc()
		return nil, false
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	metrics.CacheHitsTotal.WithLabelValues(string(typ)).Inc()

	// 刷新 LRU 访问时间，失败不影响命中
	c.client.rdb.ZAdd(ctx, lruIndexKey(typ), redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: nsKey,
	})
	return val, true
}

// Set 异步写入缓存。写入与父请求解耦，取消或失败都不回传。
func (c *TypedCache) Set(ctx context.Context, typ repository.CacheType, key string, value []byte, ttl time.Duration) {
	typeCfg := c.types[typ]
	if ttl <= 0 {
		ttl = typeCfg.TTL
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, c.opTimeout)
		defer cancel()

		ctx, span := cacheTracer.Start(ctx, "cache.Set",
			trace.WithAttributes(
				attribute.String("cache.type", string(typ)),
				attribute.String("cache.key", key),
				attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
			))
		defer span.End()

		nsKey := namespacedKey(typ, key)
		pipe := c.client.rdb.Pipeline()
		pipe.Set(ctx, nsKey, value, ttl)
		pipe.ZAdd(ctx, lruIndexKey(typ), redis.Z{
			Score:  float64(time.Now().UnixNano()),
			Member: nsKey,
		})
		if _, err := pipe.Exec(ctx); err != nil {
			span.RecordError(err)
			logger.Debug(ctx, "cache set dropped", "key", nsKey, "error", err.Error())
			return
		}

		if typeCfg.MaxEntries > 0 {
			c.enforceCeiling(ctx, typ, typeCfg.MaxEntries)
		}
	}()
}

// enforceCeiling 超出容量上限时按访问时间淘汰最旧条目
func (c *TypedCache) enforceCeiling(ctx context.Context, typ repository.CacheType, maxEntries int) {
	indexKey := lruIndexKey(typ)
	card, err := c.client.rdb.ZCard(ctx, indexKey).Result()
	if err != nil || card <= int64(maxEntries) {
		return
	}

	evictCount := card - int64(maxEntries)
	victims, err := c.client.rdb.ZRange(ctx, indexKey, 0, evictCount-1).Result()
	if err != nil || len(victims) == 0 {
		return
	}

	pipe := c.client.rdb.Pipeline()
	pipe.Del(ctx, victims...)
	pipe.ZRem(ctx, indexKey, toMembers(victims)...)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Debug(ctx, "cache eviction failed", "type", string(typ), "error", err.Error())
		return
	}
	metrics.CacheEvictionsTotal.WithLabelValues(string(typ), "lru").Add(float64(len(victims)))
}

// Invalidate 按模式清除缓存，返回删除条数。
// 与 Get/Set 不同，失败上抛给调用方决定重试。
func (c *TypedCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.Invalidate",
		trace.WithAttributes(attribute.String("cache.pattern", pattern)))
	defer span.End()

	iter := c.client.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to scan pattern %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to delete %d keys: %w", len(keys), err)
	}

	// 同步清理各类型的 LRU 索引
	byType := make(map[repository.CacheType][]interface{})
	for _, key := range keys {
		for typ := range c.types {
			prefix := string(typ) + ":"
			if len(key) > len(prefix) && key[:len(prefix)] == prefix {
				byType[typ] = append(byType[typ], key)
				break
			}
		}
	}
	for typ, members := range byType {
		c.client.rdb.ZRem(ctx, lruIndexKey(typ), members...)
	}

	span.SetAttributes(attribute.Int("cache.invalidated_count", len(keys)))
	return len(keys), nil
}

func toMembers(keys []string) []interface{} {
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	return members
}
