// Package memory 提供进程内缓存实现，用于单测与 Redis 不可用时的兜底
package memory

import (
	"container/list"
	"context"
	"path"
	"sync"
	"time"

	"warehouse-assistant-api/internal/config"
	"warehouse-assistant-api/internal/domain/repository"
	"warehouse-assistant-api/pkg/metrics"
)

type cacheEntry struct {
	key       string
	typ       repository.CacheType
	value     []byte
	expiresAt time.Time
	elem      *list.Element
}

// Cache 进程内分类型 LRU 缓存。
// 语义与 Redis 实现一致：绝对 TTL、每类型容量上限、模式失效。
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   map[repository.CacheType]*list.List
	types   map[repository.CacheType]config.CacheTypeConfig

	// Now 可注入时钟，便于 TTL 测试
	Now func() time.Time
}

// NewCache 创建进程内缓存
func NewCache(types map[string]config.CacheTypeConfig) *Cache {
	typed := make(map[repository.CacheType]config.CacheTypeConfig, len(types))
	for name, cfg := range types {
		typed[repository.CacheType(name)] = cfg
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		order:   make(map[repository.CacheType]*list.List),
		types:   typed,
		Now:     time.Now,
	}
}

func (c *Cache) namespaced(typ repository.CacheType, key string) string {
	return string(typ) + ":" + key
}

// Get 读取缓存值，过期条目当场清除
func (c *Cache) Get(_ context.Context, typ repository.CacheType, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nsKey := c.namespaced(typ, key)
	entry, ok := c.entries[nsKey]
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues(string(typ)).Inc()
		return nil, false
	}
	if c.Now().After(entry.expiresAt) {
		c.remove(entry)
		metrics.CacheEvictionsTotal.WithLabelValues(string(typ), "ttl").Inc()
		metrics.CacheMissesTotal.WithLabelValues(string(typ)).Inc()
		return nil, false
	}

	c.order[typ].MoveToBack(entry.elem)
	metrics.CacheHitsTotal.WithLabelValues(string(typ)).Inc()
	return entry.value, true
}

// Set 写入缓存值；超出类型容量上限时淘汰最久未访问的条目
func (c *Cache) Set(_ context.Context, typ repository.CacheType, key string, value []byte, ttl time.Duration) {
	typeCfg := c.types[typ]
	if ttl <= 0 {
		ttl = typeCfg.TTL
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	nsKey := c.namespaced(typ, key)
	if existing, ok := c.entries[nsKey]; ok {
		c.remove(existing)
	}

	if c.order[typ] == nil {
		c.order[typ] = list.New()
	}
	entry := &cacheEntry{
		key:       nsKey,
		typ:       typ,
		value:     value,
		expiresAt: c.Now().Add(ttl),
	}
	entry.elem = c.order[typ].PushBack(entry)
	c.entries[nsKey] = entry

	if max := typeCfg.MaxEntries; max > 0 {
		for c.order[typ].Len() > max {
			oldest := c.order[typ].Front()
			if oldest == nil {
				break
			}
			c.remove(oldest.Value.(*cacheEntry))
			metrics.CacheEvictionsTotal.WithLabelValues(string(typ), "lru").Inc()
		}
	}
}

// Invalidate 按 glob 模式清除缓存
func (c *Cache) Invalidate(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return removed, err
		}
		if matched {
			c.remove(entry)
			removed++
		}
	}
	return removed, nil
}

// Len 当前类型的条目数
func (c *Cache) Len(typ repository.CacheType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.order[typ] == nil {
		return 0
	}
	return c.order[typ].Len()
}

func (c *Cache) remove(entry *cacheEntry) {
	delete(c.entries, entry.key)
	if l := c.order[entry.typ]; l != nil && entry.elem != nil {
		l.Remove(entry.elem)
	}
}
