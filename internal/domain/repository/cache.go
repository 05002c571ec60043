// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"
)

// CacheType 缓存命名空间类型，决定键前缀、TTL 与容量上限
type CacheType string

const (
	CacheTypeSQL      CacheType = "sql"
	CacheTypeVector   CacheType = "vector"
	CacheTypeEvidence CacheType = "evidence"
	CacheTypeSession  CacheType = "session"
	CacheTypeConfig   CacheType = "config"
)

// CacheStore 分类型缓存接口
// 实现方吞掉后端故障：Get 失败按未命中处理，Set/Invalidate 失败只记日志，
// 调用方永远不因缓存故障而失败。
type CacheStore interface {
	// Get 读取缓存值，第二个返回值表示是否命中
	Get(ctx context.Context, typ CacheType, key string) ([]byte, bool)

	// Set 写入缓存值；ttl<=0 时使用类型默认 TTL
	Set(ctx context.Context, typ CacheType, key string, value []byte, ttl time.Duration)

	// Invalidate 按模式失效（如 "sql:inventory:*"），返回删除条数
	Invalidate(ctx context.Context, pattern string) (int, error)
}
