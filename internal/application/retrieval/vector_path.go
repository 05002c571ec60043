package retrieval

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"time"

	"warehouse-assistant-api/internal/domain/entity"
	"warehouse-assistant-api/internal/domain/repository"
	"warehouse-assistant-api/pkg/logger"
	"warehouse-assistant-api/pkg/metrics"
)

// VectorPath 语义检索路径：优先走加速索引，失败时以相同参数
// 透明重试标准索引，两者都失败才算路径不可用。
type VectorPath struct {
	index    DocumentIndex
	embedder Embedder
	cache    repository.CacheStore

	timeout     time.Duration
	cacheTTL    time.Duration
	topK        int
	accelerated bool
}

func NewVectorPath(index DocumentIndex, embedder Embedder, cache repository.CacheStore, timeout, cacheTTL time.Duration, topK int, accelerated bool) *VectorPath {
	if topK <= 0 {
		topK = 10
	}
	return &VectorPath{
		index:       index,
		embedder:    embedder,
		cache:       cache,
		timeout:     timeout,
		cacheTTL:    cacheTTL,
		topK:        topK,
		accelerated: accelerated,
	}
}

// Retrieve 执行向量检索。调用方未提供向量时由服务端生成。
func (p *VectorPath) Retrieve(ctx context.Context, q *entity.Query) ([]*entity.EvidenceItem, error) {
	if p.index == nil {
		return nil, fmt.Errorf("%w: document index not configured", ErrRetrievalUnavailable)
	}

	topK := q.TopK
	if topK <= 0 {
		topK = p.topK
	}
	if topK > 50 {
		topK = 50
	}

	vector := q.Embedding
	if len(vector) == 0 {
		if p.embedder == nil {
			return nil, fmt.Errorf("%w: no embedding supplied and no embedder configured", ErrRetrievalUnavailable)
		}
		vectors, err := p.embedder.Embed(ctx, []string{strings.TrimSpace(q.Text)})
		if err != nil || len(vectors) == 0 {
			return nil, fmt.Errorf("%w: embedding generation failed: %v", ErrRetrievalUnavailable, err)
		}
		vector = vectors[0]
	}

	key := vectorCacheKey(vector, topK, q.Filters.Zone)
	if p.cache != nil {
		if data, ok := p.cache.Get(ctx, repository.CacheTypeVector, key); ok {
			var items []*entity.EvidenceItem
			if err := json.Unmarshal(data, &items); err == nil {
				for _, item := range items {
					item.LatencyMS = 0
				}
				return items, nil
			}
			logger.Warn(ctx, "discarding undecodable vector cache entry", "key", key)
		}
	}

	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results, err := p.search(cctx, vector, topK, q.Filters.Zone)
	metrics.RetrievalDuration.WithLabelValues("vector").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RetrievalTotal.WithLabelValues("vector", "error").Inc()
		return nil, fmt.Errorf("%w: vector search failed: %v", ErrRetrievalUnavailable, err)
	}
	metrics.RetrievalTotal.WithLabelValues("vector", "ok").Inc()

	latency := time.Since(start).Milliseconds()
	items := make([]*entity.EvidenceItem, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		item := &entity.EvidenceItem{
			ID:         r.ID,
			Kind:       entity.SourceVector,
			Source:     r.Source,
			Content:    strings.TrimSpace(r.Content),
			Similarity: clamp01(float64(r.Score)),
			LatencyMS:  latency,
			Subject: entity.EvidenceSubject{
				SKU:         strings.TrimSpace(r.SKU),
				EquipmentID: strings.TrimSpace(r.EquipmentID),
				Location:    strings.TrimSpace(r.Location),
			},
		}
		if r.ContentTime > 0 {
			item.ContentTime = time.Unix(r.ContentTime, 0)
		}
		items = append(items, item)
	}

	if p.cache != nil {
		if data, err := json.Marshal(items); err == nil {
			p.cache.Set(ctx, repository.CacheTypeVector, key, data, p.cacheTTL)
		}
	}
	return items, nil
}

// search 加速索引优先，失败以相同 top-k 与度量透明重试标准索引
func (p *VectorPath) search(ctx context.Context, vector []float32, topK int, zone string) ([]*IndexSearchResult, error) {
	params := &IndexSearchParams{
		QueryVector: vector,
		TopK:        topK,
		Zone:        zone,
	}

	if p.accelerated {
		params.Accelerated = true
		results, err := p.index.Search(ctx, params)
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		logger.Warn(ctx, "accelerated index failed, retrying standard index", "error", err.Error())
		metrics.FallbackTotal.WithLabelValues("accelerated", "standard").Inc()
	}

	params.Accelerated = false
	return p.index.Search(ctx, params)
}

// vectorCacheKey 对查询向量取指纹，同一向量与参数命中同一键
func vectorCacheKey(vector []float32, topK int, zone string) string {
	h := fnv.New64a()
	var buf [4]byte
	for _, v := range vector {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	return "q:" + strconv.FormatUint(h.Sum64(), 16) + ":k" + strconv.Itoa(topK) + ":" + zone
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
