package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"warehouse-assistant-api/internal/domain/entity"
)

// fakeIndex 可配置失败模式的 DocumentIndex 假实现
type fakeIndex struct {
	failAccelerated bool
	failAll         bool
	results         []*IndexSearchResult
	searches        []*IndexSearchParams
}

func (f *fakeIndex) Search(_ context.Context, params *IndexSearchParams) ([]*IndexSearchResult, error) {
	copied := *params
	f.searches = append(f.searches, &copied)
	if f.failAll {
		return nil, errors.New("index down")
	}
	if f.failAccelerated && params.Accelerated {
		return nil, errors.New("gpu pool exhausted")
	}
	return f.results, nil
}

type fakeEmbedder struct {
	vectors [][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vectors[i%len(f.vectors)]
	}
	return out, nil
}

func TestVectorPathUsesSuppliedEmbedding(t *testing.T) {
	index := &fakeIndex{results: []*IndexSearchResult{
		{ID: "doc-1", Score: 0.92, Content: "battery swap procedure", Source: "docs:sop"},
	}}
	p := NewVectorPath(index, nil, nil, time.Second, time.Minute, 10, true)

	items, err := p.Retrieve(context.Background(), &entity.Query{
		Text:      "how do I swap a battery",
		Embedding: []float32{0.1, 0.2, 0.3},
	})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(items) != 1 || items[0].Kind != entity.SourceVector {
		t.Fatalf("unexpected items %+v", items)
	}
	if items[0].Similarity < 0 || items[0].Similarity > 1 {
		t.Fatalf("similarity not normalized: %f", items[0].Similarity)
	}
	if len(index.searches) != 1 || !index.searches[0].Accelerated {
		t.Fatalf("expected one accelerated search, got %+v", index.searches)
	}
}

func TestVectorPathFallsBackToStandardIndex(t *testing.T) {
	index := &fakeIndex{
		failAccelerated: true,
		results:         []*IndexSearchResult{{ID: "doc-1", Score: 0.8, Source: "docs:manual"}},
	}
	p := NewVectorPath(index, nil, nil, time.Second, time.Minute, 7, true)

	items, err := p.Retrieve(context.Background(), &entity.Query{
		Text:      "how to park the agv",
		Embedding: []float32{0.5, 0.5},
	})
	if err != nil {
		t.Fatalf("fallback should succeed, got %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected fallback results, got %d items", len(items))
	}
	if len(index.searches) != 2 {
		t.Fatalf("expected accelerated then standard search, got %d searches", len(index.searches))
	}
	if !index.searches[0].Accelerated || index.searches[1].Accelerated {
		t.Fatalf("unexpected search order %+v", index.searches)
	}
	if index.searches[0].TopK != index.searches[1].TopK {
		t.Fatalf("retry must keep identical top-k: %d vs %d", index.searches[0].TopK, index.searches[1].TopK)
	}
}

func TestVectorPathBothVariantsFailing(t *testing.T) {
	index := &fakeIndex{failAll: true}
	p := NewVectorPath(index, nil, nil, time.Second, time.Minute, 10, true)

	_, err := p.Retrieve(context.Background(), &entity.Query{
		Text:      "anything",
		Embedding: []float32{1},
	})
	if !IsUnavailable(err) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestVectorPathGeneratesEmbeddingWhenMissing(t *testing.T) {
	index := &fakeIndex{results: []*IndexSearchResult{{ID: "doc-1", Score: 0.6, Source: "docs:notes"}}}
	embedder := &fakeEmbedder{vectors: [][]float32{{0.4, 0.4}}}
	p := NewVectorPath(index, embedder, nil, time.Second, time.Minute, 10, false)

	items, err := p.Retrieve(context.Background(), &entity.Query{Text: "storage guidance"})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestVectorPathEmbedderFailureIsUnavailable(t *testing.T) {
	p := NewVectorPath(&fakeIndex{}, &fakeEmbedder{err: errors.New("service down")}, nil, time.Second, time.Minute, 10, false)
	if _, err := p.Retrieve(context.Background(), &entity.Query{Text: "storage guidance"}); !IsUnavailable(err) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestVectorPathServesFromCache(t *testing.T) {
	cache := newFakeCache()
	index := &fakeIndex{results: []*IndexSearchResult{{ID: "doc-1", Score: 0.9, Source: "docs:sop"}}}
	p := NewVectorPath(index, nil, cache, time.Second, time.Minute, 10, false)

	q := &entity.Query{Text: "anything", Embedding: []float32{0.7, 0.1}}
	if _, err := p.Retrieve(context.Background(), q); err != nil {
		t.Fatalf("first Retrieve() error: %v", err)
	}

	index.failAll = true
	items, err := p.Retrieve(context.Background(), q)
	if err != nil {
		t.Fatalf("second Retrieve() should hit the cache, got %v", err)
	}
	if len(items) != 1 || items[0].ID != "doc-1" {
		t.Fatalf("expected cached item, got %+v", items)
	}
	if items[0].LatencyMS != 0 {
		t.Fatalf("cache hit must report near-zero latency, got %d", items[0].LatencyMS)
	}
	if len(index.searches) != 1 {
		t.Fatalf("index should only be hit once, got %d searches", len(index.searches))
	}
}

func TestVectorPathClampsTopK(t *testing.T) {
	index := &fakeIndex{}
	p := NewVectorPath(index, nil, nil, time.Second, time.Minute, 10, false)

	q := &entity.Query{Text: "anything", Embedding: []float32{1}, TopK: 500}
	if _, err := p.Retrieve(context.Background(), q); err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if index.searches[0].TopK != 50 {
		t.Fatalf("top-k should clamp to 50, got %d", index.searches[0].TopK)
	}
}
