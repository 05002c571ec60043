package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"warehouse-assistant-api/internal/domain/entity"
	"warehouse-assistant-api/internal/domain/repository"
)

// fakeCache 进程内 CacheStore 假实现，测试共用
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) key(typ repository.CacheType, key string) string {
	return string(typ) + ":" + key
}

func (c *fakeCache) Get(_ context.Context, typ repository.CacheType, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[c.key(typ, key)]
	return data, ok
}

func (c *fakeCache) Set(_ context.Context, typ repository.CacheType, key string, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(typ, key)] = value
}

func (c *fakeCache) Invalidate(_ context.Context, _ string) (int, error) {
	return 0, nil
}

// fakeWarehouseRepo 固定返回值的仓储假实现
type fakeWarehouseRepo struct {
	err          error
	availability []*repository.AvailabilityResult
	total        *entity.InventoryTotal
	equipment    []*entity.Equipment
	stock        []*entity.InventoryRecord
	tasks        []*entity.WarehouseTask
	calls        int
}

func (r *fakeWarehouseRepo) Availability(_ context.Context, _, _ string) ([]*repository.AvailabilityResult, error) {
	r.calls++
	return r.availability, r.err
}

func (r *fakeWarehouseRepo) QuantityTotals(_ context.Context, _ string) (*entity.InventoryTotal, error) {
	r.calls++
	return r.total, r.err
}

func (r *fakeWarehouseRepo) EquipmentStatus(_ context.Context, _, _ string) ([]*entity.Equipment, error) {
	r.calls++
	return r.equipment, r.err
}

func (r *fakeWarehouseRepo) StockByLocation(_ context.Context, _ string) ([]*entity.InventoryRecord, error) {
	r.calls++
	return r.stock, r.err
}

func (r *fakeWarehouseRepo) TasksInWindow(_ context.Context, _, _ time.Time, _ string) ([]*entity.WarehouseTask, error) {
	r.calls++
	return r.tasks, r.err
}

func TestSQLPathTemplateResolution(t *testing.T) {
	p := NewSQLPath(&fakeWarehouseRepo{}, nil, time.Second, time.Minute)

	tests := []struct {
		name  string
		query *entity.Query
		want  sqlTemplate
	}{
		{"availability", &entity.Query{Text: "Is SKU123 available?"}, tplAvailability},
		{"quantity total", &entity.Query{Text: "How many SKU123 do we have?"}, tplQuantityTotal},
		{"equipment by id", &entity.Query{Text: "status of FL-07", Filters: entity.QueryFilters{EquipmentID: "FL-07"}}, tplEquipment},
		{"equipment by zone", &entity.Query{Text: "which machines are down", Filters: entity.QueryFilters{Zone: "B"}}, tplEquipment},
		{"location for sku", &entity.Query{Text: "where is SKU123 stored"}, tplLocation},
		{"tasks window", &entity.Query{Text: "what was picked yesterday"}, tplTimeWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, _, err := p.resolveTemplate(tt.query)
			if err != nil {
				t.Fatalf("resolveTemplate() error: %v", err)
			}
			if tpl != tt.want {
				t.Fatalf("resolveTemplate() = %s, want %s", tpl, tt.want)
			}
		})
	}
}

func TestSQLPathUnmappableQuery(t *testing.T) {
	p := NewSQLPath(&fakeWarehouseRepo{}, nil, time.Second, time.Minute)
	_, err := p.Retrieve(context.Background(), &entity.Query{Text: "tell me a joke"})
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSQLPathInvalidWindow(t *testing.T) {
	p := NewSQLPath(&fakeWarehouseRepo{}, nil, time.Second, time.Minute)
	q := &entity.Query{
		Text:    "tasks between shifts",
		Filters: entity.QueryFilters{From: "not-a-time", To: "2026-01-02T00:00:00Z"},
	}
	if _, err := p.Retrieve(context.Background(), q); !IsValidationError(err) {
		t.Fatalf("expected ValidationError for malformed window, got %v", err)
	}
}

func TestSQLPathBuildsEvidence(t *testing.T) {
	repo := &fakeWarehouseRepo{
		availability: []*repository.AvailabilityResult{
			{SKU: "SKU123", Location: "A1", Quantity: 120, Reserved: 20, Available: 100, UpdatedAt: time.Now()},
		},
	}
	p := NewSQLPath(repo, newFakeCache(), time.Second, time.Minute)

	items, err := p.Retrieve(context.Background(), &entity.Query{Text: "Is SKU123 available?"})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 evidence item, got %d", len(items))
	}
	item := items[0]
	if item.Kind != entity.SourceSQL {
		t.Fatalf("expected sql evidence, got %s", item.Kind)
	}
	if item.Subject.SKU != "SKU123" || !item.Subject.HasQuantity || item.Subject.Quantity != 100 {
		t.Fatalf("unexpected subject %+v", item.Subject)
	}
	if item.Similarity != 1.0 {
		t.Fatalf("structured match should carry full similarity, got %f", item.Similarity)
	}
}

func TestSQLPathStoreFailureIsUnavailable(t *testing.T) {
	repo := &fakeWarehouseRepo{err: errors.New("connection refused")}
	p := NewSQLPath(repo, nil, time.Second, time.Minute)

	_, err := p.Retrieve(context.Background(), &entity.Query{Text: "How many SKU123 do we have?"})
	if !IsUnavailable(err) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
	if IsValidationError(err) {
		t.Fatal("store failure must not look like a validation error")
	}
}

func TestSQLPathServesFromCache(t *testing.T) {
	cache := newFakeCache()
	cached := []*entity.EvidenceItem{{ID: "cached", Kind: entity.SourceSQL, Content: "SKU123: 7 units", LatencyMS: 38}}
	data, _ := json.Marshal(cached)
	cache.Set(context.Background(), repository.CacheTypeSQL, sqlCacheKey(tplQuantityTotal, map[string]string{"sku": "SKU123"}), data, 0)

	repo := &fakeWarehouseRepo{err: errors.New("db down")}
	p := NewSQLPath(repo, cache, time.Second, time.Minute)

	items, err := p.Retrieve(context.Background(), &entity.Query{Text: "How many SKU123 do we have?"})
	if err != nil {
		t.Fatalf("cache hit should bypass the store, got error %v", err)
	}
	if len(items) != 1 || items[0].ID != "cached" {
		t.Fatalf("expected cached item, got %+v", items)
	}
	if items[0].LatencyMS != 0 {
		t.Fatalf("cache hit must report near-zero latency, got %d", items[0].LatencyMS)
	}
	if repo.calls != 0 {
		t.Fatalf("store should not be touched on cache hit, got %d calls", repo.calls)
	}
}

func TestSQLPathWritesThroughCache(t *testing.T) {
	cache := newFakeCache()
	repo := &fakeWarehouseRepo{total: &entity.InventoryTotal{SKU: "SKU123", TotalQuantity: 42, Locations: 2}}
	p := NewSQLPath(repo, cache, time.Second, time.Minute)

	if _, err := p.Retrieve(context.Background(), &entity.Query{Text: "How many SKU123 do we have?"}); err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	key := sqlCacheKey(tplQuantityTotal, map[string]string{"sku": "SKU123"})
	if _, ok := cache.Get(context.Background(), repository.CacheTypeSQL, key); !ok {
		t.Fatal("expected result to be written through to the cache")
	}
}
