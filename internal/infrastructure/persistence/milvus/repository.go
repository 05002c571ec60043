package milvus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"warehouse-assistant-api/pkg/metrics"
)

// Repository 仓库文档向量仓储。
// 同一份文档写入标准与加速两个集合，检索时由调用方选择集合。
type Repository struct {
	client *Client
}

// NewRepository 创建向量检索仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// SearchParams 检索参数
type SearchParams struct {
	QueryVector []float32
	TopK        int
	Accelerated bool
	Zone        string
}

// SearchResult 检索结果
type SearchResult struct {
	ID          string
	Score       float32
	Content     string
	Source      string
	SKU         string
	EquipmentID string
	Location    string
	ContentTime int64
}

// collectionFor 按是否走加速索引选择集合
func collectionFor(accelerated bool) string {
	if accelerated {
		return CollectionWarehouseDocsAccelerated
	}
	return CollectionWarehouseDocs
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	schema := WarehouseDocsSchema(r.client.CollectionName(collection))

	err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CreateIndex 创建向量索引。
// 标准集合使用 HNSW，加速集合使用 GPU_IVF_FLAT。
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	var idx entity.Index
	var err error
	if collection == CollectionWarehouseDocsAccelerated {
		idx, err = entity.NewIndexGPUIvfFlat(entity.COSINE, 1024)
	} else {
		idx, err = entity.NewIndexHNSW(
			entity.COSINE,
			r.client.config.HNSWM,
			r.client.config.HNSWEfConstruction,
		)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Search 检索仓库文档
func (r *Repository) Search(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	collection := collectionFor(params.Accelerated)

	ctx, span := tracer.Start(ctx, "milvus.Search",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	collName := r.client.CollectionName(collection)

	// 区域过滤
	filter := ""
	if zone := strings.TrimSpace(params.Zone); zone != "" {
		filter = fmt.Sprintf(`location == "%s"`, zone)
	}

	var sp entity.SearchParam
	var err error
	if params.Accelerated {
		sp, err = entity.NewIndexGPUIvfFlatSearchParam(64)
	} else {
		sp, err = entity.NewIndexHNSWSearchParam(128)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	start := time.Now()
	results, err := r.client.milvus.Search(ctx,
		collName,
		nil,
		filter,
		[]string{"id", "content", "source", "sku", "equipment_id", "location", "content_time"},
		[]entity.Vector{entity.FloatVector(params.QueryVector)},
		"vector",
		entity.COSINE,
		params.TopK,
		sp,
	)
	metrics.VectorSearchDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		metrics.VectorSearchTotal.WithLabelValues(collection, "error").Inc()
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	metrics.VectorSearchTotal.WithLabelValues(collection, "ok").Inc()

	var searchResults []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{
				Score: result.Scores[i],
			}

			if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				sr.ID = idCol.Data()[i]
			}
			if contentCol, ok := result.Fields.GetColumn("content").(*entity.ColumnVarChar); ok {
				sr.Content = contentCol.Data()[i]
			}
			if sourceCol, ok := result.Fields.GetColumn("source").(*entity.ColumnVarChar); ok {
				sr.Source = sourceCol.Data()[i]
			}
			if skuCol, ok := result.Fields.GetColumn("sku").(*entity.ColumnVarChar); ok {
				sr.SKU = skuCol.Data()[i]
			}
			if equipCol, ok := result.Fields.GetColumn("equipment_id").(*entity.ColumnVarChar); ok {
				sr.EquipmentID = equipCol.Data()[i]
			}
			if locCol, ok := result.Fields.GetColumn("location").(*entity.ColumnVarChar); ok {
				sr.Location = locCol.Data()[i]
			}
			if timeCol, ok := result.Fields.GetColumn("content_time").(*entity.ColumnInt64); ok {
				sr.ContentTime = timeCol.Data()[i]
			}

			searchResults = append(searchResults, sr)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(searchResults)))
	return searchResults, nil
}

// InsertDocuments 插入仓库文档。
// 写入标准集合，加速集合启用时同步写入，保证两个集合对同一查询返回一致的候选集。
func (r *Repository) InsertDocuments(ctx context.Context, docs []*WarehouseDocument) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InsertDocuments",
		trace.WithAttributes(attribute.Int("count", len(docs))))
	defer span.End()

	if len(docs) == 0 {
		return nil
	}

	collections := []string{CollectionWarehouseDocs}
	if r.client.config.AcceleratedEnabled {
		collections = append(collections, CollectionWarehouseDocsAccelerated)
	}

	ids := make([]string, len(docs))
	vectors := make([][]float32, len(docs))
	sources := make([]string, len(docs))
	skus := make([]string, len(docs))
	equipmentIDs := make([]string, len(docs))
	locations := make([]string, len(docs))
	contentTimes := make([]int64, len(docs))
	contents := make([]string, len(docs))

	for i, doc := range docs {
		ids[i] = doc.ID
		vectors[i] = doc.Vector
		sources[i] = doc.Source
		skus[i] = doc.SKU
		equipmentIDs[i] = doc.EquipmentID
		locations[i] = doc.Location
		contentTimes[i] = doc.ContentTime
		contents[i] = doc.Content
	}

	for _, collection := range collections {
		collName := r.client.CollectionName(collection)
		_, err := r.client.milvus.Insert(ctx, collName, "",
			entity.NewColumnVarChar("id", ids),
			entity.NewColumnFloatVector("vector", VectorDimension, vectors),
			entity.NewColumnVarChar("source", sources),
			entity.NewColumnVarChar("sku", skus),
			entity.NewColumnVarChar("equipment_id", equipmentIDs),
			entity.NewColumnVarChar("location", locations),
			entity.NewColumnInt64("content_time", contentTimes),
			entity.NewColumnVarChar("content", contents),
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to insert documents into %s: %w", collName, err)
		}
	}

	return nil
}

// DeleteBySource 删除某来源下的全部文档
func (r *Repository) DeleteBySource(ctx context.Context, source string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "milvus.DeleteBySource",
		trace.WithAttributes(attribute.String("source", source)))
	defer span.End()

	filter := fmt.Sprintf(`source == "%s"`, source)

	collections := []string{CollectionWarehouseDocs}
	if r.client.config.AcceleratedEnabled {
		collections = append(collections, CollectionWarehouseDocsAccelerated)
	}
	for _, collection := range collections {
		collName := r.client.CollectionName(collection)
		if err := r.client.milvus.Delete(ctx, collName, "", filter); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to delete documents from %s: %w", collName, err)
		}
	}

	return nil
}

// EnsureCollections 确保文档集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureCollections(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	collections := []string{CollectionWarehouseDocs}
	if r.client.config.AcceleratedEnabled {
		collections = append(collections, CollectionWarehouseDocsAccelerated)
	}

	for _, collection := range collections {
		exists, err := r.client.HasCollection(ctx, collection)
		if err != nil {
			return err
		}
		if !exists {
			if err := r.CreateCollection(ctx, collection); err != nil {
				return err
			}
			// 新建集合时创建索引；若失败，允许后续由运维介入。
			_ = r.CreateIndex(ctx, collection)
		}

		if err := r.client.LoadCollection(ctx, collection); err != nil {
			return err
		}
	}

	return nil
}
