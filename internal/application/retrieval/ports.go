package retrieval

import (
	"context"

	"warehouse-assistant-api/internal/domain/entity"
)

// Retriever 单条检索路径的统一入口，SQLPath 与 VectorPath 都实现它
type Retriever interface {
	Retrieve(ctx context.Context, q *entity.Query) ([]*entity.EvidenceItem, error)
}

// DocumentIndex 定义应用层对"向量文档索引"的最小依赖（port）。
// 由基础设施层提供具体实现（例如 Milvus）。
type DocumentIndex interface {
	Search(ctx context.Context, params *IndexSearchParams) ([]*IndexSearchResult, error)
}

// IndexSearchParams 向量检索参数
type IndexSearchParams struct {
	QueryVector []float32
	TopK        int

	// Accelerated 为 true 时检索 GPU 加速集合，失败由调用方回退标准集合
	Accelerated bool

	Zone string
}

// IndexSearchResult 向量检索结果
type IndexSearchResult struct {
	ID          string
	Score       float32
	Content     string
	Source      string
	SKU         string
	EquipmentID string
	Location    string
	ContentTime int64
}

// Embedder 查询向量生成 port
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
