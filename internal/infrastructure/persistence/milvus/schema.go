// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionWarehouseDocs 仓库文档集合（标准索引）
	CollectionWarehouseDocs = "warehouse_docs"
	// CollectionWarehouseDocsAccelerated 仓库文档集合（GPU 加速索引）
	CollectionWarehouseDocsAccelerated = "warehouse_docs_accelerated"

	// VectorDimension 向量维度，与 embedding 模型输出保持一致
	VectorDimension = 768
)

// WarehouseDocsSchema 仓库文档 Collection Schema。
// 两个集合共用同一字段布局，仅索引类型不同。
func WarehouseDocsSchema(collection string) *entity.Schema {
	return &entity.Schema{
		CollectionName: collection,
		Description:    "Warehouse documents (SOPs, manuals, safety notes) for semantic search",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(VectorDimension),
				},
			},
			{
				Name:     "source",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "sku",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "equipment_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "location",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "content_time",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// WarehouseDocument 仓库文档数据结构
type WarehouseDocument struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	Source      string    `json:"source"`
	SKU         string    `json:"sku"`
	EquipmentID string    `json:"equipment_id"`
	Location    string    `json:"location"`
	ContentTime int64     `json:"content_time"`
	Content     string    `json:"content"`
}
