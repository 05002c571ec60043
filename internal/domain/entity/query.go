// Package entity 定义领域实体
package entity

// QueryFilters 查询的结构化过滤条件（由调用方显式提供，与文本解析互补）
type QueryFilters struct {
	SKU         string `json:"sku,omitempty"`
	EquipmentID string `json:"equipment_id,omitempty"`
	Zone        string `json:"zone,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
}

// Query 一次检索请求
type Query struct {
	Text      string       `json:"text"`
	TraceID   string       `json:"trace_id,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
	TopK      int          `json:"top_k,omitempty"`
	Filters   QueryFilters `json:"filters"`

	// Embedding 调用方预先计算的查询向量；为空时由服务端生成
	Embedding []float32 `json:"embedding,omitempty"`
}

// Route 路由目标
type Route string

const (
	RouteSQL    Route = "sql"
	RouteVector Route = "vector"
	RouteHybrid Route = "hybrid"
)

// RoutingDecision 分类器输出的路由决策
type RoutingDecision struct {
	Route       Route    `json:"route"`
	SQLScore    int      `json:"sql_score"`
	VectorScore int      `json:"vector_score"`
	Indicators  []string `json:"indicators,omitempty"`
}
