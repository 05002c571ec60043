// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"warehouse-assistant-api/internal/domain/entity"
)

// AnswerRequest 证据检索请求
type AnswerRequest struct {
	Query     string `json:"query" binding:"required,max=5000"`
	SessionID string `json:"session_id,omitempty"`
	TopK      int    `json:"top_k,omitempty"`

	Filters *QueryFilters `json:"filters,omitempty"`

	// Embedding 调用方预先计算的查询向量，缺省由服务端生成
	Embedding []float32 `json:"embedding,omitempty"`
}

// QueryFilters 结构化过滤条件
type QueryFilters struct {
	SKU         string `json:"sku,omitempty"`
	EquipmentID string `json:"equipment_id,omitempty"`
	Zone        string `json:"zone,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
}

// AnswerResponse 证据检索响应
type AnswerResponse struct {
	Items               []*EvidenceItem  `json:"items"`
	Routing             *RoutingDecision `json:"routing"`
	Confidence          string           `json:"confidence"`
	ClarifyingQuestions []*Question      `json:"clarifying_questions,omitempty"`
	Degraded            bool             `json:"degraded"`
}

// RoutingDecision 路由决策
type RoutingDecision struct {
	Route       string   `json:"route"`
	SQLScore    int      `json:"sql_score"`
	VectorScore int      `json:"vector_score"`
	Indicators  []string `json:"indicators,omitempty"`
}

// EvidenceItem 证据条目
type EvidenceItem struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	Source      string         `json:"source"`
	Content     string         `json:"content"`
	ContentTime string         `json:"content_time,omitempty"`
	LatencyMS   int64          `json:"latency_ms"`
	Score       *EvidenceScore `json:"score"`
}

// EvidenceScore 证据评分明细
type EvidenceScore struct {
	Similarity     float64 `json:"similarity"`
	Authority      float64 `json:"authority"`
	Freshness      float64 `json:"freshness"`
	CrossReference float64 `json:"cross_reference"`
	Diversity      float64 `json:"diversity"`
	Composite      float64 `json:"composite"`
}

// Question 澄清问题
type Question struct {
	Text     string `json:"text"`
	Priority int    `json:"priority"`
	Category string `json:"category"`
}

// FromEvidencePack 将证据包转换为响应 DTO
func FromEvidencePack(pack *entity.EvidencePack) *AnswerResponse {
	if pack == nil {
		return &AnswerResponse{Items: []*EvidenceItem{}}
	}

	resp := &AnswerResponse{
		Items:      make([]*EvidenceItem, 0, len(pack.Items)),
		Confidence: string(pack.Confidence),
		Degraded:   pack.Degraded,
		Routing: &RoutingDecision{
			Route:       string(pack.Routing.Route),
			SQLScore:    pack.Routing.SQLScore,
			VectorScore: pack.Routing.VectorScore,
			Indicators:  pack.Routing.Indicators,
		},
	}

	for _, item := range pack.Items {
		if item == nil {
			continue
		}
		out := &EvidenceItem{
			ID:        item.ID,
			Kind:      string(item.Kind),
			Source:    item.Source,
			Content:   item.Content,
			LatencyMS: item.LatencyMS,
			Score: &EvidenceScore{
				Similarity:     item.Score.Similarity,
				Authority:      item.Score.Authority,
				Freshness:      item.Score.Freshness,
				CrossReference: item.Score.CrossReference,
				Diversity:      item.Score.Diversity,
				Composite:      item.Score.Composite,
			},
		}
		if !item.ContentTime.IsZero() {
			out.ContentTime = item.ContentTime.UTC().Format(time.RFC3339)
		}
		resp.Items = append(resp.Items, out)
	}

	for _, q := range pack.ClarifyingQuestions {
		resp.ClarifyingQuestions = append(resp.ClarifyingQuestions, &Question{
			Text:     q.Text,
			Priority: q.Priority,
			Category: string(q.Category),
		})
	}

	return resp
}
