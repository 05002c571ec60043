package entity

import "time"

// SourceKind 证据来源类型
type SourceKind string

const (
	SourceSQL    SourceKind = "sql"
	SourceVector SourceKind = "vector"
)

// EvidenceScore 五维子分与加权合成分，均落在 [0,1]
type EvidenceScore struct {
	Similarity     float64 `json:"similarity"`
	Authority      float64 `json:"authority"`
	Freshness      float64 `json:"freshness"`
	CrossReference float64 `json:"cross_reference"`
	Diversity      float64 `json:"diversity"`
	Composite      float64 `json:"composite"`
}

// EvidenceSubject 证据指向的主体，用于互证比对
type EvidenceSubject struct {
	SKU         string  `json:"sku,omitempty"`
	EquipmentID string  `json:"equipment_id,omitempty"`
	Location    string  `json:"location,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`
	HasQuantity bool    `json:"has_quantity,omitempty"`
}

// EvidenceItem 单条证据
type EvidenceItem struct {
	ID      string     `json:"id"`
	Kind    SourceKind `json:"kind"`
	Source  string     `json:"source"`
	Content string     `json:"content"`

	// Subject 结构化主体信息；向量证据可能只有部分字段
	Subject EvidenceSubject `json:"subject,omitempty"`

	// ContentTime 证据内容的业务时间，用于新鲜度衰减
	ContentTime time.Time `json:"content_time,omitempty"`

	Similarity float64 `json:"-"`
	LatencyMS  int64   `json:"latency_ms"`

	Score EvidenceScore `json:"score"`
}

// ConfidenceLevel 置信度分级
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// QuestionCategory 澄清问题类别
type QuestionCategory string

const (
	QuestionEquipment   QuestionCategory = "equipment"
	QuestionLocation    QuestionCategory = "location"
	QuestionTimeRange   QuestionCategory = "time_range"
	QuestionUnavailable QuestionCategory = "unavailable"
)

// ClarifyingQuestion 向用户追问的澄清问题
type ClarifyingQuestion struct {
	Text     string           `json:"text"`
	Priority int              `json:"priority"`
	Category QuestionCategory `json:"category"`
}

// EvidencePack 一次检索的完整输出
type EvidencePack struct {
	Items               []*EvidenceItem      `json:"items"`
	Routing             RoutingDecision      `json:"routing"`
	Confidence          ConfidenceLevel      `json:"confidence"`
	ClarifyingQuestions []ClarifyingQuestion `json:"clarifying_questions,omitempty"`

	// Degraded 标记检索路径发生过降级回退
	Degraded bool `json:"degraded,omitempty"`
}

// SourceCount 按来源标识去重后的来源数。
// 同一类型下的不同来源（如两份不同手册）各算一个来源。
func (p *EvidencePack) SourceCount() int {
	seen := make(map[string]struct{}, len(p.Items))
	for _, item := range p.Items {
		seen[item.Source] = struct{}{}
	}
	return len(seen)
}
