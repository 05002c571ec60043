package retrieval

import (
	"regexp"
	"strings"

	"warehouse-assistant-api/internal/domain/entity"
)

// routeRule 单条路由规则：命中 pattern 则为对应路径加一分
type routeRule struct {
	pattern   *regexp.Regexp
	indicator string
	route     entity.Route
}

// skuPattern 匹配 SKU 编码（如 SKU123、AB-4512），需保留原始大小写
var skuPattern = regexp.MustCompile(`\b[A-Z]{2,5}-?\d{2,}\b`)

// equipmentIDPattern 匹配设备编号（如 FL-07、CONV12）
var equipmentIDPattern = regexp.MustCompile(`\b(?:FL|EQ|CONV|AGV|CRN)-?\d+\b`)

var routeRules = []routeRule{
	// 结构化信号：数量、可用量、状态、库位、时间窗口
	{regexp.MustCompile(`\bhow (?:many|much)\b`), "quantity", entity.RouteSQL},
	{regexp.MustCompile(`\b(?:quantity|count|total|stock level|on hand|units?)\b`), "quantity", entity.RouteSQL},
	{regexp.MustCompile(`\b(?:available|availability|atp|in stock|promise|reserve[d]?)\b`), "availability", entity.RouteSQL},
	{regexp.MustCompile(`\b(?:status|state|conditions?|operational|running|down|broken|offline)\b`), "status", entity.RouteSQL},
	{regexp.MustCompile(`\bwhere (?:is|are)\b`), "location", entity.RouteSQL},
	{regexp.MustCompile(`\b(?:location|aisle|bay|bin|zone [a-z0-9]+)\b`), "location", entity.RouteSQL},
	{regexp.MustCompile(`\b(?:today|yesterday|this week|last (?:hour|shift|week|month)|between)\b`), "time_window", entity.RouteSQL},
	{regexp.MustCompile(`\b(?:when|recent(?:ly)?|updated?)\b`), "time_window", entity.RouteSQL},

	// 语义信号：流程、解释、安全、建议、排障
	{regexp.MustCompile(`\bhow (?:do|to|should|can) \b`), "procedure", entity.RouteVector},
	{regexp.MustCompile(`\b(?:procedure|process|steps|guide|instructions?|manual|sop)\b`), "procedure", entity.RouteVector},
	{regexp.MustCompile(`\b(?:why|explain|what (?:is|are)|meaning)\b`), "explanation", entity.RouteVector},
	{regexp.MustCompile(`\b(?:safety|hazard|precaution|ppe|protective)\b`), "safety", entity.RouteVector},
	{regexp.MustCompile(`\b(?:best way|recommend|should i|tips)\b`), "recommendation", entity.RouteVector},
	{regexp.MustCompile(`\b(?:troubleshoot|fix|repair|diagnos|malfunction)\b`), "troubleshooting", entity.RouteVector},
}

// Classifier 基于静态规则表的查询路由分类器，无状态且确定
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify 对查询打分并产出路由决策。
// 得分高者胜出；平分（含双零）落到 HYBRID。
func (c *Classifier) Classify(query string) entity.RoutingDecision {
	lowered := strings.ToLower(strings.TrimSpace(query))

	decision := entity.RoutingDecision{Route: entity.RouteHybrid}
	for _, rule := range routeRules {
		if !rule.pattern.MatchString(lowered) {
			continue
		}
		switch rule.route {
		case entity.RouteSQL:
			decision.SQLScore++
		case entity.RouteVector:
			decision.VectorScore++
		}
		decision.Indicators = append(decision.Indicators, rule.indicator)
	}

	// SKU 编码是强结构化信号，匹配原始大小写
	if skuPattern.MatchString(query) {
		decision.SQLScore++
		decision.Indicators = append(decision.Indicators, "sku")
	}

	switch {
	case decision.SQLScore > decision.VectorScore:
		decision.Route = entity.RouteSQL
	case decision.VectorScore > decision.SQLScore:
		decision.Route = entity.RouteVector
	default:
		decision.Route = entity.RouteHybrid
	}
	return decision
}
