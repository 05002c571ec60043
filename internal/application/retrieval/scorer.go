package retrieval

import (
	"math"
	"time"

	"warehouse-assistant-api/internal/config"
	"warehouse-assistant-api/internal/domain/entity"
)

// sourceAuthority 来源权威度排序表，未知来源取保守默认值
var sourceAuthority = map[string]float64{
	"postgres:inventory_records": 1.0,
	"postgres:equipment":         1.0,
	"postgres:warehouse_tasks":   0.95,
	"docs:sop":                   0.9,
	"docs:manual":                0.85,
	"docs:safety":                0.85,
	"docs:notes":                 0.6,
}

const defaultAuthority = 0.5

// Scorer 证据打分器：五维子分按固定权重合成，输入相同则输出相同
type Scorer struct {
	weights         config.ScoreWeights
	freshnessMaxAge time.Duration
	corroborator    Corroborator
	now             func() time.Time
}

func NewScorer(weights config.ScoreWeights, freshnessMaxAge time.Duration, corroborator Corroborator) *Scorer {
	if corroborator == nil {
		corroborator = NewSubjectCorroborator()
	}
	if freshnessMaxAge <= 0 {
		freshnessMaxAge = 365 * 24 * time.Hour
	}
	return &Scorer{
		weights:         weights,
		freshnessMaxAge: freshnessMaxAge,
		corroborator:    corroborator,
		now:             time.Now,
	}
}

// Score 填充每条证据的子分与合成分。列表整体参与互证与多样性计算。
func (s *Scorer) Score(items []*entity.EvidenceItem) {
	now := s.now()
	seenSources := make(map[string]int, len(items))

	for i, item := range items {
		agree, contradict := s.verdictCounts(items, i)

		score := entity.EvidenceScore{
			Similarity:     clamp01(item.Similarity),
			Authority:      authorityOf(item),
			Freshness:      s.freshness(item, now),
			CrossReference: crossReference(agree, contradict),
			Diversity:      diversity(seenSources, item),
		}
		score.Composite = clamp01(score.Similarity*s.weights.Similarity +
			score.Authority*s.weights.Authority +
			score.Freshness*s.weights.Freshness +
			score.CrossReference*s.weights.CrossReference +
			score.Diversity*s.weights.Diversity)

		item.Score = score
	}
}

// Agreement 可比证据对中结论一致的比例；无可比对时视为完全一致
func (s *Scorer) Agreement(items []*entity.EvidenceItem) float64 {
	comparable, agreeing := 0, 0
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			switch s.corroborator.Compare(items[i], items[j]) {
			case VerdictAgree:
				comparable++
				agreeing++
			case VerdictContradict:
				comparable++
			}
		}
	}
	if comparable == 0 {
		return 1.0
	}
	return float64(agreeing) / float64(comparable)
}

func (s *Scorer) verdictCounts(items []*entity.EvidenceItem, idx int) (agree, contradict int) {
	for j, other := range items {
		if j == idx {
			continue
		}
		switch s.corroborator.Compare(items[idx], other) {
		case VerdictAgree:
			agree++
		case VerdictContradict:
			contradict++
		}
	}
	return agree, contradict
}

// freshness 指数衰减：内容年龄达到 freshnessMaxAge 时趋近 0。
// 缺少内容时间的证据取中性值。
func (s *Scorer) freshness(item *entity.EvidenceItem, now time.Time) float64 {
	if item.ContentTime.IsZero() {
		return 0.5
	}
	age := now.Sub(item.ContentTime)
	if age <= 0 {
		return 1.0
	}
	ratio := float64(age) / float64(s.freshnessMaxAge)
	return clamp01(math.Exp(-3 * ratio))
}

func authorityOf(item *entity.EvidenceItem) float64 {
	if v, ok := sourceAuthority[item.Source]; ok {
		return v
	}
	if item.Kind == entity.SourceSQL {
		return 0.9
	}
	return defaultAuthority
}

func crossReference(agree, contradict int) float64 {
	score := 0.5 + 0.25*float64(agree) - 0.4*float64(contradict)
	return clamp01(score)
}

// diversity 同一来源的第 n 条证据得分按 1/n 衰减
func diversity(seen map[string]int, item *entity.EvidenceItem) float64 {
	seen[item.Source]++
	return 1.0 / float64(seen[item.Source])
}
