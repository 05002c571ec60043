package retrieval

import (
	"regexp"
	"sort"
	"strings"

	"warehouse-assistant-api/internal/domain/entity"
	"warehouse-assistant-api/pkg/metrics"
)

var (
	equipmentMention = regexp.MustCompile(`\b(?:forklift|conveyor|scanner|crane|agv|equipment|machine)\b`)
	locationMention  = regexp.MustCompile(`\b(?:zone|aisle|bay|bin|where)\b`)
	concreteLocation = regexp.MustCompile(`\b(?:zone\s+[a-z0-9]+|aisle\s+\d+|bay\s+\d+|bin\s+[a-z0-9]+)\b`)
	timeMention      = regexp.MustCompile(`\b(?:recent(?:ly)?|lately|history|trend|during|since)\b`)
)

// Clarifier 低置信度时根据查询中的实体缺口生成澄清问题
type Clarifier struct {
	max int
}

func NewClarifier(max int) *Clarifier {
	if max <= 0 {
		max = 3
	}
	return &Clarifier{max: max}
}

// Generate 逐项检查实体缺口，按优先级排序并截断到上限。
// 证据包为空时保证至少返回一个问题。
func (c *Clarifier) Generate(q *entity.Query, pack *entity.EvidencePack) []entity.ClarifyingQuestion {
	lowered := strings.ToLower(q.Text)
	var questions []entity.ClarifyingQuestion

	if equipmentMention.MatchString(lowered) &&
		q.Filters.EquipmentID == "" && !equipmentIDPattern.MatchString(strings.ToUpper(q.Text)) {
		questions = append(questions, entity.ClarifyingQuestion{
			Text:     "Which specific equipment are you asking about? An equipment ID (e.g. FL-07) would help.",
			Priority: 1,
			Category: entity.QuestionEquipment,
		})
	}

	if locationMention.MatchString(lowered) &&
		q.Filters.Zone == "" && !concreteLocation.MatchString(lowered) {
		questions = append(questions, entity.ClarifyingQuestion{
			Text:     "Which zone or aisle should I look in?",
			Priority: 2,
			Category: entity.QuestionLocation,
		})
	}

	if timeMention.MatchString(lowered) && q.Filters.From == "" && q.Filters.To == "" {
		questions = append(questions, entity.ClarifyingQuestion{
			Text:     "What time range are you interested in?",
			Priority: 3,
			Category: entity.QuestionTimeRange,
		})
	}

	if len(questions) == 0 && (pack == nil || len(pack.Items) == 0) {
		questions = append(questions, entity.ClarifyingQuestion{
			Text:     "I could not find matching evidence. Could you mention a specific SKU, equipment ID or zone?",
			Priority: 1,
			Category: entity.QuestionLocation,
		})
	}

	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Priority < questions[j].Priority
	})
	if len(questions) > c.max {
		questions = questions[:c.max]
	}
	for _, question := range questions {
		metrics.ClarifyingQuestionsTotal.WithLabelValues(string(question.Category)).Inc()
	}
	return questions
}

// Unavailable 后端整体不可用时的唯一降级问题
func (c *Clarifier) Unavailable() []entity.ClarifyingQuestion {
	metrics.ClarifyingQuestionsTotal.WithLabelValues(string(entity.QuestionUnavailable)).Inc()
	return []entity.ClarifyingQuestion{{
		Text:     "The retrieval backends are temporarily unavailable. Please retry in a moment.",
		Priority: 1,
		Category: entity.QuestionUnavailable,
	}}
}
