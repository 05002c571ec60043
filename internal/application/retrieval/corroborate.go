package retrieval

import (
	"math"

	"warehouse-assistant-api/internal/domain/entity"
)

// Verdict 两条证据的比对结论
type Verdict int

const (
	VerdictUnrelated Verdict = iota
	VerdictAgree
	VerdictContradict
)

// Corroborator 证据互证策略。实现必须是纯函数且对称：
// Compare(a,b) == Compare(b,a)。
type Corroborator interface {
	Compare(a, b *entity.EvidenceItem) Verdict
}

// SubjectCorroborator 默认互证策略：主体键（SKU 或设备编号）一致，
// 双方都带库位时库位一致，数量在相对容差内视为一致，超出容差视为矛盾。
type SubjectCorroborator struct {
	// QuantityTolerance 数量相对容差，默认 0.05
	QuantityTolerance float64
}

func NewSubjectCorroborator() *SubjectCorroborator {
	return &SubjectCorroborator{QuantityTolerance: 0.05}
}

func (c *SubjectCorroborator) Compare(a, b *entity.EvidenceItem) Verdict {
	if a == nil || b == nil {
		return VerdictUnrelated
	}
	sa, sb := a.Subject, b.Subject

	if !sameSubjectKey(sa, sb) {
		return VerdictUnrelated
	}
	if sa.Location != "" && sb.Location != "" && sa.Location != sb.Location {
		// 同一主体在不同库位各有数量，属正常分布而非冲突
		return VerdictUnrelated
	}
	if sa.HasQuantity && sb.HasQuantity {
		if withinTolerance(sa.Quantity, sb.Quantity, c.tolerance()) {
			return VerdictAgree
		}
		return VerdictContradict
	}
	return VerdictAgree
}

func (c *SubjectCorroborator) tolerance() float64 {
	if c.QuantityTolerance <= 0 {
		return 0.05
	}
	return c.QuantityTolerance
}

func sameSubjectKey(a, b entity.EvidenceSubject) bool {
	if a.SKU != "" && a.SKU == b.SKU {
		return true
	}
	if a.EquipmentID != "" && a.EquipmentID == b.EquipmentID {
		return true
	}
	return false
}

func withinTolerance(a, b, tolerance float64) bool {
	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return true
	}
	return math.Abs(a-b)/largest <= tolerance
}
