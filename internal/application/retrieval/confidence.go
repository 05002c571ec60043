package retrieval

import (
	"warehouse-assistant-api/internal/config"
	"warehouse-assistant-api/internal/domain/entity"
)

// ConfidenceAssessor 按阈值将证据包分级为 HIGH/MEDIUM/LOW
type ConfidenceAssessor struct {
	cfg config.ConfidenceConfig
}

func NewConfidenceAssessor(cfg config.ConfidenceConfig) *ConfidenceAssessor {
	return &ConfidenceAssessor{cfg: cfg}
}

// Assess 分级规则：
//
//	HIGH   合成分均值 >= high_composite 且来源数 >= min_sources 且一致率 >= high_agreement
//	MEDIUM 合成分均值 >= medium_composite 且来源数 >= min_sources
//	LOW    其余情况（含空包）
func (a *ConfidenceAssessor) Assess(pack *entity.EvidencePack, agreement float64) entity.ConfidenceLevel {
	if pack == nil || len(pack.Items) == 0 {
		return entity.ConfidenceLow
	}

	composite := meanComposite(pack.Items)
	sources := pack.SourceCount()

	if composite >= a.cfg.HighComposite && sources >= a.cfg.MinSources && agreement >= a.cfg.HighAgreement {
		return entity.ConfidenceHigh
	}
	if composite >= a.cfg.MediumComposite && sources >= a.cfg.MinSources {
		return entity.ConfidenceMedium
	}
	return entity.ConfidenceLow
}

func meanComposite(items []*entity.EvidenceItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range items {
		sum += item.Score.Composite
	}
	return sum / float64(len(items))
}
