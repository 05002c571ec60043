package retrieval

import (
	"testing"

	"warehouse-assistant-api/internal/config"
	"warehouse-assistant-api/internal/domain/entity"
)

func defaultConfidenceConfig() config.ConfidenceConfig {
	return config.ConfidenceConfig{
		HighComposite:   0.7,
		HighAgreement:   0.8,
		MediumComposite: 0.4,
		MinSources:      2,
	}
}

func packWith(composites map[string][]float64) *entity.EvidencePack {
	pack := &entity.EvidencePack{}
	for source, values := range composites {
		kind := entity.SourceVector
		if source == "postgres:inventory_records" || source == "postgres:equipment" {
			kind = entity.SourceSQL
		}
		for _, v := range values {
			pack.Items = append(pack.Items, &entity.EvidenceItem{
				Kind:   kind,
				Source: source,
				Score:  entity.EvidenceScore{Composite: v},
			})
		}
	}
	return pack
}

func TestAssessLevels(t *testing.T) {
	a := NewConfidenceAssessor(defaultConfidenceConfig())

	tests := []struct {
		name      string
		pack      *entity.EvidencePack
		agreement float64
		want      entity.ConfidenceLevel
	}{
		{
			name:      "high composite two sources high agreement",
			pack:      packWith(map[string][]float64{"postgres:inventory_records": {0.8}, "docs:sop": {0.75}}),
			agreement: 0.9,
			want:      entity.ConfidenceHigh,
		},
		{
			name:      "high composite but low agreement drops to medium",
			pack:      packWith(map[string][]float64{"postgres:inventory_records": {0.8}, "docs:sop": {0.75}}),
			agreement: 0.5,
			want:      entity.ConfidenceMedium,
		},
		{
			name:      "medium composite two sources",
			pack:      packWith(map[string][]float64{"postgres:inventory_records": {0.5}, "docs:sop": {0.45}}),
			agreement: 1.0,
			want:      entity.ConfidenceMedium,
		},
		{
			name:      "single source never exceeds low",
			pack:      packWith(map[string][]float64{"postgres:inventory_records": {0.95, 0.9}}),
			agreement: 1.0,
			want:      entity.ConfidenceLow,
		},
		{
			name:      "weak composite is low",
			pack:      packWith(map[string][]float64{"postgres:inventory_records": {0.2}, "docs:sop": {0.3}}),
			agreement: 1.0,
			want:      entity.ConfidenceLow,
		},
		{
			name:      "empty pack is low",
			pack:      &entity.EvidencePack{},
			agreement: 1.0,
			want:      entity.ConfidenceLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Assess(tt.pack, tt.agreement); got != tt.want {
				t.Fatalf("Assess() = %s, want %s", got, tt.want)
			}
		})
	}
}

// 同为向量证据但来自两份不同手册时算两个来源，不能折叠成一个
func TestAssessCountsDistinctSourcesWithinKind(t *testing.T) {
	a := NewConfidenceAssessor(defaultConfidenceConfig())

	pack := packWith(map[string][]float64{
		"docs:manual_a": {0.47},
		"docs:manual_b": {0.43},
	})
	if got := a.Assess(pack, 1.0); got != entity.ConfidenceMedium {
		t.Fatalf("two distinct document sources should reach MEDIUM, got %s", got)
	}

	same := packWith(map[string][]float64{"docs:manual_a": {0.47, 0.43}})
	if got := a.Assess(same, 1.0); got != entity.ConfidenceLow {
		t.Fatalf("two chunks of the same source stay LOW, got %s", got)
	}
}

func TestAssessBoundaryValues(t *testing.T) {
	a := NewConfidenceAssessor(defaultConfidenceConfig())

	exactHigh := packWith(map[string][]float64{"postgres:inventory_records": {0.7}, "docs:sop": {0.7}})
	if got := a.Assess(exactHigh, 0.8); got != entity.ConfidenceHigh {
		t.Fatalf("thresholds are inclusive, want HIGH got %s", got)
	}

	exactMedium := packWith(map[string][]float64{"postgres:inventory_records": {0.4}, "docs:sop": {0.4}})
	if got := a.Assess(exactMedium, 0.0); got != entity.ConfidenceMedium {
		t.Fatalf("thresholds are inclusive, want MEDIUM got %s", got)
	}
}
