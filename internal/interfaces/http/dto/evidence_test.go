package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"warehouse-assistant-api/internal/domain/entity"
)

func TestFromEvidencePackWireFormat(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	pack := &entity.EvidencePack{
		Items: []*entity.EvidenceItem{
			{
				ID:          "sql-1",
				Kind:        entity.SourceSQL,
				Source:      "postgres:inventory_records",
				Content:     "SKU123 @ A1: 100 available",
				ContentTime: now,
				LatencyMS:   12,
				Score:       entity.EvidenceScore{Similarity: 1, Authority: 1, Freshness: 1, CrossReference: 0.75, Diversity: 1, Composite: 0.96},
			},
		},
		Routing:    entity.RoutingDecision{Route: entity.RouteSQL, SQLScore: 2},
		Confidence: entity.ConfidenceMedium,
	}

	resp := FromEvidencePack(pack)

	// 边界契约使用小写枚举值
	if resp.Confidence != "medium" {
		t.Fatalf("confidence = %q, want %q", resp.Confidence, "medium")
	}
	if resp.Routing.Route != "sql" {
		t.Fatalf("route = %q, want %q", resp.Routing.Route, "sql")
	}
	if resp.Items[0].Kind != "sql" {
		t.Fatalf("kind = %q, want %q", resp.Items[0].Kind, "sql")
	}
	if resp.Items[0].ContentTime != "2026-08-01T12:00:00Z" {
		t.Fatalf("content_time = %q, want RFC3339", resp.Items[0].ContentTime)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	for _, field := range []string{
		`"latency_ms"`, `"similarity"`, `"authority"`, `"freshness"`,
		`"cross_reference"`, `"diversity"`, `"composite"`, `"confidence":"medium"`, `"route":"sql"`,
	} {
		if !strings.Contains(string(data), field) {
			t.Fatalf("serialized response missing %s: %s", field, data)
		}
	}
}

func TestFromEvidencePackNil(t *testing.T) {
	resp := FromEvidencePack(nil)
	if resp == nil || resp.Items == nil || len(resp.Items) != 0 {
		t.Fatalf("nil pack should yield an empty response, got %+v", resp)
	}
}
