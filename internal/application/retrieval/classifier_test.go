package retrieval

import (
	"testing"

	"warehouse-assistant-api/internal/domain/entity"
)

func TestClassifyRoutes(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name  string
		query string
		want  entity.Route
	}{
		{"quantity with sku", "How many SKU123 units are in stock?", entity.RouteSQL},
		{"availability", "Is SKU123 available to promise?", entity.RouteSQL},
		{"equipment status", "What is the status of FL-07?", entity.RouteSQL},
		{"equipment condition", "Check the condition of the conveyor in zone B", entity.RouteSQL},
		{"recent changes", "which pallets were updated recently", entity.RouteSQL},
		{"when question", "when did the shipment arrive", entity.RouteSQL},
		{"procedure", "How do I replace a battery?", entity.RouteVector},
		{"safety guide", "What are the safety precautions for the charging area?", entity.RouteVector},
		{"troubleshooting", "Steps to troubleshoot a jammed label printer", entity.RouteVector},
		{"tie goes hybrid", "how to check quantity", entity.RouteHybrid},
		{"no signal goes hybrid", "hello there", entity.RouteHybrid},
		{"empty goes hybrid", "", entity.RouteHybrid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.query)
			if got.Route != tt.want {
				t.Fatalf("Classify(%q) = %s (sql=%d vector=%d), want %s",
					tt.query, got.Route, got.SQLScore, got.VectorScore, tt.want)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier()
	query := "Where is SKU123 and how do I store it?"
	first := c.Classify(query)
	for i := 0; i < 10; i++ {
		got := c.Classify(query)
		if got.Route != first.Route || got.SQLScore != first.SQLScore || got.VectorScore != first.VectorScore {
			t.Fatalf("classification not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestClassifyRecordsIndicators(t *testing.T) {
	c := NewClassifier()
	got := c.Classify("How many SKU123 units are available?")
	if got.Route != entity.RouteSQL {
		t.Fatalf("expected SQL route, got %s", got.Route)
	}
	if len(got.Indicators) == 0 {
		t.Fatal("expected matched indicators to be recorded")
	}
}
