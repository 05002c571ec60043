package retrieval

import (
	"testing"
	"time"

	"warehouse-assistant-api/internal/config"
	"warehouse-assistant-api/internal/domain/entity"
)

func defaultWeights() config.ScoreWeights {
	return config.ScoreWeights{
		Similarity:     0.30,
		Authority:      0.25,
		Freshness:      0.20,
		CrossReference: 0.15,
		Diversity:      0.10,
	}
}

func sqlItem(sku, location string, qty float64, contentTime time.Time) *entity.EvidenceItem {
	return &entity.EvidenceItem{
		Kind:        entity.SourceSQL,
		Source:      "postgres:inventory_records",
		Similarity:  1.0,
		ContentTime: contentTime,
		Subject:     entity.EvidenceSubject{SKU: sku, Location: location, Quantity: qty, HasQuantity: true},
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScorer(defaultWeights(), 365*24*time.Hour, nil)
	now := time.Now()
	s.now = func() time.Time { return now }

	build := func() []*entity.EvidenceItem {
		return []*entity.EvidenceItem{
			sqlItem("SKU1", "A1", 100, now.Add(-time.Hour)),
			sqlItem("SKU1", "A1", 100, now.Add(-2*time.Hour)),
		}
	}

	first := build()
	second := build()
	s.Score(first)
	s.Score(second)
	for i := range first {
		if first[i].Score != second[i].Score {
			t.Fatalf("scoring not deterministic: %+v vs %+v", first[i].Score, second[i].Score)
		}
	}
}

func TestScoreCompositeInRange(t *testing.T) {
	s := NewScorer(defaultWeights(), 365*24*time.Hour, nil)
	items := []*entity.EvidenceItem{
		sqlItem("SKU1", "A1", 100, time.Now()),
		sqlItem("SKU1", "A1", 500, time.Now()),
		{Kind: entity.SourceVector, Source: "docs:sop", Similarity: 1.7},
	}
	s.Score(items)
	for i, item := range items {
		sc := item.Score
		for name, v := range map[string]float64{
			"similarity": sc.Similarity, "authority": sc.Authority, "freshness": sc.Freshness,
			"cross_reference": sc.CrossReference, "diversity": sc.Diversity, "composite": sc.Composite,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("item %d %s score out of range: %f", i, name, v)
			}
		}
	}
}

func TestFreshnessDecay(t *testing.T) {
	maxAge := 365 * 24 * time.Hour
	s := NewScorer(defaultWeights(), maxAge, nil)
	now := time.Now()
	s.now = func() time.Time { return now }

	fresh := sqlItem("SKU1", "A1", 10, now)
	stale := sqlItem("SKU1", "A1", 10, now.Add(-maxAge))
	unknown := sqlItem("SKU1", "A1", 10, time.Time{})

	if f, st := s.freshness(fresh, now), s.freshness(stale, now); f <= st {
		t.Fatalf("fresh item should outscore stale item: %f <= %f", f, st)
	}
	if st := s.freshness(stale, now); st > 0.1 {
		t.Fatalf("item at max age should decay near zero, got %f", st)
	}
	if u := s.freshness(unknown, now); u != 0.5 {
		t.Fatalf("unknown content time should be neutral, got %f", u)
	}
}

func TestAgreement(t *testing.T) {
	s := NewScorer(defaultWeights(), 365*24*time.Hour, nil)
	now := time.Now()

	agreeing := []*entity.EvidenceItem{
		sqlItem("SKU1", "A1", 100, now),
		sqlItem("SKU1", "A1", 102, now), // 2% 容差内
	}
	if got := s.Agreement(agreeing); got != 1.0 {
		t.Fatalf("expected full agreement, got %f", got)
	}

	conflicting := []*entity.EvidenceItem{
		sqlItem("SKU1", "A1", 100, now),
		sqlItem("SKU1", "A1", 200, now),
	}
	if got := s.Agreement(conflicting); got != 0.0 {
		t.Fatalf("expected zero agreement, got %f", got)
	}

	unrelated := []*entity.EvidenceItem{
		sqlItem("SKU1", "A1", 100, now),
		sqlItem("SKU2", "B2", 7, now),
	}
	if got := s.Agreement(unrelated); got != 1.0 {
		t.Fatalf("no comparable pairs should count as agreement, got %f", got)
	}
}

func TestContradictionLowersCrossReference(t *testing.T) {
	s := NewScorer(defaultWeights(), 365*24*time.Hour, nil)
	now := time.Now()

	agreeing := []*entity.EvidenceItem{
		sqlItem("SKU1", "A1", 100, now),
		sqlItem("SKU1", "A1", 101, now),
	}
	conflicting := []*entity.EvidenceItem{
		sqlItem("SKU1", "A1", 100, now),
		sqlItem("SKU1", "A1", 900, now),
	}
	s.Score(agreeing)
	s.Score(conflicting)

	if agreeing[0].Score.CrossReference <= conflicting[0].Score.CrossReference {
		t.Fatalf("corroborated evidence should outscore contradicted evidence: %f <= %f",
			agreeing[0].Score.CrossReference, conflicting[0].Score.CrossReference)
	}
}

func TestDiversityPenalizesRepeatedSource(t *testing.T) {
	s := NewScorer(defaultWeights(), 365*24*time.Hour, nil)
	now := time.Now()
	items := []*entity.EvidenceItem{
		sqlItem("SKU1", "A1", 100, now),
		sqlItem("SKU2", "B1", 50, now),
		{Kind: entity.SourceVector, Source: "docs:sop", Similarity: 0.9, ContentTime: now},
	}
	s.Score(items)

	if items[1].Score.Diversity >= items[0].Score.Diversity {
		t.Fatalf("second item from same source should score lower diversity: %f >= %f",
			items[1].Score.Diversity, items[0].Score.Diversity)
	}
	if items[2].Score.Diversity != 1.0 {
		t.Fatalf("first item from a new source should score full diversity, got %f", items[2].Score.Diversity)
	}
}
