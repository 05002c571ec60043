package retrieval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"warehouse-assistant-api/internal/domain/entity"
	"warehouse-assistant-api/internal/domain/repository"
)

// stubRetriever 固定结果的检索路径桩
type stubRetriever struct {
	items []*entity.EvidenceItem
	err   error
	calls int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ *entity.Query) ([]*entity.EvidenceItem, error) {
	s.calls++
	return s.items, s.err
}

func newTestEngine(sqlPath, vectorPath Retriever) *Engine {
	scorer := NewScorer(defaultWeights(), 365*24*time.Hour, nil)
	return NewEngine(
		NewClassifier(),
		sqlPath,
		vectorPath,
		scorer,
		NewConfidenceAssessor(defaultConfidenceConfig()),
		NewClarifier(3),
		nil,
	)
}

func TestAnswerSurfacesValidationError(t *testing.T) {
	sqlStub := &stubRetriever{err: &ValidationError{Reason: "no template"}}
	vecStub := &stubRetriever{}
	e := newTestEngine(sqlStub, vecStub)

	// 强结构化查询会路由到 SQL
	_, err := e.Answer(context.Background(), &entity.Query{Text: "How many SKU123 units are in stock?"})
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError to surface, got %v", err)
	}
	if vecStub.calls != 0 {
		t.Fatal("validation failure must not trigger fallback")
	}
}

func TestAnswerRejectsEmptyQuery(t *testing.T) {
	e := newTestEngine(&stubRetriever{}, &stubRetriever{})
	if _, err := e.Answer(context.Background(), &entity.Query{Text: "   "}); !IsValidationError(err) {
		t.Fatalf("expected ValidationError for empty query, got %v", err)
	}
}

func TestAnswerFallsBackAcrossPaths(t *testing.T) {
	sqlStub := &stubRetriever{err: fmt.Errorf("%w: db down", ErrRetrievalUnavailable)}
	vecStub := &stubRetriever{items: []*entity.EvidenceItem{
		{ID: "doc-1", Kind: entity.SourceVector, Source: "docs:sop", Similarity: 0.9},
	}}
	e := newTestEngine(sqlStub, vecStub)

	pack, err := e.Answer(context.Background(), &entity.Query{Text: "How many SKU123 units are in stock?"})
	if err != nil {
		t.Fatalf("outage must not surface as error, got %v", err)
	}
	if !pack.Degraded {
		t.Fatal("fallback pack should be marked degraded")
	}
	if len(pack.Items) != 1 || pack.Items[0].Kind != entity.SourceVector {
		t.Fatalf("expected vector fallback items, got %+v", pack.Items)
	}
	if vecStub.calls != 1 {
		t.Fatalf("expected exactly one fallback attempt, got %d", vecStub.calls)
	}
}

func TestAnswerTotalOutage(t *testing.T) {
	sqlStub := &stubRetriever{err: fmt.Errorf("%w: db down", ErrRetrievalUnavailable)}
	vecStub := &stubRetriever{err: fmt.Errorf("%w: index down", ErrRetrievalUnavailable)}
	e := newTestEngine(sqlStub, vecStub)

	pack, err := e.Answer(context.Background(), &entity.Query{Text: "How many SKU123 units are in stock?"})
	if err != nil {
		t.Fatalf("total outage must not surface as error, got %v", err)
	}
	if len(pack.Items) != 0 {
		t.Fatalf("outage pack must be empty, got %d items", len(pack.Items))
	}
	if pack.Confidence != entity.ConfidenceLow {
		t.Fatalf("outage pack must be LOW, got %s", pack.Confidence)
	}
	if len(pack.ClarifyingQuestions) != 1 || pack.ClarifyingQuestions[0].Category != entity.QuestionUnavailable {
		t.Fatalf("expected exactly one generic question, got %+v", pack.ClarifyingQuestions)
	}
	if !pack.Degraded {
		t.Fatal("outage pack should be marked degraded")
	}
}

func TestAnswerHybridMergesSQLFirst(t *testing.T) {
	now := time.Now()
	sqlStub := &stubRetriever{items: []*entity.EvidenceItem{
		{ID: "sql-1", Kind: entity.SourceSQL, Source: "postgres:inventory_records", Similarity: 1.0, ContentTime: now,
			Subject: entity.EvidenceSubject{SKU: "SKU1", Quantity: 100, HasQuantity: true}},
	}}
	vecStub := &stubRetriever{items: []*entity.EvidenceItem{
		{ID: "vec-1", Kind: entity.SourceVector, Source: "docs:sop", Similarity: 0.95, ContentTime: now,
			Subject: entity.EvidenceSubject{SKU: "SKU1"}},
	}}
	e := newTestEngine(sqlStub, vecStub)

	// 双零平分的查询会路由到 HYBRID
	pack, err := e.Answer(context.Background(), &entity.Query{Text: "hello there"})
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if pack.Routing.Route != entity.RouteHybrid {
		t.Fatalf("expected HYBRID routing, got %s", pack.Routing.Route)
	}
	if len(pack.Items) != 2 || pack.Items[0].ID != "sql-1" || pack.Items[1].ID != "vec-1" {
		t.Fatalf("merge order must put sql items first, got %+v", pack.Items)
	}
	if pack.Items[0].Score.Composite == 0 {
		t.Fatal("items must be scored")
	}
	if pack.Confidence != entity.ConfidenceHigh {
		t.Fatalf("two agreeing sources with strong scores should be HIGH, got %s", pack.Confidence)
	}
}

func TestAnswerHybridSurvivesPartialFailure(t *testing.T) {
	sqlStub := &stubRetriever{err: fmt.Errorf("%w: db down", ErrRetrievalUnavailable)}
	vecStub := &stubRetriever{items: []*entity.EvidenceItem{
		{ID: "vec-1", Kind: entity.SourceVector, Source: "docs:sop", Similarity: 0.8},
	}}
	e := newTestEngine(sqlStub, vecStub)

	pack, err := e.Answer(context.Background(), &entity.Query{Text: "hello there"})
	if err != nil {
		t.Fatalf("partial failure must not surface as error, got %v", err)
	}
	if !pack.Degraded {
		t.Fatal("partial failure should mark the pack degraded")
	}
	if len(pack.Items) != 1 || pack.Items[0].Kind != entity.SourceVector {
		t.Fatalf("expected surviving vector items, got %+v", pack.Items)
	}
}

func TestAnswerHybridTreatsValidationAsEmptyContribution(t *testing.T) {
	sqlStub := &stubRetriever{err: &ValidationError{Reason: "no template"}}
	vecStub := &stubRetriever{items: []*entity.EvidenceItem{
		{ID: "vec-1", Kind: entity.SourceVector, Source: "docs:sop", Similarity: 0.8},
	}}
	e := newTestEngine(sqlStub, vecStub)

	pack, err := e.Answer(context.Background(), &entity.Query{Text: "hello there"})
	if err != nil {
		t.Fatalf("hybrid validation failure must not surface, got %v", err)
	}
	if pack.Degraded {
		t.Fatal("validation miss is not an outage, pack must not be degraded")
	}
	if len(pack.Items) != 1 {
		t.Fatalf("expected vector-only contribution, got %+v", pack.Items)
	}
}

func TestAnswerLowConfidenceCarriesQuestions(t *testing.T) {
	e := newTestEngine(&stubRetriever{}, &stubRetriever{})

	pack, err := e.Answer(context.Background(), &entity.Query{Text: "hello there"})
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if pack.Confidence != entity.ConfidenceLow {
		t.Fatalf("empty pack must be LOW, got %s", pack.Confidence)
	}
	if len(pack.ClarifyingQuestions) == 0 {
		t.Fatal("LOW empty pack must carry at least one clarifying question")
	}
}

func TestAnswerServesAssembledPackFromCache(t *testing.T) {
	cache := newFakeCache()
	sqlStub := &stubRetriever{items: []*entity.EvidenceItem{
		{ID: "sql-1", Kind: entity.SourceSQL, Source: "postgres:inventory_records", Similarity: 1.0, LatencyMS: 42},
	}}
	scorer := NewScorer(defaultWeights(), 365*24*time.Hour, nil)
	e := NewEngine(NewClassifier(), sqlStub, &stubRetriever{}, scorer,
		NewConfidenceAssessor(defaultConfidenceConfig()), NewClarifier(3), cache)

	if _, err := e.Answer(context.Background(), &entity.Query{Text: "How many SKU123 units are in stock?"}); err != nil {
		t.Fatalf("first Answer() error: %v", err)
	}

	// 后端下线后同一查询仍由整包缓存作答
	sqlStub.err = fmt.Errorf("%w: db down", ErrRetrievalUnavailable)
	sqlStub.items = nil

	pack, err := e.Answer(context.Background(), &entity.Query{Text: "How many SKU123 units are in stock?"})
	if err != nil {
		t.Fatalf("second Answer() should hit the evidence cache, got %v", err)
	}
	if pack.Degraded {
		t.Fatal("cache hit must not be marked degraded")
	}
	if len(pack.Items) != 1 || pack.Items[0].ID != "sql-1" {
		t.Fatalf("expected cached evidence, got %+v", pack.Items)
	}
	if pack.Items[0].LatencyMS != 0 {
		t.Fatalf("cached evidence must report near-zero latency, got %d", pack.Items[0].LatencyMS)
	}
	if sqlStub.calls != 1 {
		t.Fatalf("sql path should only be hit once, got %d calls", sqlStub.calls)
	}
}

func TestAnswerDegradedPackNotCached(t *testing.T) {
	cache := newFakeCache()
	sqlStub := &stubRetriever{err: fmt.Errorf("%w: db down", ErrRetrievalUnavailable)}
	vecStub := &stubRetriever{items: []*entity.EvidenceItem{
		{ID: "vec-1", Kind: entity.SourceVector, Source: "docs:sop", Similarity: 0.9},
	}}
	scorer := NewScorer(defaultWeights(), 365*24*time.Hour, nil)
	e := NewEngine(NewClassifier(), sqlStub, vecStub, scorer,
		NewConfidenceAssessor(defaultConfidenceConfig()), NewClarifier(3), cache)

	q := &entity.Query{Text: "How many SKU123 units are in stock?"}
	if _, err := e.Answer(context.Background(), q); err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if _, ok := cache.Get(context.Background(), repository.CacheTypeEvidence, evidenceCacheKey(q)); ok {
		t.Fatal("degraded pack must not be written to the evidence cache")
	}
}

func TestSessionRouteMemory(t *testing.T) {
	cache := newFakeCache()
	scorer := NewScorer(defaultWeights(), 365*24*time.Hour, nil)
	e := NewEngine(NewClassifier(), &stubRetriever{}, &stubRetriever{}, scorer,
		NewConfidenceAssessor(defaultConfidenceConfig()), NewClarifier(3), cache)

	q := &entity.Query{Text: "How many SKU123 units are in stock?", SessionID: "sess-1"}
	if _, err := e.Answer(context.Background(), q); err != nil {
		t.Fatalf("Answer() error: %v", err)
	}

	decision, ok := e.LastRoute(context.Background(), "sess-1")
	if !ok {
		t.Fatal("expected routing decision to be remembered for the session")
	}
	if decision.Route != entity.RouteSQL {
		t.Fatalf("remembered route = %s, want SQL", decision.Route)
	}
}
