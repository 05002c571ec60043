package retrieval

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"warehouse-assistant-api/internal/domain/entity"
	"warehouse-assistant-api/internal/domain/repository"
	"warehouse-assistant-api/pkg/logger"
	"warehouse-assistant-api/pkg/metrics"
)

// Engine 混合检索编排器。
// 对调用方的契约：除 ValidationError 外永不返回错误，
// 后端故障被回退与降级吸收，最坏情况返回空证据包加澄清问题。
type Engine struct {
	classifier *Classifier
	sqlPath    Retriever
	vectorPath Retriever
	scorer     *Scorer
	assessor   *ConfidenceAssessor
	clarifier  *Clarifier
	cache      repository.CacheStore
}

func NewEngine(
	classifier *Classifier,
	sqlPath Retriever,
	vectorPath Retriever,
	scorer *Scorer,
	assessor *ConfidenceAssessor,
	clarifier *Clarifier,
	cache repository.CacheStore,
) *Engine {
	return &Engine{
		classifier: classifier,
		sqlPath:    sqlPath,
		vectorPath: vectorPath,
		scorer:     scorer,
		assessor:   assessor,
		clarifier:  clarifier,
		cache:      cache,
	}
}

// Answer 执行完整检索流程：分类、派发、打分、置信度评估、澄清问题
func (e *Engine) Answer(ctx context.Context, q *entity.Query) (*entity.EvidencePack, error) {
	if q == nil {
		return nil, &ValidationError{Reason: "query is required"}
	}
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, &ValidationError{Reason: "query text is required"}
	}

	decision := e.classifier.Classify(q.Text)
	metrics.ClassificationTotal.WithLabelValues(string(decision.Route)).Inc()
	ctx = logger.WithContext(ctx, logger.RouteKey, string(decision.Route))

	// 整包缓存：同一查询在失效窗口内直接复用上次组装的证据包
	evKey := evidenceCacheKey(q)
	if e.cache != nil {
		if data, ok := e.cache.Get(ctx, repository.CacheTypeEvidence, evKey); ok {
			var cached entity.EvidencePack
			if err := json.Unmarshal(data, &cached); err == nil {
				for _, item := range cached.Items {
					item.LatencyMS = 0
				}
				e.rememberRoute(ctx, q, decision)
				return &cached, nil
			}
			logger.Warn(ctx, "discarding undecodable evidence cache entry", "key", evKey)
		}
	}

	var (
		sqlItems, vecItems []*entity.EvidenceItem
		sqlErr, vecErr     error
		succeeded          int
		degraded           bool
	)

	switch decision.Route {
	case entity.RouteSQL:
		sqlItems, sqlErr = e.sqlPath.Retrieve(ctx, q)
		if sqlErr == nil {
			succeeded++
		} else {
			if IsValidationError(sqlErr) {
				return nil, sqlErr
			}
			// 非对称回退：主路径不可用时以原查询尝试另一条路径
			degraded = true
			metrics.FallbackTotal.WithLabelValues("sql", "vector").Inc()
			vecItems, vecErr = e.vectorPath.Retrieve(ctx, q)
			if vecErr == nil {
				succeeded++
			}
		}

	case entity.RouteVector:
		vecItems, vecErr = e.vectorPath.Retrieve(ctx, q)
		if vecErr == nil {
			succeeded++
		} else {
			degraded = true
			metrics.FallbackTotal.WithLabelValues("vector", "sql").Inc()
			sqlItems, sqlErr = e.sqlPath.Retrieve(ctx, q)
			if sqlErr == nil {
				succeeded++
			}
		}

	case entity.RouteHybrid:
		// 并发扇出；单路径失败不取消另一条，错误留在各自变量里
		var g errgroup.Group
		g.Go(func() error {
			sqlItems, sqlErr = e.sqlPath.Retrieve(ctx, q)
			return nil
		})
		g.Go(func() error {
			vecItems, vecErr = e.vectorPath.Retrieve(ctx, q)
			return nil
		})
		_ = g.Wait()

		if sqlErr != nil && IsValidationError(sqlErr) {
			// 混合模式下结构化映射失败按零贡献处理，语义路径仍可作答
			sqlErr = nil
			sqlItems = nil
		}
		if sqlErr == nil {
			succeeded++
		}
		if vecErr == nil {
			succeeded++
		}
		degraded = succeeded == 1 && (sqlErr != nil || vecErr != nil)
	}

	if succeeded == 0 {
		logger.Error(ctx, "all retrieval paths unavailable", sqlErr, "vector_error", errString(vecErr))
		pack := &entity.EvidencePack{
			Items:               []*entity.EvidenceItem{},
			Routing:             decision,
			Confidence:          entity.ConfidenceLow,
			ClarifyingQuestions: e.clarifier.Unavailable(),
			Degraded:            true,
		}
		metrics.ConfidenceTotal.WithLabelValues(string(entity.ConfidenceLow)).Inc()
		return pack, nil
	}

	// 合并顺序固定：结构化证据在前，语义证据在后
	items := make([]*entity.EvidenceItem, 0, len(sqlItems)+len(vecItems))
	items = append(items, sqlItems...)
	items = append(items, vecItems...)

	e.scorer.Score(items)
	agreement := e.scorer.Agreement(items)

	pack := &entity.EvidencePack{
		Items:    items,
		Routing:  decision,
		Degraded: degraded,
	}
	pack.Confidence = e.assessor.Assess(pack, agreement)
	if pack.Confidence == entity.ConfidenceLow {
		pack.ClarifyingQuestions = e.clarifier.Generate(q, pack)
	}
	metrics.ConfidenceTotal.WithLabelValues(string(pack.Confidence)).Inc()

	// 降级包不写缓存，避免把临时故障的结果钉在失效窗口内
	if e.cache != nil && !degraded {
		if data, err := json.Marshal(pack); err == nil {
			e.cache.Set(ctx, repository.CacheTypeEvidence, evKey, data, 0)
		}
	}

	e.rememberRoute(ctx, q, decision)

	logger.Info(ctx, "evidence pack assembled",
		"items", len(items),
		"confidence", string(pack.Confidence),
		"agreement", agreement,
		"degraded", degraded)
	return pack, nil
}

// rememberRoute 会话内记住最近一次路由决策，供后续请求观察
func (e *Engine) rememberRoute(ctx context.Context, q *entity.Query, decision entity.RoutingDecision) {
	if e.cache == nil || q.SessionID == "" {
		return
	}
	data, err := json.Marshal(decision)
	if err != nil {
		return
	}
	e.cache.Set(ctx, repository.CacheTypeSession, "route:"+q.SessionID, data, 0)
}

// LastRoute 读取会话最近一次路由决策；未命中返回 false
func (e *Engine) LastRoute(ctx context.Context, sessionID string) (*entity.RoutingDecision, bool) {
	if e.cache == nil || sessionID == "" {
		return nil, false
	}
	data, ok := e.cache.Get(ctx, repository.CacheTypeSession, "route:"+sessionID)
	if !ok {
		return nil, false
	}
	var decision entity.RoutingDecision
	if err := json.Unmarshal(data, &decision); err != nil {
		return nil, false
	}
	return &decision, true
}

// evidenceCacheKey 对查询文本与过滤条件取指纹，同一查询命中同一键
func evidenceCacheKey(q *entity.Query) string {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(q.Text)))
	for _, f := range []string{q.Filters.SKU, q.Filters.EquipmentID, q.Filters.Zone, q.Filters.From, q.Filters.To} {
		h.Write([]byte{0})
		h.Write([]byte(f))
	}
	return "q:" + strconv.FormatUint(h.Sum64(), 16) + ":k" + strconv.Itoa(q.TopK)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
