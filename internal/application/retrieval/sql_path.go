package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"warehouse-assistant-api/internal/domain/entity"
	"warehouse-assistant-api/internal/domain/repository"
	"warehouse-assistant-api/pkg/logger"
	"warehouse-assistant-api/pkg/metrics"
)

// sqlTemplate 固定的参数化查询模板标识
type sqlTemplate string

const (
	tplAvailability  sqlTemplate = "availability"
	tplQuantityTotal sqlTemplate = "quantity_total"
	tplEquipment     sqlTemplate = "equipment_status"
	tplLocation      sqlTemplate = "stock_by_location"
	tplTimeWindow    sqlTemplate = "tasks_in_window"
)

var (
	availabilityWords = regexp.MustCompile(`\b(?:available|availability|atp|in stock|promise)\b`)
	quantityWords     = regexp.MustCompile(`\bhow (?:many|much)\b|\b(?:quantity|total|count|on hand|stock level)\b`)
	statusWords       = regexp.MustCompile(`\b(?:status|operational|running|down|broken|offline)\b`)
	locationWords     = regexp.MustCompile(`\bwhere (?:is|are)\b|\b(?:location|aisle|bay|bin)\b`)
	timeWords         = regexp.MustCompile(`\b(?:today|yesterday|this week|last (?:hour|shift|week|month)|between|when|recent(?:ly)?|updated?)\b`)
	taskTypeWords     = regexp.MustCompile(`\b(?:pick(?:ing)?|replenish(?:ment)?|cycle count|putaway|receiving)\b`)
)

// SQLPath 结构化检索路径：查询映射到固定模板，带缓存直通
type SQLPath struct {
	repo     repository.WarehouseRepository
	cache    repository.CacheStore
	timeout  time.Duration
	cacheTTL time.Duration
	now      func() time.Time
}

func NewSQLPath(repo repository.WarehouseRepository, cache repository.CacheStore, timeout, cacheTTL time.Duration) *SQLPath {
	return &SQLPath{
		repo:     repo,
		cache:    cache,
		timeout:  timeout,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Retrieve 解析模板并执行结构化查询。
// 无法映射模板返回 ValidationError；超时或存储故障统一折叠为 ErrRetrievalUnavailable。
func (p *SQLPath) Retrieve(ctx context.Context, q *entity.Query) ([]*entity.EvidenceItem, error) {
	tpl, params, err := p.resolveTemplate(q)
	if err != nil {
		return nil, err
	}

	key := sqlCacheKey(tpl, params)
	if p.cache != nil {
		if data, ok := p.cache.Get(ctx, repository.CacheTypeSQL, key); ok {
			var items []*entity.EvidenceItem
			if err := json.Unmarshal(data, &items); err == nil {
				for _, item := range items {
					item.LatencyMS = 0
				}
				return items, nil
			}
			logger.Warn(ctx, "discarding undecodable sql cache entry", "key", key)
		}
	}

	start := p.now()
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	items, err := p.execute(cctx, tpl, params)
	metrics.RetrievalDuration.WithLabelValues("sql").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RetrievalTotal.WithLabelValues("sql", "error").Inc()
		logger.Warn(ctx, "sql path unavailable",
			"template", string(tpl), "sqlstate", sqlstateClass(err), "error", err.Error())
		return nil, fmt.Errorf("%w: template %s: %v", ErrRetrievalUnavailable, tpl, err)
	}
	metrics.RetrievalTotal.WithLabelValues("sql", "ok").Inc()

	latency := time.Since(start).Milliseconds()
	for _, item := range items {
		item.LatencyMS = latency
	}

	if p.cache != nil {
		if data, err := json.Marshal(items); err == nil {
			p.cache.Set(ctx, repository.CacheTypeSQL, key, data, p.cacheTTL)
		}
	}
	return items, nil
}

// resolveTemplate 确定查询对应的模板与绑定参数。
// 匹配顺序固定，保证同一查询总是落到同一模板。
func (p *SQLPath) resolveTemplate(q *entity.Query) (sqlTemplate, map[string]string, error) {
	lowered := strings.ToLower(q.Text)

	sku := strings.TrimSpace(q.Filters.SKU)
	if sku == "" {
		sku = skuPattern.FindString(q.Text)
	}
	equipmentID := strings.TrimSpace(q.Filters.EquipmentID)
	if equipmentID == "" {
		equipmentID = equipmentIDPattern.FindString(strings.ToUpper(q.Text))
	}
	zone := strings.TrimSpace(q.Filters.Zone)

	switch {
	case availabilityWords.MatchString(lowered) && sku != "":
		return tplAvailability, map[string]string{"sku": sku, "location": zone}, nil

	case quantityWords.MatchString(lowered) && sku != "":
		return tplQuantityTotal, map[string]string{"sku": sku}, nil

	case equipmentID != "" || (statusWords.MatchString(lowered) && zone != ""):
		return tplEquipment, map[string]string{"equipment_id": equipmentID, "zone": zone}, nil

	case locationWords.MatchString(lowered) && sku != "":
		return tplLocation, map[string]string{"sku": sku}, nil

	case zone != "" && locationWords.MatchString(lowered):
		return tplLocation, map[string]string{"location": zone}, nil

	case timeWords.MatchString(lowered) || (q.Filters.From != "" && q.Filters.To != ""):
		from, to, err := p.resolveWindow(q, lowered)
		if err != nil {
			return "", nil, err
		}
		taskType := taskTypeWords.FindString(lowered)
		return tplTimeWindow, map[string]string{
			"from": from.UTC().Format(time.RFC3339),
			"to":   to.UTC().Format(time.RFC3339),
			"type": taskType,
		}, nil
	}

	return "", nil, &ValidationError{Reason: "query does not map to a known structured template"}
}

// resolveWindow 解析时间窗口：显式过滤条件优先，其次按文本相对时间词推导
func (p *SQLPath) resolveWindow(q *entity.Query, lowered string) (time.Time, time.Time, error) {
	now := p.now()
	if q.Filters.From != "" || q.Filters.To != "" {
		from, err := time.Parse(time.RFC3339, q.Filters.From)
		if err != nil {
			return time.Time{}, time.Time{}, &ValidationError{Reason: "filter 'from' is not RFC3339"}
		}
		to := now
		if q.Filters.To != "" {
			to, err = time.Parse(time.RFC3339, q.Filters.To)
			if err != nil {
				return time.Time{}, time.Time{}, &ValidationError{Reason: "filter 'to' is not RFC3339"}
			}
		}
		if !from.Before(to) {
			return time.Time{}, time.Time{}, &ValidationError{Reason: "time window 'from' must precede 'to'"}
		}
		return from, to, nil
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case strings.Contains(lowered, "yesterday"):
		return midnight.AddDate(0, 0, -1), midnight, nil
	case strings.Contains(lowered, "today"):
		return midnight, now, nil
	case strings.Contains(lowered, "last hour"):
		return now.Add(-time.Hour), now, nil
	case strings.Contains(lowered, "last shift"):
		return now.Add(-8 * time.Hour), now, nil
	case strings.Contains(lowered, "this week"), strings.Contains(lowered, "last week"):
		return now.AddDate(0, 0, -7), now, nil
	case strings.Contains(lowered, "last month"):
		return now.AddDate(0, -1, 0), now, nil
	}
	return now.Add(-24 * time.Hour), now, nil
}

func (p *SQLPath) execute(ctx context.Context, tpl sqlTemplate, params map[string]string) ([]*entity.EvidenceItem, error) {
	switch tpl {
	case tplAvailability:
		rows, err := p.repo.Availability(ctx, params["sku"], params["location"])
		if err != nil {
			return nil, err
		}
		items := make([]*entity.EvidenceItem, 0, len(rows))
		for _, r := range rows {
			items = append(items, newSQLItem(
				"postgres:inventory_records",
				fmt.Sprintf("SKU %s at %s: %d on hand, %d reserved, %d available to promise",
					r.SKU, r.Location, r.Quantity, r.Reserved, r.Available),
				entity.EvidenceSubject{SKU: r.SKU, Location: r.Location, Quantity: float64(r.Available), HasQuantity: true},
				r.UpdatedAt,
			))
		}
		return items, nil

	case tplQuantityTotal:
		total, err := p.repo.QuantityTotals(ctx, params["sku"])
		if err != nil {
			return nil, err
		}
		if total == nil {
			return nil, nil
		}
		return []*entity.EvidenceItem{newSQLItem(
			"postgres:inventory_records",
			fmt.Sprintf("SKU %s: %d units on hand across %d locations, %d reserved",
				total.SKU, total.TotalQuantity, total.Locations, total.TotalReserved),
			entity.EvidenceSubject{SKU: total.SKU, Quantity: float64(total.TotalQuantity), HasQuantity: true},
			time.Time{},
		)}, nil

	case tplEquipment:
		rows, err := p.repo.EquipmentStatus(ctx, params["equipment_id"], params["zone"])
		if err != nil {
			return nil, err
		}
		items := make([]*entity.EvidenceItem, 0, len(rows))
		for _, e := range rows {
			items = append(items, newSQLItem(
				"postgres:equipment",
				fmt.Sprintf("Equipment %s (%s) in zone %s: %s", e.ID, e.Type, e.Zone, e.Status),
				entity.EvidenceSubject{EquipmentID: e.ID, Location: e.Zone},
				e.UpdatedAt,
			))
		}
		return items, nil

	case tplLocation:
		if sku := params["sku"]; sku != "" {
			rows, err := p.repo.Availability(ctx, sku, "")
			if err != nil {
				return nil, err
			}
			items := make([]*entity.EvidenceItem, 0, len(rows))
			for _, r := range rows {
				items = append(items, newSQLItem(
					"postgres:inventory_records",
					fmt.Sprintf("SKU %s is stored at %s (%d units)", r.SKU, r.Location, r.Quantity),
					entity.EvidenceSubject{SKU: r.SKU, Location: r.Location, Quantity: float64(r.Quantity), HasQuantity: true},
					r.UpdatedAt,
				))
			}
			return items, nil
		}
		rows, err := p.repo.StockByLocation(ctx, params["location"])
		if err != nil {
			return nil, err
		}
		items := make([]*entity.EvidenceItem, 0, len(rows))
		for _, r := range rows {
			items = append(items, newSQLItem(
				"postgres:inventory_records",
				fmt.Sprintf("Location %s holds SKU %s: %d units", r.Location, r.SKU, r.Quantity),
				entity.EvidenceSubject{SKU: r.SKU, Location: r.Location, Quantity: float64(r.Quantity), HasQuantity: true},
				r.UpdatedAt,
			))
		}
		return items, nil

	case tplTimeWindow:
		from, _ := time.Parse(time.RFC3339, params["from"])
		to, _ := time.Parse(time.RFC3339, params["to"])
		rows, err := p.repo.TasksInWindow(ctx, from, to, params["type"])
		if err != nil {
			return nil, err
		}
		items := make([]*entity.EvidenceItem, 0, len(rows))
		for _, t := range rows {
			items = append(items, newSQLItem(
				"postgres:warehouse_tasks",
				fmt.Sprintf("Task %s (%s) for SKU %s in zone %s: %s", t.ID, t.Type, t.SKU, t.Zone, t.Status),
				entity.EvidenceSubject{SKU: t.SKU, EquipmentID: t.EquipmentID, Location: t.Zone},
				t.CreatedAt,
			))
		}
		return items, nil
	}
	return nil, fmt.Errorf("unknown template %q", tpl)
}

func newSQLItem(source, content string, subject entity.EvidenceSubject, contentTime time.Time) *entity.EvidenceItem {
	return &entity.EvidenceItem{
		ID:          uuid.NewString(),
		Kind:        entity.SourceSQL,
		Source:      source,
		Content:     content,
		Subject:     subject,
		ContentTime: contentTime,
		Similarity:  1.0, // 结构化精确匹配
	}
}

// sqlCacheKey 模板标识加排序后的绑定参数，保证同一查询命中同一键
func sqlCacheKey(tpl sqlTemplate, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k+"="+v)
		}
	}
	sort.Strings(keys)
	return string(tpl) + ":" + strings.Join(keys, "|")
}

// sqlstateClass 提取错误链中的 SQLSTATE 类别码，用于日志定位
func sqlstateClass(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code.Class())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unknown"
}
