// Package invalidation 实现事件驱动的缓存失效：
// 库存与设备变更事件被映射为缓存键模式并批量清除。
package invalidation

import (
	"context"
	"fmt"

	"warehouse-assistant-api/internal/domain/repository"
	"warehouse-assistant-api/internal/infrastructure/messaging"
	"warehouse-assistant-api/pkg/logger"
	"warehouse-assistant-api/pkg/metrics"
)

// Worker 事件到缓存模式的映射器
type Worker struct {
	cache repository.CacheStore
}

func NewWorker(cache repository.CacheStore) *Worker {
	return &Worker{cache: cache}
}

// Register 将处理器挂到对应流的消费者上
func (w *Worker) Register(inventory, equipment *messaging.Consumer) {
	if inventory != nil {
		inventory.RegisterHandler(messaging.TypeInventoryUpdate, w.HandleInventoryUpdate)
	}
	if equipment != nil {
		equipment.RegisterHandler(messaging.TypeEquipmentUpdate, w.HandleEquipmentUpdate)
	}
}

// HandleInventoryUpdate 库存变更：清除涉及该 SKU 的结构化缓存与派生证据缓存
func (w *Worker) HandleInventoryUpdate(ctx context.Context, msg *messaging.Message) error {
	var update messaging.InventoryUpdateMessage
	if err := msg.UnmarshalPayload(&update); err != nil {
		return fmt.Errorf("failed to decode inventory update: %w", err)
	}

	patterns := []string{"evidence:*"}
	if update.SKU != "" {
		patterns = append(patterns, "sql:*sku="+update.SKU+"*")
	} else {
		patterns = append(patterns, "sql:*")
	}

	return w.invalidate(ctx, "inventory_update", patterns)
}

// HandleEquipmentUpdate 设备变更：清除设备状态缓存与派生证据缓存
func (w *Worker) HandleEquipmentUpdate(ctx context.Context, msg *messaging.Message) error {
	var update messaging.EquipmentUpdateMessage
	if err := msg.UnmarshalPayload(&update); err != nil {
		return fmt.Errorf("failed to decode equipment update: %w", err)
	}

	patterns := []string{"evidence:*"}
	if update.EquipmentID != "" {
		patterns = append(patterns, "sql:equipment_status:*equipment_id="+update.EquipmentID+"*")
	} else {
		patterns = append(patterns, "sql:equipment_status:*")
	}

	return w.invalidate(ctx, "equipment_update", patterns)
}

func (w *Worker) invalidate(ctx context.Context, trigger string, patterns []string) error {
	total := 0
	for _, pattern := range patterns {
		n, err := w.cache.Invalidate(ctx, pattern)
		if err != nil {
			// 返回错误让消费者走重试与 DLQ 流程
			return fmt.Errorf("failed to invalidate pattern %s: %w", pattern, err)
		}
		total += n
	}
	metrics.CacheInvalidationsTotal.WithLabelValues(trigger).Inc()
	logger.Info(ctx, "cache invalidated", "trigger", trigger, "patterns", patterns, "entries", total)
	return nil
}
