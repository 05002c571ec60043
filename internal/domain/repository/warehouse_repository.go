package repository

import (
	"context"
	"time"

	"warehouse-assistant-api/internal/domain/entity"
)

// AvailabilityResult 可承诺量查询结果
type AvailabilityResult struct {
	SKU       string    `json:"sku"`
	Location  string    `json:"location,omitempty"`
	Quantity  int       `json:"quantity"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarehouseRepository 结构化仓储查询接口
// 每个方法对应一个固定的参数化查询模板，不接受自由 SQL。
type WarehouseRepository interface {
	// Availability 查询某 SKU 的可承诺量（可选按库位过滤）
	Availability(ctx context.Context, sku, location string) ([]*AvailabilityResult, error)

	// QuantityTotals 按 SKU 聚合库存总量
	QuantityTotals(ctx context.Context, sku string) (*entity.InventoryTotal, error)

	// EquipmentStatus 查询设备状态（equipmentID 为空时按区域列出）
	EquipmentStatus(ctx context.Context, equipmentID, zone string) ([]*entity.Equipment, error)

	// StockByLocation 查询某库位/区域存放的库存
	StockByLocation(ctx context.Context, location string) ([]*entity.InventoryRecord, error)

	// TasksInWindow 查询时间窗口内的作业任务
	TasksInWindow(ctx context.Context, from, to time.Time, taskType string) ([]*entity.WarehouseTask, error)
}
