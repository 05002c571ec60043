// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"warehouse-assistant-api/internal/domain/entity"
	"warehouse-assistant-api/internal/domain/repository"
)

// WarehouseRepository 仓储查询实现。
// 每个方法对应一个固定的参数化模板，所有条件值都走绑定参数。
type WarehouseRepository struct {
	client *Client
}

// NewWarehouseRepository 创建仓储查询实现
func NewWarehouseRepository(client *Client) *WarehouseRepository {
	return &WarehouseRepository{client: client}
}

// AutoMigrate 创建仓库相关表结构
func (r *WarehouseRepository) AutoMigrate() error {
	return r.client.db.AutoMigrate(
		&entity.InventoryRecord{},
		&entity.Equipment{},
		&entity.WarehouseTask{},
	)
}

// Availability 查询某 SKU 的可承诺量
func (r *WarehouseRepository) Availability(ctx context.Context, sku, location string) ([]*repository.AvailabilityResult, error) {
	ctx, span := tracer.Start(ctx, "postgres.WarehouseRepository.Availability")
	defer span.End()

	query := r.client.db.WithContext(ctx).
		Model(&entity.InventoryRecord{}).
		Select("sku, location, quantity, reserved, quantity - reserved AS available, updated_at").
		Where("sku = ?", sku)
	if location != "" {
		query = query.Where("location = ?", location)
	}

	var results []*repository.AvailabilityResult
	if err := query.Order("location ASC").Scan(&results).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	return results, nil
}

// QuantityTotals 按 SKU 聚合库存总量
func (r *WarehouseRepository) QuantityTotals(ctx context.Context, sku string) (*entity.InventoryTotal, error) {
	ctx, span := tracer.Start(ctx, "postgres.WarehouseRepository.QuantityTotals")
	defer span.End()

	var total entity.InventoryTotal
	err := r.client.db.WithContext(ctx).
		Model(&entity.InventoryRecord{}).
		Select("sku, COALESCE(SUM(quantity),0) AS total_quantity, COALESCE(SUM(reserved),0) AS total_reserved, COUNT(DISTINCT location) AS locations").
		Where("sku = ?", sku).
		Group("sku").
		Scan(&total).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to aggregate quantity: %w", err)
	}
	if total.SKU == "" {
		return nil, nil
	}
	return &total, nil
}

// EquipmentStatus 查询设备状态
func (r *WarehouseRepository) EquipmentStatus(ctx context.Context, equipmentID, zone string) ([]*entity.Equipment, error) {
	ctx, span := tracer.Start(ctx, "postgres.WarehouseRepository.EquipmentStatus")
	defer span.End()

	query := r.client.db.WithContext(ctx).Model(&entity.Equipment{})
	if equipmentID != "" {
		query = query.Where("id = ?", equipmentID)
	}
	if zone != "" {
		query = query.Where("zone = ?", zone)
	}

	var rows []*entity.Equipment
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query equipment status: %w", err)
	}
	return rows, nil
}

// StockByLocation 查询某库位存放的库存
func (r *WarehouseRepository) StockByLocation(ctx context.Context, location string) ([]*entity.InventoryRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.WarehouseRepository.StockByLocation")
	defer span.End()

	var rows []*entity.InventoryRecord
	err := r.client.db.WithContext(ctx).
		Where("location = ?", location).
		Order("sku ASC").
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query stock by location: %w", err)
	}
	return rows, nil
}

// TasksInWindow 查询时间窗口内的作业任务
func (r *WarehouseRepository) TasksInWindow(ctx context.Context, from, to time.Time, taskType string) ([]*entity.WarehouseTask, error) {
	ctx, span := tracer.Start(ctx, "postgres.WarehouseRepository.TasksInWindow")
	defer span.End()

	query := r.client.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to)
	if taskType != "" {
		query = query.Where("type = ?", taskType)
	}

	var rows []*entity.WarehouseTask
	if err := query.Order("created_at DESC").Limit(100).Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query tasks in window: %w", err)
	}
	return rows, nil
}
