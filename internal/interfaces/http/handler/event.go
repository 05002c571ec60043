// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"warehouse-assistant-api/internal/infrastructure/messaging"
	"warehouse-assistant-api/internal/interfaces/http/dto"
	"warehouse-assistant-api/pkg/logger"
)

// EventHandler 变更事件处理器，将事件写入 Redis Stream 供缓存失效 worker 消费
type EventHandler struct {
	producer *messaging.Producer
}

// NewEventHandler 创建变更事件处理器
func NewEventHandler(producer *messaging.Producer) *EventHandler {
	return &EventHandler{producer: producer}
}

// PublishInventoryUpdate 发布库存变更事件
// @Summary 发布库存变更事件
// @Tags Events
// @Accept json
// @Produce json
// @Param body body dto.InventoryEventRequest true "库存变更"
// @Success 202 {object} dto.Response[dto.EventAcceptedResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/events/inventory [post]
func (h *EventHandler) PublishInventoryUpdate(c *gin.Context) {
	if h.producer == nil {
		dto.ServiceUnavailable(c, "event bus unavailable")
		return
	}

	var req dto.InventoryEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	msgID, err := h.producer.PublishInventoryUpdate(ctx, &messaging.InventoryUpdateMessage{
		SKU:      req.SKU,
		Location: req.Location,
		Quantity: req.Quantity,
		Reason:   req.Reason,
	})
	if err != nil {
		logger.Error(ctx, "failed to publish inventory update", err, "sku", req.SKU)
		dto.ServiceUnavailable(c, "event bus unavailable")
		return
	}

	dto.Accepted(c, dto.EventAcceptedResponse{
		MessageID: msgID,
		Stream:    string(messaging.StreamInventoryUpdate),
	})
}

// PublishEquipmentUpdate 发布设备状态变更事件
// @Summary 发布设备状态变更事件
// @Tags Events
// @Accept json
// @Produce json
// @Param body body dto.EquipmentEventRequest true "设备状态变更"
// @Success 202 {object} dto.Response[dto.EventAcceptedResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/events/equipment [post]
func (h *EventHandler) PublishEquipmentUpdate(c *gin.Context) {
	if h.producer == nil {
		dto.ServiceUnavailable(c, "event bus unavailable")
		return
	}

	var req dto.EquipmentEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	msgID, err := h.producer.PublishEquipmentUpdate(ctx, &messaging.EquipmentUpdateMessage{
		EquipmentID: req.EquipmentID,
		Zone:        req.Zone,
		Status:      req.Status,
	})
	if err != nil {
		logger.Error(ctx, "failed to publish equipment update", err, "equipment_id", req.EquipmentID)
		dto.ServiceUnavailable(c, "event bus unavailable")
		return
	}

	dto.Accepted(c, dto.EventAcceptedResponse{
		MessageID: msgID,
		Stream:    string(messaging.StreamEquipmentUpdate),
	})
}
