// Package dto 提供 HTTP 层数据传输对象
package dto

// InventoryEventRequest 库存变更事件请求
type InventoryEventRequest struct {
	SKU      string `json:"sku" binding:"required,max=64"`
	Location string `json:"location,omitempty"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason,omitempty"`
}

// EquipmentEventRequest 设备状态变更事件请求
type EquipmentEventRequest struct {
	EquipmentID string `json:"equipment_id" binding:"required,max=64"`
	Zone        string `json:"zone,omitempty"`
	Status      string `json:"status" binding:"required,max=32"`
}

// EventAcceptedResponse 事件受理响应
type EventAcceptedResponse struct {
	MessageID string `json:"message_id"`
	Stream    string `json:"stream"`
}
