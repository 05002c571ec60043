// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"warehouse-assistant-api/internal/interfaces/http/handler"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	evidenceHandler *handler.EvidenceHandler,
	eventHandler *handler.EventHandler,
) {
	// 证据检索
	evidence := v1.Group("/evidence")
	{
		evidence.POST("/answer", evidenceHandler.Answer)
		evidence.GET("/sessions/:sid/route", evidenceHandler.LastRoute)
	}

	// 变更事件
	events := v1.Group("/events")
	{
		events.POST("/inventory", eventHandler.PublishInventoryUpdate)
		events.POST("/equipment", eventHandler.PublishEquipmentUpdate)
	}
}
