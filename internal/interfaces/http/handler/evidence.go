// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"warehouse-assistant-api/internal/application/retrieval"
	"warehouse-assistant-api/internal/domain/entity"
	"warehouse-assistant-api/internal/interfaces/http/dto"
	"warehouse-assistant-api/pkg/logger"
)

// EvidenceHandler 证据检索处理器
type EvidenceHandler struct {
	engine *retrieval.Engine
}

// NewEvidenceHandler 创建证据检索处理器
func NewEvidenceHandler(engine *retrieval.Engine) *EvidenceHandler {
	return &EvidenceHandler{engine: engine}
}

// Answer 混合证据检索
// @Summary 混合证据检索
// @Description 按查询意图路由到 SQL/向量/混合路径，返回打分后的证据包
// @Tags Evidence
// @Accept json
// @Produce json
// @Param body body dto.AnswerRequest true "检索请求"
// @Success 200 {object} dto.Response[dto.AnswerResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/evidence/answer [post]
func (h *EvidenceHandler) Answer(c *gin.Context) {
	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	q := &entity.Query{
		Text:      req.Query,
		TraceID:   c.GetString("trace_id"),
		SessionID: req.SessionID,
		TopK:      req.TopK,
		Embedding: req.Embedding,
	}
	if req.Filters != nil {
		q.Filters = entity.QueryFilters{
			SKU:         req.Filters.SKU,
			EquipmentID: req.Filters.EquipmentID,
			Zone:        req.Filters.Zone,
			From:        req.Filters.From,
			To:          req.Filters.To,
		}
	}

	ctx := c.Request.Context()
	if req.SessionID != "" {
		ctx = logger.WithContext(ctx, logger.SessionIDKey, req.SessionID)
	}

	pack, err := h.engine.Answer(ctx, q)
	if err != nil {
		if retrieval.IsValidationError(err) {
			dto.BadRequest(c, err.Error())
			return
		}
		logger.Error(ctx, "evidence retrieval failed", err)
		dto.InternalError(c, "evidence retrieval failed")
		return
	}

	dto.Success(c, dto.FromEvidencePack(pack))
}

// LastRoute 查询会话最近一次路由决策
// @Summary 查询会话路由
// @Description 返回指定会话最近一次查询的路由决策
// @Tags Evidence
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.RoutingDecision]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/evidence/sessions/{sid}/route [get]
func (h *EvidenceHandler) LastRoute(c *gin.Context) {
	sessionID := c.Param("sid")
	if sessionID == "" {
		dto.BadRequest(c, "session id is required")
		return
	}

	decision, ok := h.engine.LastRoute(c.Request.Context(), sessionID)
	if !ok {
		dto.NotFound(c, "no routing decision recorded for session")
		return
	}

	dto.Success(c, &dto.RoutingDecision{
		Route:       string(decision.Route),
		SQLScore:    decision.SQLScore,
		VectorScore: decision.VectorScore,
		Indicators:  decision.Indicators,
	})
}
