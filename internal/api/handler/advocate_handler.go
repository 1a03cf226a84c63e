package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/service"
	pkgerrors "titleflow/backend/pkg/errors"
	"titleflow/backend/pkg/response"
)

// AdvocateHandler 承办律师模块 HTTP 处理器
type AdvocateHandler struct {
	advocateSvc service.AdvocateService
}

// NewAdvocateHandler 创建 AdvocateHandler
func NewAdvocateHandler(advocateSvc service.AdvocateService) *AdvocateHandler {
	return &AdvocateHandler{advocateSvc: advocateSvc}
}

// handleAdvocateError 承办律师模块错误到 HTTP 响应的统一映射
func handleAdvocateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAdvocateNotFound):
		response.NotFound(c, 14001, "承办律师不存在")
	case errors.Is(err, service.ErrInvalidCoverage):
		response.BadRequest(c, 14002, "覆盖范围不合法")
	case errors.Is(err, service.ErrHubNotFound):
		response.BadRequest(c, 12004, "网点不存在")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 14003, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

// Create 登记承办律师
// POST /api/v1/advocates
func (h *AdvocateHandler) Create(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateAdvocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.advocateSvc.Create(c.Request.Context(), &req, actor)
	if err != nil {
		handleAdvocateError(c, err)
		return
	}
	response.Created(c, result)
}

// Get 承办律师详情（含实时在办量）
// GET /api/v1/advocates/:id
func (h *AdvocateHandler) Get(c *gin.Context) {
	result, err := h.advocateSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAdvocateError(c, err)
		return
	}
	response.OK(c, result)
}

// List 承办律师列表
// GET /api/v1/advocates?only_active=true
func (h *AdvocateHandler) List(c *gin.Context) {
	onlyActive := c.Query("only_active") == "true"

	result, err := h.advocateSvc.List(c.Request.Context(), onlyActive)
	if err != nil {
		handleAdvocateError(c, err)
		return
	}
	response.OK(c, result)
}

// Update 更新承办律师资料
// PUT /api/v1/advocates/:id
func (h *AdvocateHandler) Update(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UpdateAdvocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.advocateSvc.Update(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleAdvocateError(c, err)
		return
	}
	response.OK(c, result)
}

// Deactivate 停用承办律师：不再进入候选池，在办工单不受影响
// DELETE /api/v1/advocates/:id
func (h *AdvocateHandler) Deactivate(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.advocateSvc.Deactivate(c.Request.Context(), c.Param("id"), actor); err != nil {
		handleAdvocateError(c, err)
		return
	}
	response.OK(c, nil)
}

// Loads 全员在办量总览
// GET /api/v1/advocates/loads
func (h *AdvocateHandler) Loads(c *gin.Context) {
	result, err := h.advocateSvc.Loads(c.Request.Context())
	if err != nil {
		handleAdvocateError(c, err)
		return
	}
	response.OK(c, result)
}
