package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/service"
	"titleflow/backend/pkg/response"
)

// HubHandler 网点模块 HTTP 处理器
type HubHandler struct {
	hubSvc service.HubService
}

// NewHubHandler 创建 HubHandler
func NewHubHandler(hubSvc service.HubService) *HubHandler {
	return &HubHandler{hubSvc: hubSvc}
}

func handleHubError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHubNotFound):
		response.NotFound(c, 12004, "网点不存在")
	case errors.Is(err, service.ErrInvalidLocation):
		response.BadRequest(c, 12003, "邦或地区不存在")
	default:
		response.InternalError(c)
	}
}

// Create 创建网点
// POST /api/v1/hubs
func (h *HubHandler) Create(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateHubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.hubSvc.Create(c.Request.Context(), &req, actor)
	if err != nil {
		handleHubError(c, err)
		return
	}
	response.Created(c, result)
}

// Get 网点详情
// GET /api/v1/hubs/:id
func (h *HubHandler) Get(c *gin.Context) {
	result, err := h.hubSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleHubError(c, err)
		return
	}
	response.OK(c, result)
}

// List 网点列表
// GET /api/v1/hubs?only_active=true
func (h *HubHandler) List(c *gin.Context) {
	onlyActive := c.Query("only_active") == "true"

	result, err := h.hubSvc.List(c.Request.Context(), onlyActive)
	if err != nil {
		handleHubError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 停用网点
// DELETE /api/v1/hubs/:id
func (h *HubHandler) Delete(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.hubSvc.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		handleHubError(c, err)
		return
	}
	response.OK(c, nil)
}
