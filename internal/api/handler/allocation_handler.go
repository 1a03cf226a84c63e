package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/service"
	pkgerrors "titleflow/backend/pkg/errors"
	"titleflow/backend/pkg/response"
)

// AllocationHandler 分单引擎 HTTP 处理器
type AllocationHandler struct {
	allocSvc service.AllocationService
	smartSvc service.SmartAllocationService
}

// NewAllocationHandler 创建 AllocationHandler
func NewAllocationHandler(allocSvc service.AllocationService, smartSvc service.SmartAllocationService) *AllocationHandler {
	return &AllocationHandler{allocSvc: allocSvc, smartSvc: smartSvc}
}

// handleAllocationError 分单模块错误到 HTTP 响应的统一映射
func handleAllocationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 12001, "工单不存在")
	case errors.Is(err, service.ErrAdvocateNotFound):
		response.NotFound(c, 14001, "承办律师不存在")
	case errors.Is(err, service.ErrAdvocateInactive):
		response.Conflict(c, 13001, "承办律师已停用")
	case errors.Is(err, service.ErrAdvocateAtCapacity):
		response.Conflict(c, 13002, "承办律师在办量已达上限")
	case errors.Is(err, service.ErrNoEligibleAdvocate):
		response.Conflict(c, 13003, "没有符合条件的承办律师")
	case errors.Is(err, service.ErrNotPendingAlloc):
		response.Conflict(c, 13004, "工单不在待分单状态")
	case errors.Is(err, service.ErrNotAllocated):
		response.Conflict(c, 13005, "工单尚未分单，无法改派")
	case errors.Is(err, service.ErrSameAdvocate):
		response.Conflict(c, 13006, "改派对象与当前承办律师相同")
	case errors.Is(err, service.ErrAssignmentClosed):
		response.Conflict(c, 13007, "工单已结案")
	case errors.Is(err, service.ErrReasonTooShort):
		response.BadRequest(c, 13008, "操作缘由至少 5 个字符")
	case errors.Is(err, service.ErrInvalidStrategy):
		response.BadRequest(c, 13009, "未知的分单策略")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13010, "工单已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

// Allocate 手动分单
// POST /api/v1/assignments/:id/allocate
func (h *AllocationHandler) Allocate(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.allocSvc.Allocate(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleAllocationError(c, err)
		return
	}
	response.OK(c, result)
}

// AutoAllocate 单工单自动分单
// POST /api/v1/assignments/:id/auto-allocate
func (h *AllocationHandler) AutoAllocate(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.AutoAllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.allocSvc.AutoAllocate(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleAllocationError(c, err)
		return
	}
	response.OK(c, result)
}

// Rank 候选承办律师排序（只读，不落库）
// GET /api/v1/assignments/:id/candidates
func (h *AllocationHandler) Rank(c *gin.Context) {
	var req dto.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.allocSvc.Rank(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleAllocationError(c, err)
		return
	}
	response.OK(c, result)
}

// Reallocate 改派
// POST /api/v1/assignments/:id/reallocate
func (h *AllocationHandler) Reallocate(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ReallocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.allocSvc.Reallocate(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleAllocationError(c, err)
		return
	}
	response.OK(c, result)
}

// BulkAutoAllocate 批量自动分单：遍历全部待分单工单，逐条尝试
// POST /api/v1/allocations/bulk
func (h *AllocationHandler) BulkAutoAllocate(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.BulkAllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	summary, err := h.allocSvc.BulkAutoAllocate(c.Request.Context(), &req, actor)
	if err != nil {
		// ctx 取消时返回已完成部分的汇总
		if summary != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			response.OK(c, summary)
			return
		}
		handleAllocationError(c, err)
		return
	}
	response.OK(c, summary)
}

// SmartAllocate 智能分单：调用外部评分服务逐条推荐。
// assignment_ids 为空时默认处理全部待分单工单。
// 请求被取消时返回已完成部分的汇总。
// POST /api/v1/allocations/smart
func (h *AllocationHandler) SmartAllocate(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.SmartAllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	summary, err := h.smartSvc.AllocateBatch(c.Request.Context(), req.AssignmentIDs, actor, nil)
	if err != nil {
		// ctx 取消属于调用方主动中断，返回已完成部分而非错误
		if summary != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			response.OK(c, summary)
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, summary)
}
