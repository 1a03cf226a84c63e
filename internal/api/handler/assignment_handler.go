package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/service"
	"titleflow/backend/pkg/response"
)

// AssignmentHandler 工单模块 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// handleAssignmentError 工单模块错误到 HTTP 响应的统一映射
func handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 12001, "工单不存在")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 12002, "当前状态不允许该操作")
	case errors.Is(err, service.ErrInvalidLocation):
		response.BadRequest(c, 12003, "邦或地区不存在")
	case errors.Is(err, service.ErrHubNotFound):
		response.BadRequest(c, 12004, "网点不存在")
	case errors.Is(err, service.ErrDocumentNotAllowed):
		response.Conflict(c, 12005, "当前状态不允许登记文档")
	default:
		response.InternalError(c)
	}
}

// Create 创建工单
// POST /api/v1/assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assignmentSvc.Create(c.Request.Context(), &req, actor)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.Created(c, result)
}

// Get 工单详情
// GET /api/v1/assignments/:id
func (h *AssignmentHandler) Get(c *gin.Context) {
	result, err := h.assignmentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OK(c, result)
}

// List 工单列表
// GET /api/v1/assignments
func (h *AssignmentHandler) List(c *gin.Context) {
	var req dto.ListAssignmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.assignmentSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// History 工单操作轨迹
// GET /api/v1/assignments/:id/history
func (h *AssignmentHandler) History(c *gin.Context) {
	result, err := h.assignmentSvc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OK(c, result)
}

// AddDocument 登记工作成果文档
// POST /api/v1/assignments/:id/documents
func (h *AssignmentHandler) AddDocument(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.AddDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assignmentSvc.AddDocument(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.Created(c, result)
}

// RaiseQuery 提出质询
// POST /api/v1/assignments/:id/query
func (h *AssignmentHandler) RaiseQuery(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assignmentSvc.RaiseQuery(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OK(c, result)
}

// RespondQuery 澄清质询
// POST /api/v1/assignments/:id/query/respond
func (h *AssignmentHandler) RespondQuery(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assignmentSvc.RespondQuery(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OK(c, result)
}

// MarkComplete 交付成果
// POST /api/v1/assignments/:id/complete
func (h *AssignmentHandler) MarkComplete(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.MarkComplete(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OK(c, result)
}

// StartReview 开始复核
// POST /api/v1/assignments/:id/review/start
func (h *AssignmentHandler) StartReview(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.StartReview(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OK(c, result)
}

// Review 出具复核结论
// POST /api/v1/assignments/:id/review
func (h *AssignmentHandler) Review(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assignmentSvc.Review(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OK(c, result)
}

// Import 从 Excel 批量导入工单
// POST /api/v1/assignments/import
func (h *AssignmentHandler) Import(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "缺少上传文件")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, 10001, "无法读取上传文件")
		return
	}
	defer f.Close()

	summary, err := h.assignmentSvc.Import(c.Request.Context(), f, actor)
	if err != nil {
		response.BadRequest(c, 12006, "Excel 文件解析失败")
		return
	}
	response.OK(c, summary)
}
