package dto

import "titleflow/backend/internal/model"

// CreateAssignmentRequest 创建工单请求
type CreateAssignmentRequest struct {
	Title             string `json:"title"              binding:"required,max=255"`
	Category          string `json:"category"           binding:"required,oneof=full_search limited_search update_search legal_opinion"`
	Priority          string `json:"priority"           binding:"omitempty,oneof=normal urgent critical"`
	Scope             string `json:"scope"              binding:"omitempty,oneof=basic standard extended"`
	SubjectAddress    string `json:"subject_address"    binding:"omitempty,max=500"`
	SubjectState      string `json:"subject_state"      binding:"required"`
	SubjectDistrict   string `json:"subject_district"   binding:"required"`
	RequesterState    string `json:"requester_state"`
	RequesterDistrict string `json:"requester_district"`
	HubID             string `json:"hub_id"`
}

// ListAssignmentsRequest 工单列表请求
type ListAssignmentsRequest struct {
	PaginationRequest
	Status      string `form:"status"`
	RequesterID string `form:"requester_id"`
	AdvocateID  string `form:"advocate_id"`
	HubID       string `form:"hub_id"`
}

// AddDocumentRequest 登记工作成果文档请求（文档本体存于外部存储）
type AddDocumentRequest struct {
	FileName    string `json:"file_name"    binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"omitempty,max=100"`
	SizeBytes   int64  `json:"size_bytes"   binding:"omitempty,min=0"`
	StorageKey  string `json:"storage_key"  binding:"required,max=500"`
}

// QueryRequest 质询/澄清请求
type QueryRequest struct {
	Detail string `json:"detail" binding:"required"`
}

// ReviewRequest 复核结论请求
type ReviewRequest struct {
	// approve 结案；rework 退回返工
	Outcome string `json:"outcome" binding:"required,oneof=approve rework"`
	Detail  string `json:"detail"  binding:"omitempty"`
}

// AssignmentResponse 工单响应
type AssignmentResponse struct {
	ID                string  `json:"id"`
	RefCode           string  `json:"ref_code"`
	Title             string  `json:"title"`
	Category          string  `json:"category"`
	Priority          string  `json:"priority"`
	Scope             string  `json:"scope"`
	Status            string  `json:"status"`
	SubjectAddress    string  `json:"subject_address,omitempty"`
	SubjectState      string  `json:"subject_state"`
	SubjectDistrict   string  `json:"subject_district"`
	RequesterState    string  `json:"requester_state,omitempty"`
	RequesterDistrict string  `json:"requester_district,omitempty"`
	RequesterID       string  `json:"requester_id"`
	AdvocateID        *string `json:"advocate_id,omitempty"`
	AdvocateName      string  `json:"advocate_name,omitempty"`
	HubID             *string `json:"hub_id,omitempty"`
	CreatedAt         string  `json:"created_at"`
	AllocatedAt       *string `json:"allocated_at,omitempty"`
	CompletedAt       *string `json:"completed_at,omitempty"`
	ClosedAt          *string `json:"closed_at,omitempty"`
}

// AuditEntryResponse 操作轨迹响应
type AuditEntryResponse struct {
	EntryID   string                 `json:"entry_id"`
	Action    string                 `json:"action"`
	ActorID   string                 `json:"actor_id"`
	ActorRole string                 `json:"actor_role"`
	Detail    string                 `json:"detail"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt string                 `json:"created_at"`
}

// ImportSummaryResponse Excel 导入结果
type ImportSummaryResponse struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"` // 每条失败行的原因
}

// NewAssignmentResponse 由模型构造工单响应
func NewAssignmentResponse(a *model.Assignment) *AssignmentResponse {
	resp := &AssignmentResponse{
		ID:                a.AssignmentID,
		RefCode:           a.RefCode,
		Title:             a.Title,
		Category:          a.Category,
		Priority:          a.Priority,
		Scope:             a.Scope,
		Status:            a.Status,
		SubjectAddress:    a.SubjectAddress,
		SubjectState:      a.SubjectState,
		SubjectDistrict:   a.SubjectDistrict,
		RequesterState:    a.RequesterState,
		RequesterDistrict: a.RequesterDistrict,
		RequesterID:       a.RequesterID,
		AdvocateID:        a.AdvocateID,
		HubID:             a.HubID,
		CreatedAt:         a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if a.Advocate != nil {
		resp.AdvocateName = a.Advocate.Name
	}
	if a.AllocatedAt != nil {
		s := a.AllocatedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.AllocatedAt = &s
	}
	if a.CompletedAt != nil {
		s := a.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.CompletedAt = &s
	}
	if a.ClosedAt != nil {
		s := a.ClosedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ClosedAt = &s
	}
	return resp
}
