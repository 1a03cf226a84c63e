package dto

// AllocateRequest 手动分单请求
type AllocateRequest struct {
	AdvocateID string `json:"advocate_id" binding:"required"`
	Reason     string `json:"reason"      binding:"required"`
}

// AutoAllocateRequest 自动分单请求
type AutoAllocateRequest struct {
	Strategy string `json:"strategy" binding:"required,oneof=subject_location requester_location hub"`
	Cap      int    `json:"cap"      binding:"omitempty,min=1"`
}

// ReallocateRequest 改派请求
type ReallocateRequest struct {
	AdvocateID string `json:"advocate_id" binding:"required"`
	Reason     string `json:"reason"      binding:"required"`
}

// RankRequest 候选人排序请求
type RankRequest struct {
	Strategy string `form:"strategy" binding:"required,oneof=subject_location requester_location hub"`
	Cap      int    `form:"cap"      binding:"omitempty,min=1"`
}

// BulkAllocateRequest 批量自动分单请求
type BulkAllocateRequest struct {
	Strategy string `json:"strategy" binding:"required,oneof=subject_location requester_location hub"`
	Cap      int    `json:"cap"      binding:"omitempty,min=1"`
}

// SmartAllocateRequest 智能分单请求。
// assignment_ids 为空时默认处理全部待分单工单（按创建时间升序）
type SmartAllocateRequest struct {
	AssignmentIDs []string `json:"assignment_ids" binding:"omitempty,max=50"`
}

// CandidateResponse 候选承办律师及其匹配得分
type CandidateResponse struct {
	AdvocateID   string `json:"advocate_id"`
	Name         string `json:"name"`
	EnrollmentNo string `json:"enrollment_no"`
	Score        int    `json:"score"`
	ActiveLoad   int    `json:"active_load"`
}

// BulkAllocationSummary 批量分单汇总
type BulkAllocationSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SmartAllocationItemResult 智能分单单项结果
type SmartAllocationItemResult struct {
	AssignmentID string `json:"assignment_id"`
	RefCode      string `json:"ref_code"`
	Result       string `json:"result"` // ok | no_candidates | invalid_suggestion | allocation_failed | verification_failed | skipped
	AdvocateID   string `json:"advocate_id,omitempty"`
	Confidence   int    `json:"confidence,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SmartAllocationSummary 智能分单汇总（含逐项结果，便于调用方复查与重试）
type SmartAllocationSummary struct {
	Total     int                         `json:"total"`
	Succeeded int                         `json:"succeeded"`
	Failed    int                         `json:"failed"`
	Skipped   int                         `json:"skipped"` // 默认队列模式下处理中状态已变化的工单
	Items     []SmartAllocationItemResult `json:"items"`
}

// AdvocateLoadResponse 承办律师在办量
type AdvocateLoadResponse struct {
	AdvocateID string `json:"advocate_id"`
	Name       string `json:"name"`
	ActiveLoad int    `json:"active_load"`
}
