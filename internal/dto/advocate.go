package dto

import "titleflow/backend/internal/model"

// CreateAdvocateRequest 创建承办律师请求
type CreateAdvocateRequest struct {
	Name              string   `json:"name"               binding:"required,max=100"`
	EnrollmentNo      string   `json:"enrollment_no"      binding:"required,max=50"`
	Email             string   `json:"email"              binding:"required,email"`
	Phone             string   `json:"phone"              binding:"omitempty,max=20"`
	CoverageStates    []string `json:"coverage_states"    binding:"required,min=1"`
	CoverageDistricts []string `json:"coverage_districts"`
	Specializations   []string `json:"specializations"`
	ReputationTags    []string `json:"reputation_tags"`
	HomeHubID         string   `json:"home_hub_id"`
}

// UpdateAdvocateRequest 更新承办律师请求
type UpdateAdvocateRequest struct {
	Name              *string  `json:"name"               binding:"omitempty,max=100"`
	Email             *string  `json:"email"              binding:"omitempty,email"`
	Phone             *string  `json:"phone"              binding:"omitempty,max=20"`
	CoverageStates    []string `json:"coverage_states"`
	CoverageDistricts []string `json:"coverage_districts"`
	Specializations   []string `json:"specializations"`
	ReputationTags    []string `json:"reputation_tags"`
	HomeHubID         *string  `json:"home_hub_id"`
	IsActive          *bool    `json:"is_active"`
}

// AdvocateResponse 承办律师响应
type AdvocateResponse struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	EnrollmentNo      string   `json:"enrollment_no"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone,omitempty"`
	CoverageStates    []string `json:"coverage_states"`
	CoverageDistricts []string `json:"coverage_districts"`
	Specializations   []string `json:"specializations"`
	ReputationTags    []string `json:"reputation_tags"`
	HomeHubID         *string  `json:"home_hub_id,omitempty"`
	IsActive          bool     `json:"is_active"`
	ActiveLoad        int      `json:"active_load"` // 读取时实时推导
}

// NewAdvocateResponse 由模型构造响应
func NewAdvocateResponse(a *model.Advocate, activeLoad int) *AdvocateResponse {
	return &AdvocateResponse{
		ID:                a.AdvocateID,
		Name:              a.Name,
		EnrollmentNo:      a.EnrollmentNo,
		Email:             a.Email,
		Phone:             a.Phone,
		CoverageStates:    a.CoverageStates,
		CoverageDistricts: a.CoverageDistricts,
		Specializations:   a.Specializations,
		ReputationTags:    a.ReputationTags,
		HomeHubID:         a.HomeHubID,
		IsActive:          a.IsActive,
		ActiveLoad:        activeLoad,
	}
}

// CreateHubRequest 创建网点请求
type CreateHubRequest struct {
	Name     string `json:"name"     binding:"required,max=100"`
	State    string `json:"state"    binding:"required"`
	District string `json:"district" binding:"required"`
}

// HubResponse 网点响应
type HubResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	State    string `json:"state"`
	District string `json:"district"`
	IsActive bool   `json:"is_active"`
}
