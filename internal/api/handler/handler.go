package handler

import "titleflow/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Assignment *AssignmentHandler
	Allocation *AllocationHandler
	Advocate   *AdvocateHandler
	Hub        *HubHandler
	Geo        *GeoHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Assignment: NewAssignmentHandler(svc.Assignment),
		Allocation: NewAllocationHandler(svc.Allocation, svc.SmartAlloc),
		Advocate:   NewAdvocateHandler(svc.Advocate),
		Hub:        NewHubHandler(svc.Hub),
		Geo:        NewGeoHandler(),
	}
}
