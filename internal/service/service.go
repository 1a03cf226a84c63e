package service

import (
	"go.uber.org/zap"

	"titleflow/backend/config"
	"titleflow/backend/internal/queue"
	"titleflow/backend/internal/repository"
	"titleflow/backend/pkg/jwt"
	"titleflow/backend/pkg/keylock"
	"titleflow/backend/pkg/redis"
)

// Service 所有业务服务的聚合入口
type Service struct {
	Auth       AuthService
	Assignment AssignmentService
	Allocation AllocationService
	SmartAlloc SmartAllocationService
	Advocate   AdvocateService
	Hub        HubService
}

// NewService 创建 Service 聚合。
// rdb、publisher 允许为 nil（对应能力降级）；suggester 不允许为 nil。
func NewService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	publisher *queue.Publisher,
	suggester Suggester,
	cfg *config.Config,
	logger *zap.Logger,
) *Service {
	locks := keylock.New()
	workload := NewWorkloadTracker(repo.Assignment, repo.Advocate)

	return &Service{
		Auth:       NewAuthService(repo, jwtMgr, rdb, logger),
		Assignment: NewAssignmentService(repo, locks, publisher, logger),
		Allocation: NewAllocationService(repo, workload, locks, publisher, &cfg.Alloc, logger),
		SmartAlloc: NewSmartAllocationService(repo, workload, locks, suggester, publisher, &cfg.Alloc, &cfg.Scoring, logger),
		Advocate:   NewAdvocateService(repo, workload, logger),
		Hub:        NewHubService(repo, logger),
	}
}
