package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/geo"
	"titleflow/backend/internal/model"
	"titleflow/backend/internal/repository"
)

var ErrInvalidCoverage = errors.New("覆盖范围不合法")

// AdvocateService 承办律师管理接口
type AdvocateService interface {
	Create(ctx context.Context, req *dto.CreateAdvocateRequest, actor Actor) (*dto.AdvocateResponse, error)
	Get(ctx context.Context, id string) (*dto.AdvocateResponse, error)
	List(ctx context.Context, onlyActive bool) ([]dto.AdvocateResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateAdvocateRequest, actor Actor) (*dto.AdvocateResponse, error)
	Deactivate(ctx context.Context, id string, actor Actor) error
	// Loads 返回全部在岗律师的在办量概览
	Loads(ctx context.Context) ([]dto.AdvocateLoadResponse, error)
}

type advocateService struct {
	repo     *repository.Repository
	workload *WorkloadTracker
	logger   *zap.Logger
}

// NewAdvocateService 创建承办律师管理服务
func NewAdvocateService(repo *repository.Repository, workload *WorkloadTracker, logger *zap.Logger) AdvocateService {
	return &advocateService{repo: repo, workload: workload, logger: logger}
}

func (s *advocateService) Create(ctx context.Context, req *dto.CreateAdvocateRequest, actor Actor) (*dto.AdvocateResponse, error) {
	if err := geo.ValidateCoverage(req.CoverageStates, req.CoverageDistricts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoverage, err)
	}

	var homeHubID *string
	if req.HomeHubID != "" {
		hub, err := s.repo.Hub.GetByID(ctx, req.HomeHubID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrHubNotFound
			}
			return nil, fmt.Errorf("查询网点失败: %w", err)
		}
		homeHubID = &hub.HubID
	}

	advocate := &model.Advocate{
		Name:              req.Name,
		EnrollmentNo:      req.EnrollmentNo,
		Email:             req.Email,
		Phone:             req.Phone,
		CoverageStates:    req.CoverageStates,
		CoverageDistricts: req.CoverageDistricts,
		Specializations:   req.Specializations,
		ReputationTags:    req.ReputationTags,
		HomeHubID:         homeHubID,
		IsActive:          true,
	}
	advocate.CreatedBy = &actor.ID

	if err := s.repo.Advocate.Create(ctx, advocate); err != nil {
		return nil, fmt.Errorf("创建承办律师失败: %w", err)
	}

	s.logger.Info("承办律师已创建",
		zap.String("advocate_id", advocate.AdvocateID),
		zap.String("name", advocate.Name),
	)
	return dto.NewAdvocateResponse(advocate, 0), nil
}

func (s *advocateService) Get(ctx context.Context, id string) (*dto.AdvocateResponse, error) {
	advocate, err := s.repo.Advocate.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdvocateNotFound
		}
		return nil, fmt.Errorf("查询承办律师失败: %w", err)
	}

	load, err := s.workload.ActiveLoad(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("统计在办量失败: %w", err)
	}
	return dto.NewAdvocateResponse(advocate, load), nil
}

func (s *advocateService) List(ctx context.Context, onlyActive bool) ([]dto.AdvocateResponse, error) {
	advocates, err := s.repo.Advocate.List(ctx, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("查询承办律师列表失败: %w", err)
	}

	out := make([]dto.AdvocateResponse, 0, len(advocates))
	for i := range advocates {
		load, err := s.workload.ActiveLoad(ctx, advocates[i].AdvocateID)
		if err != nil {
			return nil, fmt.Errorf("统计在办量失败: %w", err)
		}
		out = append(out, *dto.NewAdvocateResponse(&advocates[i], load))
	}
	return out, nil
}

func (s *advocateService) Update(ctx context.Context, id string, req *dto.UpdateAdvocateRequest, actor Actor) (*dto.AdvocateResponse, error) {
	advocate, err := s.repo.Advocate.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdvocateNotFound
		}
		return nil, fmt.Errorf("查询承办律师失败: %w", err)
	}

	if req.Name != nil {
		advocate.Name = *req.Name
	}
	if req.Email != nil {
		advocate.Email = *req.Email
	}
	if req.Phone != nil {
		advocate.Phone = *req.Phone
	}
	if req.CoverageStates != nil {
		advocate.CoverageStates = req.CoverageStates
	}
	if req.CoverageDistricts != nil {
		advocate.CoverageDistricts = req.CoverageDistricts
	}
	if req.Specializations != nil {
		advocate.Specializations = req.Specializations
	}
	if req.ReputationTags != nil {
		advocate.ReputationTags = req.ReputationTags
	}
	if req.HomeHubID != nil {
		if *req.HomeHubID == "" {
			advocate.HomeHubID = nil
		} else {
			hub, err := s.repo.Hub.GetByID(ctx, *req.HomeHubID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrHubNotFound
				}
				return nil, fmt.Errorf("查询网点失败: %w", err)
			}
			advocate.HomeHubID = &hub.HubID
		}
	}
	if req.IsActive != nil {
		advocate.IsActive = *req.IsActive
	}

	// 覆盖范围整体校验：地区必须属于所覆盖的邦
	if err := geo.ValidateCoverage(advocate.CoverageStates, advocate.CoverageDistricts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoverage, err)
	}

	advocate.UpdatedBy = &actor.ID
	if err := s.repo.Advocate.Update(ctx, advocate); err != nil {
		return nil, fmt.Errorf("更新承办律师失败: %w", err)
	}

	load, err := s.workload.ActiveLoad(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("统计在办量失败: %w", err)
	}
	return dto.NewAdvocateResponse(advocate, load), nil
}

// Deactivate 停用承办律师。
// 停用只影响后续分单，不改动其名下在办工单；在办工单由运营逐单改派。
func (s *advocateService) Deactivate(ctx context.Context, id string, actor Actor) error {
	if _, err := s.repo.Advocate.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdvocateNotFound
		}
		return fmt.Errorf("查询承办律师失败: %w", err)
	}

	if err := s.repo.Advocate.Delete(ctx, id, actor.ID); err != nil {
		return fmt.Errorf("停用承办律师失败: %w", err)
	}

	s.logger.Info("承办律师已停用", zap.String("advocate_id", id))
	return nil
}

func (s *advocateService) Loads(ctx context.Context) ([]dto.AdvocateLoadResponse, error) {
	return s.workload.Overview(ctx)
}
