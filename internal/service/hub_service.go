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

// HubService 服务网点管理接口
type HubService interface {
	Create(ctx context.Context, req *dto.CreateHubRequest, actor Actor) (*dto.HubResponse, error)
	Get(ctx context.Context, id string) (*dto.HubResponse, error)
	List(ctx context.Context, onlyActive bool) ([]dto.HubResponse, error)
	Delete(ctx context.Context, id string, actor Actor) error
}

type hubService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewHubService 创建网点管理服务
func NewHubService(repo *repository.Repository, logger *zap.Logger) HubService {
	return &hubService{repo: repo, logger: logger}
}

func newHubResponse(h *model.Hub) *dto.HubResponse {
	return &dto.HubResponse{
		ID:       h.HubID,
		Name:     h.Name,
		State:    h.State,
		District: h.District,
		IsActive: h.IsActive,
	}
}

func (s *hubService) Create(ctx context.Context, req *dto.CreateHubRequest, actor Actor) (*dto.HubResponse, error) {
	if !geo.IsValidState(req.State) || !geo.IsValidDistrict(req.State, req.District) {
		return nil, fmt.Errorf("%w: %s / %s", ErrInvalidLocation, req.State, req.District)
	}

	hub := &model.Hub{
		Name:     req.Name,
		State:    req.State,
		District: req.District,
		IsActive: true,
	}
	hub.CreatedBy = &actor.ID

	if err := s.repo.Hub.Create(ctx, hub); err != nil {
		return nil, fmt.Errorf("创建网点失败: %w", err)
	}

	s.logger.Info("网点已创建", zap.String("hub_id", hub.HubID), zap.String("name", hub.Name))
	return newHubResponse(hub), nil
}

func (s *hubService) Get(ctx context.Context, id string) (*dto.HubResponse, error) {
	hub, err := s.repo.Hub.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHubNotFound
		}
		return nil, fmt.Errorf("查询网点失败: %w", err)
	}
	return newHubResponse(hub), nil
}

func (s *hubService) List(ctx context.Context, onlyActive bool) ([]dto.HubResponse, error) {
	hubs, err := s.repo.Hub.List(ctx, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("查询网点列表失败: %w", err)
	}

	out := make([]dto.HubResponse, 0, len(hubs))
	for i := range hubs {
		out = append(out, *newHubResponse(&hubs[i]))
	}
	return out, nil
}

func (s *hubService) Delete(ctx context.Context, id string, actor Actor) error {
	if _, err := s.repo.Hub.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHubNotFound
		}
		return fmt.Errorf("查询网点失败: %w", err)
	}

	if err := s.repo.Hub.Delete(ctx, id, actor.ID); err != nil {
		return fmt.Errorf("删除网点失败: %w", err)
	}

	s.logger.Info("网点已删除", zap.String("hub_id", id))
	return nil
}
