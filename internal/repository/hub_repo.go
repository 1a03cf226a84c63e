package repository

import (
	"context"

	"gorm.io/gorm"

	"titleflow/backend/internal/model"
)

// HubRepository 服务网点数据访问接口
type HubRepository interface {
	Create(ctx context.Context, hub *model.Hub) error
	GetByID(ctx context.Context, id string) (*model.Hub, error)
	List(ctx context.Context, onlyActive bool) ([]model.Hub, error)
	Update(ctx context.Context, hub *model.Hub) error
	Delete(ctx context.Context, id, deletedBy string) error
}

type hubRepo struct {
	db *gorm.DB
}

// NewHubRepo 创建 HubRepository 实现
func NewHubRepo(db *gorm.DB) HubRepository {
	return &hubRepo{db: db}
}

func (r *hubRepo) Create(ctx context.Context, hub *model.Hub) error {
	return r.db.WithContext(ctx).Create(hub).Error
}

func (r *hubRepo) GetByID(ctx context.Context, id string) (*model.Hub, error) {
	var hub model.Hub
	err := r.db.WithContext(ctx).
		Where("hub_id = ?", id).
		First(&hub).Error
	if err != nil {
		return nil, err
	}
	return &hub, nil
}

func (r *hubRepo) List(ctx context.Context, onlyActive bool) ([]model.Hub, error) {
	var hubs []model.Hub
	q := r.db.WithContext(ctx).Order("name ASC")
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&hubs).Error; err != nil {
		return nil, err
	}
	return hubs, nil
}

func (r *hubRepo) Update(ctx context.Context, hub *model.Hub) error {
	return r.db.WithContext(ctx).Save(hub).Error
}

func (r *hubRepo) Delete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Hub{}).
		Where("hub_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at": gorm.Expr("CURRENT_TIMESTAMP"),
			"deleted_by": deletedBy,
		}).Error
}
