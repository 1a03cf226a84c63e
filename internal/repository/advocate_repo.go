package repository

import (
	"context"

	"gorm.io/gorm"

	"titleflow/backend/internal/model"
	pkgerrors "titleflow/backend/pkg/errors"
)

// AdvocateRepository 承办律师数据访问接口
type AdvocateRepository interface {
	Create(ctx context.Context, advocate *model.Advocate) error
	GetByID(ctx context.Context, id string) (*model.Advocate, error)
	List(ctx context.Context, onlyActive bool) ([]model.Advocate, error)
	ListActive(ctx context.Context) ([]model.Advocate, error)
	Update(ctx context.Context, advocate *model.Advocate) error
	Delete(ctx context.Context, id, deletedBy string) error
}

type advocateRepo struct {
	db *gorm.DB
}

// NewAdvocateRepo 创建 AdvocateRepository 实现
func NewAdvocateRepo(db *gorm.DB) AdvocateRepository {
	return &advocateRepo{db: db}
}

func (r *advocateRepo) Create(ctx context.Context, advocate *model.Advocate) error {
	return r.db.WithContext(ctx).Create(advocate).Error
}

func (r *advocateRepo) GetByID(ctx context.Context, id string) (*model.Advocate, error) {
	var advocate model.Advocate
	err := r.db.WithContext(ctx).
		Preload("HomeHub").
		Where("advocate_id = ?", id).
		First(&advocate).Error
	if err != nil {
		return nil, err
	}
	return &advocate, nil
}

func (r *advocateRepo) List(ctx context.Context, onlyActive bool) ([]model.Advocate, error) {
	var advocates []model.Advocate
	q := r.db.WithContext(ctx).Order("name ASC")
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&advocates).Error; err != nil {
		return nil, err
	}
	return advocates, nil
}

func (r *advocateRepo) ListActive(ctx context.Context) ([]model.Advocate, error) {
	return r.List(ctx, true)
}

// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock
func (r *advocateRepo) Update(ctx context.Context, advocate *model.Advocate) error {
	oldVersion := advocate.Version
	result := r.db.WithContext(ctx).
		Model(advocate).
		Where("advocate_id = ? AND version = ?", advocate.AdvocateID, oldVersion).
		Updates(map[string]interface{}{
			"name":               advocate.Name,
			"enrollment_no":      advocate.EnrollmentNo,
			"email":              advocate.Email,
			"phone":              advocate.Phone,
			"coverage_states":    advocate.CoverageStates,
			"coverage_districts": advocate.CoverageDistricts,
			"specializations":    advocate.Specializations,
			"reputation_tags":    advocate.ReputationTags,
			"home_hub_id":        advocate.HomeHubID,
			"is_active":          advocate.IsActive,
			"updated_by":         advocate.UpdatedBy,
			"version":            oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	advocate.Version = oldVersion + 1
	return nil
}

func (r *advocateRepo) Delete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Advocate{}).
		Where("advocate_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at": gorm.Expr("CURRENT_TIMESTAMP"),
			"deleted_by": deletedBy,
			"is_active":  false,
		}).Error
}
