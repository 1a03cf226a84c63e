package repository

import (
	"context"

	"gorm.io/gorm"

	"titleflow/backend/internal/model"
)

// AuditRepository 操作轨迹数据访问接口
// 只追加：接口上刻意不提供 Update/Delete。
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditEntry) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]model.AuditEntry, error)
}

type auditRepo struct {
	db *gorm.DB
}

// NewAuditRepo 创建 AuditRepository 实现
func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Create(ctx context.Context, entry *model.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
