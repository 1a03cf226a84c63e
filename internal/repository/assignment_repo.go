package repository

import (
	"context"

	"gorm.io/gorm"

	"titleflow/backend/internal/model"
	pkgerrors "titleflow/backend/pkg/errors"
)

// AssignmentFilter 工单列表过滤条件
type AssignmentFilter struct {
	Status      string
	RequesterID string
	AdvocateID  string
	HubID       string
}

// AssignmentRepository 工单数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	List(ctx context.Context, filter AssignmentFilter, offset, limit int) ([]model.Assignment, int64, error)
	// ListPending 返回全部待分单工单，按创建时间升序。
	// 批量分单依赖该确定性顺序保证重跑结果可复现。
	ListPending(ctx context.Context) ([]model.Assignment, error)
	Update(ctx context.Context, assignment *model.Assignment) error
	// UpdateWithAudit 在同一事务内更新工单并追加一条操作轨迹，
	// 任一写入失败则整体回滚
	UpdateWithAudit(ctx context.Context, assignment *model.Assignment, entry *model.AuditEntry) error
	// CountActiveByAdvocate 统计承办律师的在办工单数（在办状态集合内）
	CountActiveByAdvocate(ctx context.Context, advocateID string) (int64, error)
	// NextRefSeq 取工单编号序列的下一个值
	NextRefSeq(ctx context.Context) (int64, error)
	AddDocument(ctx context.Context, doc *model.AssignmentDocument) error
	CountDocuments(ctx context.Context, assignmentID string) (int64, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实现
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, assignment *model.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Advocate").
		Preload("Hub").
		Where("assignment_id = ?", id).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepo) List(ctx context.Context, filter AssignmentFilter, offset, limit int) ([]model.Assignment, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Assignment{})

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RequesterID != "" {
		q = q.Where("requester_id = ?", filter.RequesterID)
	}
	if filter.AdvocateID != "" {
		q = q.Where("advocate_id = ?", filter.AdvocateID)
	}
	if filter.HubID != "" {
		q = q.Where("hub_id = ?", filter.HubID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assignments []model.Assignment
	err := q.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&assignments).Error
	if err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}

func (r *assignmentRepo) ListPending(ctx context.Context) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StatusPendingAllocation).
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock。
// 状态、承办律师与里程碑时间戳在一条 UPDATE 中一并写入，
// 调用方不会观察到"已指派但状态未变"的中间态。
func (r *assignmentRepo) Update(ctx context.Context, assignment *model.Assignment) error {
	if err := versionedUpdate(r.db.WithContext(ctx), assignment); err != nil {
		return err
	}
	assignment.Version++
	return nil
}

// UpdateWithAudit 同一事务内更新工单并写轨迹。
// 轨迹是工单的来源链：分单成功但轨迹缺失的状态不允许出现，
// 事务失败时内存中的 version 不变，调用方可直接重试。
func (r *assignmentRepo) UpdateWithAudit(ctx context.Context, assignment *model.Assignment, entry *model.AuditEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := versionedUpdate(tx, assignment); err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return err
	}
	assignment.Version++
	return nil
}

// versionedUpdate 单条乐观锁 UPDATE；成功后由调用方递增内存中的 version
func versionedUpdate(db *gorm.DB, assignment *model.Assignment) error {
	result := db.
		Model(assignment).
		Where("assignment_id = ? AND version = ?", assignment.AssignmentID, assignment.Version).
		Updates(map[string]interface{}{
			"status":       assignment.Status,
			"advocate_id":  assignment.AdvocateID,
			"hub_id":       assignment.HubID,
			"allocated_at": assignment.AllocatedAt,
			"completed_at": assignment.CompletedAt,
			"closed_at":    assignment.ClosedAt,
			"updated_by":   assignment.UpdatedBy,
			"version":      assignment.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *assignmentRepo) CountActiveByAdvocate(ctx context.Context, advocateID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("advocate_id = ? AND status IN ?", advocateID, model.ActiveStatuses).
		Count(&count).Error
	return count, err
}

func (r *assignmentRepo) NextRefSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := r.db.WithContext(ctx).
		Raw("SELECT nextval('assignment_ref_seq')").
		Scan(&seq).Error
	return seq, err
}

func (r *assignmentRepo) AddDocument(ctx context.Context, doc *model.AssignmentDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *assignmentRepo) CountDocuments(ctx context.Context, assignmentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AssignmentDocument{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error
	return count, err
}
