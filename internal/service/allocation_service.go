package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"titleflow/backend/config"
	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/model"
	"titleflow/backend/internal/queue"
	"titleflow/backend/internal/repository"
	"titleflow/backend/pkg/keylock"
)

// ── 错误定义 ──

var (
	ErrAssignmentNotFound = errors.New("工单不存在")
	ErrAdvocateNotFound   = errors.New("承办律师不存在")
	ErrAdvocateInactive   = errors.New("承办律师已停用")
	ErrAdvocateAtCapacity = errors.New("承办律师在办量已达上限")
	ErrNoEligibleAdvocate = errors.New("没有符合条件的承办律师")
	ErrNotPendingAlloc    = errors.New("工单不在待分单状态")
	ErrNotAllocated       = errors.New("工单尚未分单，无法改派")
	ErrSameAdvocate       = errors.New("改派对象与当前承办律师相同")
	ErrAssignmentClosed   = errors.New("工单已结案")
	ErrReasonTooShort     = errors.New("操作缘由至少 5 个字符")
	ErrInvalidStrategy    = errors.New("未知的分单策略")
)

// Actor 发起操作的身份，由中间件解析注入
type Actor struct {
	ID   string
	Role string
}

// AllocationService 分单引擎接口
type AllocationService interface {
	// Allocate 手动分单：运营指定承办律师。
	// 首次成功后的重试一律拒绝（ErrNotPendingAlloc），不产生任何重复副作用。
	Allocate(ctx context.Context, assignmentID string, req *dto.AllocateRequest, actor Actor) (*dto.AssignmentResponse, error)
	// AutoAllocate 自动分单：按策略评分取最优候选人
	AutoAllocate(ctx context.Context, assignmentID string, req *dto.AutoAllocateRequest, actor Actor) (*dto.AssignmentResponse, error)
	// Rank 只读预览候选人排序，使用浏览上限
	Rank(ctx context.Context, assignmentID string, req *dto.RankRequest) ([]dto.CandidateResponse, error)
	// Reallocate 改派：结案前均可改派，状态保持不变
	Reallocate(ctx context.Context, assignmentID string, req *dto.ReallocateRequest, actor Actor) (*dto.AssignmentResponse, error)
	// BulkAutoAllocate 批量自动分单：按创建时间顺序处理全部待分单工单，
	// 单条失败不中断批次；ctx 取消时停止处理后续工单并返回已完成部分
	BulkAutoAllocate(ctx context.Context, req *dto.BulkAllocateRequest, actor Actor) (*dto.BulkAllocationSummary, error)
}

type allocationService struct {
	repo      *repository.Repository
	workload  *WorkloadTracker
	locks     *keylock.KeyedMutex
	publisher *queue.Publisher
	cfg       *config.AllocConfig
	logger    *zap.Logger
}

// NewAllocationService 创建分单引擎
func NewAllocationService(
	repo *repository.Repository,
	workload *WorkloadTracker,
	locks *keylock.KeyedMutex,
	publisher *queue.Publisher,
	cfg *config.AllocConfig,
	logger *zap.Logger,
) AllocationService {
	return &allocationService{
		repo:      repo,
		workload:  workload,
		locks:     locks,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// validateReason 缘由规整与校验：去首尾空白后至少 5 个字符
func validateReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < 5 {
		return "", ErrReasonTooShort
	}
	return reason, nil
}

// ════════════════════════════════════════
//  手动分单
// ════════════════════════════════════════

func (s *allocationService) Allocate(ctx context.Context, assignmentID string, req *dto.AllocateRequest, actor Actor) (*dto.AssignmentResponse, error) {
	reason, err := validateReason(req.Reason)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(assignmentID)
	defer s.locks.Unlock(assignmentID)

	assignment, err := s.repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("查询工单失败: %w", err)
	}

	// 重试安全：非待分单状态一律拒绝，调用方据此区分"已分派"与首次失败。
	// 拒绝路径没有任何写入，不会产生重复轨迹或重复计入在办量。
	if assignment.Status != model.StatusPendingAllocation {
		return nil, fmt.Errorf("%w: 当前状态 %s", ErrNotPendingAlloc, assignment.Status)
	}

	advocate, err := s.loadEligibleAdvocate(ctx, req.AdvocateID)
	if err != nil {
		return nil, err
	}

	if err := s.commitAllocation(ctx, assignment, advocate, actor, reason, model.JSONMap{
		"mode":   "manual",
		"reason": reason,
	}); err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

// loadEligibleAdvocate 加载承办律师并校验在岗与在办量上限
func (s *allocationService) loadEligibleAdvocate(ctx context.Context, advocateID string) (*model.Advocate, error) {
	advocate, err := s.repo.Advocate.GetByID(ctx, advocateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdvocateNotFound
		}
		return nil, fmt.Errorf("查询承办律师失败: %w", err)
	}
	if !advocate.IsActive {
		return nil, ErrAdvocateInactive
	}

	load, err := s.workload.ActiveLoad(ctx, advocate.AdvocateID)
	if err != nil {
		return nil, fmt.Errorf("统计在办量失败: %w", err)
	}
	if load >= s.cfg.DefaultCap {
		return nil, fmt.Errorf("%w: 在办 %d，上限 %d", ErrAdvocateAtCapacity, load, s.cfg.DefaultCap)
	}

	return advocate, nil
}

// commitAllocation 同一事务内落库分单结果与轨迹，再发布事件。
// 调用方负责持有工单锁与全部前置校验。
func (s *allocationService) commitAllocation(ctx context.Context, assignment *model.Assignment, advocate *model.Advocate, actor Actor, detail string, metadata model.JSONMap) error {
	now := time.Now()
	if err := ApplyTransition(assignment, model.StatusAllocated, now); err != nil {
		return err
	}
	assignment.AdvocateID = &advocate.AdvocateID
	assignment.UpdatedBy = &actor.ID

	entry := &model.AuditEntry{
		AssignmentID: assignment.AssignmentID,
		Action:       model.ActionAllocated,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Detail:       fmt.Sprintf("分派给 %s: %s", advocate.Name, detail),
		Metadata:     metadata,
	}
	// 轨迹是工单的来源链：与工单更新同事务，任一失败整体回滚
	if err := s.repo.Assignment.UpdateWithAudit(ctx, assignment, entry); err != nil {
		return fmt.Errorf("更新工单失败: %w", err)
	}

	s.publisher.Publish(ctx, queue.EventAllocated, &queue.Event{
		AssignmentID: assignment.AssignmentID,
		RefCode:      assignment.RefCode,
		Status:       assignment.Status,
		AdvocateID:   advocate.AdvocateID,
		ActorID:      actor.ID,
		Detail:       detail,
		OccurredAt:   now,
	})

	s.logger.Info("工单已分单",
		zap.String("assignment_id", assignment.AssignmentID),
		zap.String("ref_code", assignment.RefCode),
		zap.String("advocate_id", advocate.AdvocateID),
	)
	assignment.Advocate = advocate
	return nil
}

// ════════════════════════════════════════
//  自动分单与候选人排序
// ════════════════════════════════════════

// rankCandidates 组装候选人集合：在岗、通过策略准入门槛、在办量低于上限，
// 并按确定性顺序排序
func (s *allocationService) rankCandidates(ctx context.Context, assignment *model.Assignment, strategy Strategy, loadCap int) ([]Candidate, error) {
	advocates, err := s.repo.Advocate.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询承办律师失败: %w", err)
	}

	candidates := make([]Candidate, 0, len(advocates))
	for i := range advocates {
		load, err := s.workload.ActiveLoad(ctx, advocates[i].AdvocateID)
		if err != nil {
			return nil, fmt.Errorf("统计在办量失败: %w", err)
		}
		if load >= loadCap {
			continue
		}
		score, eligible := ScoreMatch(assignment, &advocates[i], load, strategy)
		if !eligible {
			continue
		}
		candidates = append(candidates, Candidate{
			Advocate:   advocates[i],
			Score:      score,
			ActiveLoad: load,
		})
	}

	sortCandidates(candidates)
	return candidates, nil
}

func (s *allocationService) AutoAllocate(ctx context.Context, assignmentID string, req *dto.AutoAllocateRequest, actor Actor) (*dto.AssignmentResponse, error) {
	strategy := Strategy(req.Strategy)
	if !ValidStrategy(strategy) {
		return nil, ErrInvalidStrategy
	}
	loadCap := req.Cap
	if loadCap <= 0 {
		loadCap = s.cfg.DefaultCap
	}

	s.locks.Lock(assignmentID)
	defer s.locks.Unlock(assignmentID)

	assignment, err := s.repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("查询工单失败: %w", err)
	}
	if assignment.Status != model.StatusPendingAllocation {
		return nil, fmt.Errorf("%w: 当前状态 %s", ErrNotPendingAlloc, assignment.Status)
	}

	candidates, err := s.rankCandidates(ctx, assignment, strategy, loadCap)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoEligibleAdvocate
	}

	best := candidates[0]
	detail := fmt.Sprintf("自动分单（策略 %s，得分 %d）", strategy, best.Score)
	if err := s.commitAllocation(ctx, assignment, &best.Advocate, actor, detail, model.JSONMap{
		"mode":     "auto",
		"strategy": string(strategy),
		"score":    best.Score,
		"load":     best.ActiveLoad,
	}); err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *allocationService) Rank(ctx context.Context, assignmentID string, req *dto.RankRequest) ([]dto.CandidateResponse, error) {
	strategy := Strategy(req.Strategy)
	if !ValidStrategy(strategy) {
		return nil, ErrInvalidStrategy
	}
	loadCap := req.Cap
	if loadCap <= 0 {
		loadCap = s.cfg.BrowseCap
	}

	// 只读路径不加锁：排序结果本身就是一个瞬时快照
	assignment, err := s.repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("查询工单失败: %w", err)
	}

	candidates, err := s.rankCandidates(ctx, assignment, strategy, loadCap)
	if err != nil {
		return nil, err
	}

	out := make([]dto.CandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, dto.CandidateResponse{
			AdvocateID:   c.Advocate.AdvocateID,
			Name:         c.Advocate.Name,
			EnrollmentNo: c.Advocate.EnrollmentNo,
			Score:        c.Score,
			ActiveLoad:   c.ActiveLoad,
		})
	}
	return out, nil
}

// ════════════════════════════════════════
//  改派
// ════════════════════════════════════════

func (s *allocationService) Reallocate(ctx context.Context, assignmentID string, req *dto.ReallocateRequest, actor Actor) (*dto.AssignmentResponse, error) {
	reason, err := validateReason(req.Reason)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(assignmentID)
	defer s.locks.Unlock(assignmentID)

	assignment, err := s.repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("查询工单失败: %w", err)
	}

	switch {
	case assignment.Status == model.StatusClosed:
		return nil, ErrAssignmentClosed
	case assignment.AdvocateID == nil:
		return nil, ErrNotAllocated
	case *assignment.AdvocateID == req.AdvocateID:
		return nil, ErrSameAdvocate
	}

	previousID := *assignment.AdvocateID
	previousName := ""
	if assignment.Advocate != nil {
		previousName = assignment.Advocate.Name
	}

	advocate, err := s.loadEligibleAdvocate(ctx, req.AdvocateID)
	if err != nil {
		return nil, err
	}

	// 改派不改变状态，只换人
	assignment.AdvocateID = &advocate.AdvocateID
	assignment.UpdatedBy = &actor.ID

	now := time.Now()
	entry := &model.AuditEntry{
		AssignmentID: assignment.AssignmentID,
		Action:       model.ActionReallocated,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Detail:       fmt.Sprintf("由 %s 改派给 %s: %s", previousName, advocate.Name, reason),
		Metadata: model.JSONMap{
			"from_advocate_id": previousID,
			"to_advocate_id":   advocate.AdvocateID,
			"reason":           reason,
		},
	}
	if err := s.repo.Assignment.UpdateWithAudit(ctx, assignment, entry); err != nil {
		return nil, fmt.Errorf("更新工单失败: %w", err)
	}

	s.publisher.Publish(ctx, queue.EventReallocated, &queue.Event{
		AssignmentID: assignment.AssignmentID,
		RefCode:      assignment.RefCode,
		Status:       assignment.Status,
		AdvocateID:   advocate.AdvocateID,
		ActorID:      actor.ID,
		Detail:       reason,
		OccurredAt:   now,
	})

	s.logger.Info("工单已改派",
		zap.String("assignment_id", assignment.AssignmentID),
		zap.String("from", previousID),
		zap.String("to", advocate.AdvocateID),
	)

	assignment.Advocate = advocate
	return dto.NewAssignmentResponse(assignment), nil
}

// ════════════════════════════════════════
//  批量自动分单
// ════════════════════════════════════════

func (s *allocationService) BulkAutoAllocate(ctx context.Context, req *dto.BulkAllocateRequest, actor Actor) (*dto.BulkAllocationSummary, error) {
	strategy := Strategy(req.Strategy)
	if !ValidStrategy(strategy) {
		return nil, ErrInvalidStrategy
	}

	pending, err := s.repo.Assignment.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询待分单工单失败: %w", err)
	}

	summary := &dto.BulkAllocationSummary{Total: len(pending)}
	for i := range pending {
		// 每条处理前检查取消：已落库的分单不回滚，返回已完成部分
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		_, err := s.AutoAllocate(ctx, pending[i].AssignmentID, &dto.AutoAllocateRequest{
			Strategy: req.Strategy,
			Cap:      req.Cap,
		}, actor)
		if err != nil {
			// 单条失败计入汇总后继续处理后续工单
			summary.Failed++
			s.logger.Warn("批量分单单条失败",
				zap.String("assignment_id", pending[i].AssignmentID),
				zap.String("ref_code", pending[i].RefCode),
				zap.Error(err),
			)
			continue
		}
		summary.Succeeded++
	}

	s.logger.Info("批量自动分单完成",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}
