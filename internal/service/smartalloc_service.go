package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"titleflow/backend/config"
	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/model"
	"titleflow/backend/internal/queue"
	"titleflow/backend/internal/repository"
	"titleflow/backend/pkg/keylock"
)

// ── 单项结果 ──

const (
	SmartResultOK                 = "ok"
	SmartResultNoCandidates       = "no_candidates"       // 本地筛选后无候选人
	SmartResultInvalidSuggestion  = "invalid_suggestion"  // 外部服务出错或推荐不在候选集合内
	SmartResultAllocationFailed   = "allocation_failed"   // 落库分单失败（含状态已变化）
	SmartResultVerificationFailed = "verification_failed" // 落库后回读核验不一致
	SmartResultSkipped            = "skipped"             // 默认队列模式下工单状态已变化，跳过不计失败
)

// Suggester 外部智能评分服务抽象
type Suggester interface {
	Suggest(ctx context.Context, sctx *dto.SuggestContext) (*dto.Suggestion, error)
}

// ProgressFunc 批次进度回调，每处理完一条调用一次
type ProgressFunc func(done, total int, item dto.SmartAllocationItemResult)

// SmartAllocationService 智能分单编排器。
// 外部评分服务是不可信协作方：每条推荐都要先做候选集合成员校验，
// 落库后再回读核验，任何一步不通过即判该条失败，批次继续。
type SmartAllocationService interface {
	// AllocateBatch 逐条处理指定工单；assignmentIDs 为空时默认处理全部
	// 待分单工单（按创建时间升序），处理中状态已变化的工单记为跳过。
	// ctx 取消时停止处理后续工单，返回已完成部分的汇总与 ctx 错误；
	// 已落库的分单不回滚。
	AllocateBatch(ctx context.Context, assignmentIDs []string, actor Actor, onProgress ProgressFunc) (*dto.SmartAllocationSummary, error)
}

type smartAllocationService struct {
	repo      *repository.Repository
	workload  *WorkloadTracker
	locks     *keylock.KeyedMutex
	suggester Suggester
	publisher *queue.Publisher
	alloc     *config.AllocConfig
	// 相邻两次外部调用之间的最小间隔，满足对方限流要求
	callInterval time.Duration
	logger       *zap.Logger
}

// NewSmartAllocationService 创建智能分单编排器
func NewSmartAllocationService(
	repo *repository.Repository,
	workload *WorkloadTracker,
	locks *keylock.KeyedMutex,
	suggester Suggester,
	publisher *queue.Publisher,
	alloc *config.AllocConfig,
	scoring *config.ScoringConfig,
	logger *zap.Logger,
) SmartAllocationService {
	return &smartAllocationService{
		repo:         repo,
		workload:     workload,
		locks:        locks,
		suggester:    suggester,
		publisher:    publisher,
		alloc:        alloc,
		callInterval: scoring.CallInterval,
		logger:       logger,
	}
}

func (s *smartAllocationService) AllocateBatch(ctx context.Context, assignmentIDs []string, actor Actor, onProgress ProgressFunc) (*dto.SmartAllocationSummary, error) {
	// 未指定工单时默认处理全部待分单工单（按创建时间升序）。
	// 默认队列是查询瞬间的快照，处理到时状态已变化的工单记为跳过。
	skipChanged := len(assignmentIDs) == 0
	if skipChanged {
		pending, err := s.repo.Assignment.ListPending(ctx)
		if err != nil {
			return nil, fmt.Errorf("查询待分单工单失败: %w", err)
		}
		assignmentIDs = make([]string, 0, len(pending))
		for i := range pending {
			assignmentIDs = append(assignmentIDs, pending[i].AssignmentID)
		}
	}

	summary := &dto.SmartAllocationSummary{
		Total: len(assignmentIDs),
		Items: make([]dto.SmartAllocationItemResult, 0, len(assignmentIDs)),
	}

	for i, id := range assignmentIDs {
		// 每条处理前检查取消：中途取消返回已完成部分
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		item := s.allocateOne(ctx, id, actor, skipChanged)
		summary.Items = append(summary.Items, item)
		switch item.Result {
		case SmartResultOK:
			summary.Succeeded++
		case SmartResultSkipped:
			summary.Skipped++
		default:
			summary.Failed++
			s.logger.Warn("智能分单单条失败",
				zap.String("assignment_id", id),
				zap.String("result", item.Result),
				zap.String("error", item.Error),
			)
		}

		if onProgress != nil {
			onProgress(i+1, summary.Total, item)
		}

		// 限速等待放在锁外，不阻塞其他调用方对后续工单的操作
		if i < len(assignmentIDs)-1 && s.callInterval > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(s.callInterval):
			}
		}
	}

	s.logger.Info("智能分单批次完成",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// allocateOne 处理单条工单：候选集合 → 外部推荐 → 成员校验 → 落库 → 回读核验。
// skipChanged 为 true 时（默认队列模式）非待分单状态记为跳过而非失败
func (s *smartAllocationService) allocateOne(ctx context.Context, assignmentID string, actor Actor, skipChanged bool) dto.SmartAllocationItemResult {
	s.locks.Lock(assignmentID)
	defer s.locks.Unlock(assignmentID)

	item := dto.SmartAllocationItemResult{AssignmentID: assignmentID}

	assignment, err := s.repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		item.Result = SmartResultAllocationFailed
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item.Error = ErrAssignmentNotFound.Error()
		} else {
			item.Error = err.Error()
		}
		return item
	}
	item.RefCode = assignment.RefCode

	if assignment.Status != model.StatusPendingAllocation {
		if skipChanged {
			item.Result = SmartResultSkipped
			return item
		}
		item.Result = SmartResultAllocationFailed
		item.Error = fmt.Sprintf("工单不在待分单状态: %s", assignment.Status)
		return item
	}

	candidates, err := s.buildCandidates(ctx, assignment)
	if err != nil {
		item.Result = SmartResultAllocationFailed
		item.Error = err.Error()
		return item
	}
	if len(candidates) == 0 {
		item.Result = SmartResultNoCandidates
		return item
	}

	suggestion, err := s.suggester.Suggest(ctx, buildSuggestContext(assignment, candidates))
	if err != nil {
		item.Result = SmartResultInvalidSuggestion
		item.Error = err.Error()
		return item
	}

	// 成员校验：推荐对象必须在本地筛出的候选集合内
	chosen := findCandidate(candidates, suggestion.AdvocateID)
	if chosen == nil {
		item.Result = SmartResultInvalidSuggestion
		item.Error = fmt.Sprintf("推荐的律师 %s 不在候选集合内", suggestion.AdvocateID)
		return item
	}

	now := time.Now()
	if err := ApplyTransition(assignment, model.StatusAllocated, now); err != nil {
		item.Result = SmartResultAllocationFailed
		item.Error = err.Error()
		return item
	}
	assignment.AdvocateID = &chosen.Advocate.AdvocateID
	assignment.UpdatedBy = &actor.ID

	entry := &model.AuditEntry{
		AssignmentID: assignment.AssignmentID,
		Action:       model.ActionAllocated,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Detail:       fmt.Sprintf("智能分单分派给 %s: %s", chosen.Advocate.Name, suggestion.Reason),
		Metadata: model.JSONMap{
			"mode":       "smart",
			"confidence": suggestion.Confidence,
			"factors":    suggestion.Factors,
		},
	}
	// 轨迹与分单同事务写入：即便后续核验不通过，已落库的分单也有轨迹可查
	if err := s.repo.Assignment.UpdateWithAudit(ctx, assignment, entry); err != nil {
		item.Result = SmartResultAllocationFailed
		item.Error = err.Error()
		return item
	}

	// 回读核验：确认落库结果与推荐一致后才算成功
	fresh, err := s.repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		item.Result = SmartResultVerificationFailed
		item.Error = err.Error()
		return item
	}
	if fresh.Status != model.StatusAllocated ||
		fresh.AdvocateID == nil || *fresh.AdvocateID != chosen.Advocate.AdvocateID {
		item.Result = SmartResultVerificationFailed
		item.Error = "回读结果与推荐不一致"
		return item
	}

	s.publisher.Publish(ctx, queue.EventAllocated, &queue.Event{
		AssignmentID: assignment.AssignmentID,
		RefCode:      assignment.RefCode,
		Status:       assignment.Status,
		AdvocateID:   chosen.Advocate.AdvocateID,
		ActorID:      actor.ID,
		Detail:       suggestion.Reason,
		OccurredAt:   now,
	})

	item.Result = SmartResultOK
	item.AdvocateID = chosen.Advocate.AdvocateID
	item.Confidence = suggestion.Confidence
	return item
}

// buildCandidates 本地候选集合：在岗、在办量未达上限、覆盖标的属地
func (s *smartAllocationService) buildCandidates(ctx context.Context, assignment *model.Assignment) ([]Candidate, error) {
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
		if load >= s.alloc.DefaultCap {
			continue
		}
		score, eligible := ScoreMatch(assignment, &advocates[i], load, StrategySubjectLocation)
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

func buildSuggestContext(a *model.Assignment, candidates []Candidate) *dto.SuggestContext {
	sctx := &dto.SuggestContext{
		AssignmentID:      a.AssignmentID,
		RefCode:           a.RefCode,
		Title:             a.Title,
		Category:          a.Category,
		Priority:          a.Priority,
		Scope:             a.Scope,
		SubjectState:      a.SubjectState,
		SubjectDistrict:   a.SubjectDistrict,
		RequesterState:    a.RequesterState,
		RequesterDistrict: a.RequesterDistrict,
		Candidates:        make([]dto.SuggestCandidate, 0, len(candidates)),
	}
	for _, c := range candidates {
		sctx.Candidates = append(sctx.Candidates, dto.SuggestCandidate{
			AdvocateID:      c.Advocate.AdvocateID,
			Name:            c.Advocate.Name,
			CoverageStates:  c.Advocate.CoverageStates,
			Specializations: c.Advocate.Specializations,
			ReputationTags:  c.Advocate.ReputationTags,
			ActiveLoad:      c.ActiveLoad,
			BaseScore:       c.Score,
		})
	}
	return sctx
}

func findCandidate(candidates []Candidate, advocateID string) *Candidate {
	for i := range candidates {
		if candidates[i].Advocate.AdvocateID == advocateID {
			return &candidates[i]
		}
	}
	return nil
}
