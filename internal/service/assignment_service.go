package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/geo"
	"titleflow/backend/internal/model"
	"titleflow/backend/internal/queue"
	"titleflow/backend/internal/repository"
	"titleflow/backend/pkg/keylock"
)

var (
	ErrHubNotFound        = errors.New("网点不存在")
	ErrInvalidLocation    = errors.New("邦或地区不存在")
	ErrDocumentNotAllowed = errors.New("当前状态不允许登记工作成果文档")
)

// AssignmentService 工单生命周期服务接口
type AssignmentService interface {
	Create(ctx context.Context, req *dto.CreateAssignmentRequest, actor Actor) (*dto.AssignmentResponse, error)
	Get(ctx context.Context, id string) (*dto.AssignmentResponse, error)
	List(ctx context.Context, req *dto.ListAssignmentsRequest) ([]dto.AssignmentResponse, int64, error)
	// History 返回工单的完整操作轨迹，按时间升序
	History(ctx context.Context, id string) ([]dto.AuditEntryResponse, error)
	// AddDocument 登记工作成果文档元数据。
	// 已分单工单收到首份文档时自动进入办理中。
	AddDocument(ctx context.Context, id string, req *dto.AddDocumentRequest, actor Actor) (*dto.AssignmentResponse, error)
	// RaiseQuery 承办律师就材料缺口提出质询
	RaiseQuery(ctx context.Context, id string, req *dto.QueryRequest, actor Actor) (*dto.AssignmentResponse, error)
	// RespondQuery 委托方澄清质询，工单回到办理中
	RespondQuery(ctx context.Context, id string, req *dto.QueryRequest, actor Actor) (*dto.AssignmentResponse, error)
	// MarkComplete 承办律师交付成果
	MarkComplete(ctx context.Context, id string, actor Actor) (*dto.AssignmentResponse, error)
	// StartReview 运营开始复核
	StartReview(ctx context.Context, id string, actor Actor) (*dto.AssignmentResponse, error)
	// Review 复核结论：approve 结案，rework 退回返工
	Review(ctx context.Context, id string, req *dto.ReviewRequest, actor Actor) (*dto.AssignmentResponse, error)
	// Import 从 Excel 批量创建工单，逐行独立成败
	Import(ctx context.Context, r io.Reader, actor Actor) (*dto.ImportSummaryResponse, error)
}

type assignmentService struct {
	repo      *repository.Repository
	locks     *keylock.KeyedMutex
	publisher *queue.Publisher
	logger    *zap.Logger
}

// NewAssignmentService 创建工单生命周期服务
func NewAssignmentService(
	repo *repository.Repository,
	locks *keylock.KeyedMutex,
	publisher *queue.Publisher,
	logger *zap.Logger,
) AssignmentService {
	return &assignmentService{
		repo:      repo,
		locks:     locks,
		publisher: publisher,
		logger:    logger,
	}
}

// ════════════════════════════════════════
//  创建与查询
// ════════════════════════════════════════

func (s *assignmentService) Create(ctx context.Context, req *dto.CreateAssignmentRequest, actor Actor) (*dto.AssignmentResponse, error) {
	if !geo.IsValidState(req.SubjectState) || !geo.IsValidDistrict(req.SubjectState, req.SubjectDistrict) {
		return nil, fmt.Errorf("%w: %s / %s", ErrInvalidLocation, req.SubjectState, req.SubjectDistrict)
	}
	// 委托方属地可留空；填写时要求完整且合法
	if req.RequesterState != "" {
		if !geo.IsValidState(req.RequesterState) || !geo.IsValidDistrict(req.RequesterState, req.RequesterDistrict) {
			return nil, fmt.Errorf("%w: %s / %s", ErrInvalidLocation, req.RequesterState, req.RequesterDistrict)
		}
	}

	var hubID *string
	if req.HubID != "" {
		hub, err := s.repo.Hub.GetByID(ctx, req.HubID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrHubNotFound
			}
			return nil, fmt.Errorf("查询网点失败: %w", err)
		}
		hubID = &hub.HubID
	}

	seq, err := s.repo.Assignment.NextRefSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成工单编号失败: %w", err)
	}
	refCode := fmt.Sprintf("TS-%d-%06d", time.Now().Year(), seq)

	assignment := &model.Assignment{
		RefCode:           refCode,
		Title:             req.Title,
		Category:          req.Category,
		Priority:          defaultString(req.Priority, model.PriorityNormal),
		Scope:             defaultString(req.Scope, model.ScopeStandard),
		Status:            model.StatusPendingAllocation,
		SubjectAddress:    req.SubjectAddress,
		SubjectState:      req.SubjectState,
		SubjectDistrict:   req.SubjectDistrict,
		RequesterState:    req.RequesterState,
		RequesterDistrict: req.RequesterDistrict,
		RequesterID:       actor.ID,
		HubID:             hubID,
	}
	assignment.CreatedBy = &actor.ID

	if err := s.repo.Assignment.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("创建工单失败: %w", err)
	}

	entry := &model.AuditEntry{
		AssignmentID: assignment.AssignmentID,
		Action:       model.ActionCreated,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Detail:       fmt.Sprintf("工单创建: %s", refCode),
	}
	if err := s.repo.Audit.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("写入操作轨迹失败: %w", err)
	}

	s.logger.Info("工单已创建",
		zap.String("assignment_id", assignment.AssignmentID),
		zap.String("ref_code", refCode),
		zap.String("requester_id", actor.ID),
	)
	return dto.NewAssignmentResponse(assignment), nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (s *assignmentService) Get(ctx context.Context, id string) (*dto.AssignmentResponse, error) {
	assignment, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("查询工单失败: %w", err)
	}
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) List(ctx context.Context, req *dto.ListAssignmentsRequest) ([]dto.AssignmentResponse, int64, error) {
	filter := repository.AssignmentFilter{
		Status:      req.Status,
		RequesterID: req.RequesterID,
		AdvocateID:  req.AdvocateID,
		HubID:       req.HubID,
	}

	assignments, total, err := s.repo.Assignment.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, fmt.Errorf("查询工单列表失败: %w", err)
	}

	out := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		out = append(out, *dto.NewAssignmentResponse(&assignments[i]))
	}
	return out, total, nil
}

func (s *assignmentService) History(ctx context.Context, id string) ([]dto.AuditEntryResponse, error) {
	if _, err := s.repo.Assignment.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("查询工单失败: %w", err)
	}

	entries, err := s.repo.Audit.ListByAssignment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询操作轨迹失败: %w", err)
	}

	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AuditEntryResponse{
			EntryID:   e.EntryID,
			Action:    e.Action,
			ActorID:   e.ActorID,
			ActorRole: e.ActorRole,
			Detail:    e.Detail,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out, nil
}

// ════════════════════════════════════════
//  状态流转
// ════════════════════════════════════════

// transition 通用流转：锁内读-校验-改-写，成功后写轨迹并发布事件。
// 流转被拒绝时不产生任何轨迹记录。
func (s *assignmentService) transition(ctx context.Context, id, target string, actor Actor, action, detail string) (*model.Assignment, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	assignment, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("查询工单失败: %w", err)
	}

	now := time.Now()
	if err := ApplyTransition(assignment, target, now); err != nil {
		return nil, err
	}
	assignment.UpdatedBy = &actor.ID

	entry := &model.AuditEntry{
		AssignmentID: assignment.AssignmentID,
		Action:       action,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Detail:       detail,
	}
	// 状态变更与轨迹同事务落库，不允许出现有变更无轨迹的工单
	if err := s.repo.Assignment.UpdateWithAudit(ctx, assignment, entry); err != nil {
		return nil, fmt.Errorf("更新工单失败: %w", err)
	}

	advocateID := ""
	if assignment.AdvocateID != nil {
		advocateID = *assignment.AdvocateID
	}
	s.publisher.Publish(ctx, queue.EventStatusChanged, &queue.Event{
		AssignmentID: assignment.AssignmentID,
		RefCode:      assignment.RefCode,
		Status:       assignment.Status,
		AdvocateID:   advocateID,
		ActorID:      actor.ID,
		Detail:       detail,
		OccurredAt:   now,
	})

	return assignment, nil
}

func (s *assignmentService) RaiseQuery(ctx context.Context, id string, req *dto.QueryRequest, actor Actor) (*dto.AssignmentResponse, error) {
	assignment, err := s.transition(ctx, id, model.StatusQueryRaised, actor,
		model.ActionQueryRaised, fmt.Sprintf("提出质询: %s", req.Detail))
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) RespondQuery(ctx context.Context, id string, req *dto.QueryRequest, actor Actor) (*dto.AssignmentResponse, error) {
	assignment, err := s.transition(ctx, id, model.StatusInProgress, actor,
		model.ActionQueryResponded, fmt.Sprintf("质询已澄清: %s", req.Detail))
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) MarkComplete(ctx context.Context, id string, actor Actor) (*dto.AssignmentResponse, error) {
	assignment, err := s.transition(ctx, id, model.StatusCompleted, actor,
		model.ActionCompleted, "承办律师交付成果")
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) StartReview(ctx context.Context, id string, actor Actor) (*dto.AssignmentResponse, error) {
	assignment, err := s.transition(ctx, id, model.StatusUnderReview, actor,
		model.ActionReviewStarted, "运营开始复核")
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Review(ctx context.Context, id string, req *dto.ReviewRequest, actor Actor) (*dto.AssignmentResponse, error) {
	var (
		target, action, detail string
	)
	switch req.Outcome {
	case "approve":
		target, action = model.StatusClosed, model.ActionClosed
		detail = defaultString(strings.TrimSpace(req.Detail), "复核通过，结案")
	case "rework":
		target, action = model.StatusInProgress, model.ActionReworked
		detail = defaultString(strings.TrimSpace(req.Detail), "复核退回返工")
	default:
		return nil, fmt.Errorf("未知的复核结论: %q", req.Outcome)
	}

	assignment, err := s.transition(ctx, id, target, actor, action, detail)
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentResponse(assignment), nil
}

// ════════════════════════════════════════
//  工作成果文档
// ════════════════════════════════════════

func (s *assignmentService) AddDocument(ctx context.Context, id string, req *dto.AddDocumentRequest, actor Actor) (*dto.AssignmentResponse, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	assignment, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("查询工单失败: %w", err)
	}
	if !model.IsActiveStatus(assignment.Status) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotAllowed, assignment.Status)
	}

	doc := &model.AssignmentDocument{
		AssignmentID: assignment.AssignmentID,
		FileName:     req.FileName,
		ContentType:  req.ContentType,
		SizeBytes:    req.SizeBytes,
		StorageKey:   req.StorageKey,
		UploadedBy:   actor.ID,
	}
	if err := s.repo.Assignment.AddDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("登记文档失败: %w", err)
	}

	docCount, err := s.repo.Assignment.CountDocuments(ctx, assignment.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("统计文档数失败: %w", err)
	}

	entry := &model.AuditEntry{
		AssignmentID: assignment.AssignmentID,
		Action:       model.ActionDocumentAdded,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Detail:       fmt.Sprintf("收到工作成果文档: %s", req.FileName),
	}
	if err := s.repo.Audit.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("写入操作轨迹失败: %w", err)
	}

	// 已分单工单收到首份文档即视为开工；后续文档不再触发流转
	if assignment.Status == model.StatusAllocated && docCount == 1 {
		now := time.Now()
		if err := ApplyTransition(assignment, model.StatusInProgress, now); err != nil {
			return nil, err
		}
		assignment.UpdatedBy = &actor.ID
		autoEntry := &model.AuditEntry{
			AssignmentID: assignment.AssignmentID,
			Action:       model.ActionStatusChanged,
			ActorID:      actor.ID,
			ActorRole:    actor.Role,
			Detail:       "收到首份文档，自动进入办理中",
		}
		if err := s.repo.Assignment.UpdateWithAudit(ctx, assignment, autoEntry); err != nil {
			return nil, fmt.Errorf("更新工单失败: %w", err)
		}
		s.publisher.Publish(ctx, queue.EventStatusChanged, &queue.Event{
			AssignmentID: assignment.AssignmentID,
			RefCode:      assignment.RefCode,
			Status:       assignment.Status,
			ActorID:      actor.ID,
			Detail:       "收到首份文档，自动进入办理中",
			OccurredAt:   now,
		})
	}

	return dto.NewAssignmentResponse(assignment), nil
}

// ════════════════════════════════════════
//  Excel 批量导入
// ════════════════════════════════════════

// importColumns 导入模板的固定列顺序
var importColumns = []string{
	"title", "category", "priority", "scope",
	"subject_address", "subject_state", "subject_district",
	"requester_state", "requester_district",
}

func (s *assignmentService) Import(ctx context.Context, r io.Reader, actor Actor) (*dto.ImportSummaryResponse, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("打开 Excel 文件失败: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel 文件没有数据行")
	}

	summary := &dto.ImportSummaryResponse{Total: len(rows) - 1}
	for i, row := range rows[1:] { // 跳过表头
		rowNo := i + 2
		req, err := parseImportRow(row)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("第 %d 行: %v", rowNo, err))
			continue
		}
		if _, err := s.Create(ctx, req, actor); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("第 %d 行: %v", rowNo, err))
			continue
		}
		summary.Succeeded++
	}

	s.logger.Info("Excel 导入完成",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func parseImportRow(row []string) (*dto.CreateAssignmentRequest, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	req := &dto.CreateAssignmentRequest{
		Title:             cell(0),
		Category:          cell(1),
		Priority:          cell(2),
		Scope:             cell(3),
		SubjectAddress:    cell(4),
		SubjectState:      cell(5),
		SubjectDistrict:   cell(6),
		RequesterState:    cell(7),
		RequesterDistrict: cell(8),
	}

	if req.Title == "" {
		return nil, fmt.Errorf("title 不能为空")
	}
	switch req.Category {
	case model.CategoryFullSearch, model.CategoryLimitedSearch, model.CategoryUpdateSearch, model.CategoryLegalOpinion:
	default:
		return nil, fmt.Errorf("未知的工单分类: %q", req.Category)
	}
	if req.SubjectState == "" || req.SubjectDistrict == "" {
		return nil, fmt.Errorf("subject_state / subject_district 不能为空")
	}
	return req, nil
}
