package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"titleflow/backend/internal/model"
	"titleflow/backend/internal/repository"
	pkgerrors "titleflow/backend/pkg/errors"
)

// ── 内存版 Repository，供服务层单元测试使用 ──

type mockAssignmentRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Assignment
	docs []model.AssignmentDocument
	seq  int64

	// audits 供 UpdateWithAudit 模拟同事务写轨迹
	audits *mockAuditRepo

	// afterUpdate 在 Update 落库后调用，用于注入并发写等异常场景
	afterUpdate func(a *model.Assignment)
}

func newMockAssignmentRepo(audits *mockAuditRepo) *mockAssignmentRepo {
	return &mockAssignmentRepo{byID: make(map[string]*model.Assignment), audits: audits}
}

func copyAssignment(a *model.Assignment) *model.Assignment {
	cp := *a
	return &cp
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.AssignmentID == "" {
		a.AssignmentID = fmt.Sprintf("assignment-%d", len(m.byID)+1)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Version == 0 {
		a.Version = 1
	}
	m.byID[a.AssignmentID] = copyAssignment(a)
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyAssignment(a), nil
}

func (m *mockAssignmentRepo) List(_ context.Context, filter repository.AssignmentFilter, offset, limit int) ([]model.Assignment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Assignment
	for _, a := range m.byID {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.RequesterID != "" && a.RequesterID != filter.RequesterID {
			continue
		}
		if filter.AdvocateID != "" && (a.AdvocateID == nil || *a.AdvocateID != filter.AdvocateID) {
			continue
		}
		all = append(all, *copyAssignment(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockAssignmentRepo) ListPending(_ context.Context) ([]model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []model.Assignment
	for _, a := range m.byID {
		if a.Status == model.StatusPendingAllocation {
			pending = append(pending, *copyAssignment(a))
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].RefCode < pending[j].RefCode
	})
	return pending, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *model.Assignment) error {
	m.mu.Lock()
	stored, ok := m.byID[a.AssignmentID]
	if !ok || stored.Version != a.Version {
		m.mu.Unlock()
		return pkgerrors.ErrOptimisticLock
	}
	a.Version++
	m.byID[a.AssignmentID] = copyAssignment(a)
	hook := m.afterUpdate
	m.mu.Unlock()

	if hook != nil {
		hook(a)
	}
	return nil
}

// UpdateWithAudit 模拟同事务语义：轨迹写入失败时工单也不落库
func (m *mockAssignmentRepo) UpdateWithAudit(ctx context.Context, a *model.Assignment, entry *model.AuditEntry) error {
	m.audits.mu.Lock()
	createErr := m.audits.createErr
	m.audits.mu.Unlock()
	if createErr != nil {
		return createErr
	}
	if err := m.Update(ctx, a); err != nil {
		return err
	}
	return m.audits.Create(ctx, entry)
}

func (m *mockAssignmentRepo) CountActiveByAdvocate(_ context.Context, advocateID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, a := range m.byID {
		if a.AdvocateID != nil && *a.AdvocateID == advocateID && model.IsActiveStatus(a.Status) {
			count++
		}
	}
	return count, nil
}

func (m *mockAssignmentRepo) NextRefSeq(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq, nil
}

func (m *mockAssignmentRepo) AddDocument(_ context.Context, doc *model.AssignmentDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.DocumentID == "" {
		doc.DocumentID = fmt.Sprintf("doc-%d", len(m.docs)+1)
	}
	m.docs = append(m.docs, *doc)
	return nil
}

func (m *mockAssignmentRepo) CountDocuments(_ context.Context, assignmentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, d := range m.docs {
		if d.AssignmentID == assignmentID {
			count++
		}
	}
	return count, nil
}

type mockAdvocateRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Advocate
}

func newMockAdvocateRepo() *mockAdvocateRepo {
	return &mockAdvocateRepo{byID: make(map[string]*model.Advocate)}
}

func (m *mockAdvocateRepo) Create(_ context.Context, a *model.Advocate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.AdvocateID == "" {
		a.AdvocateID = fmt.Sprintf("advocate-%d", len(m.byID)+1)
	}
	if a.Version == 0 {
		a.Version = 1
	}
	cp := *a
	m.byID[a.AdvocateID] = &cp
	return nil
}

func (m *mockAdvocateRepo) GetByID(_ context.Context, id string) (*model.Advocate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAdvocateRepo) List(_ context.Context, onlyActive bool) ([]model.Advocate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Advocate
	for _, a := range m.byID {
		if onlyActive && !a.IsActive {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockAdvocateRepo) ListActive(ctx context.Context) ([]model.Advocate, error) {
	return m.List(ctx, true)
}

func (m *mockAdvocateRepo) Update(_ context.Context, a *model.Advocate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[a.AdvocateID]
	if !ok || stored.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version++
	cp := *a
	m.byID[a.AdvocateID] = &cp
	return nil
}

func (m *mockAdvocateRepo) Delete(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		a.IsActive = false
	}
	return nil
}

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditEntry

	// createErr 非空时写轨迹失败，用于验证事务回滚路径
	createErr error
}

func newMockAuditRepo() *mockAuditRepo {
	return &mockAuditRepo{}
}

func (m *mockAuditRepo) Create(_ context.Context, e *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if e.EntryID == "" {
		e.EntryID = fmt.Sprintf("entry-%d", len(m.entries)+1)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockAuditRepo) ListByAssignment(_ context.Context, assignmentID string) ([]model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AuditEntry
	for _, e := range m.entries {
		if e.AssignmentID == assignmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// byAction 返回指定工单下某动作的轨迹条数
func (m *mockAuditRepo) byAction(assignmentID, action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.entries {
		if e.AssignmentID == assignmentID && e.Action == action {
			count++
		}
	}
	return count
}

type mockHubRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Hub
}

func newMockHubRepo() *mockHubRepo {
	return &mockHubRepo{byID: make(map[string]*model.Hub)}
}

func (m *mockHubRepo) Create(_ context.Context, h *model.Hub) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.HubID == "" {
		h.HubID = fmt.Sprintf("hub-%d", len(m.byID)+1)
	}
	cp := *h
	m.byID[h.HubID] = &cp
	return nil
}

func (m *mockHubRepo) GetByID(_ context.Context, id string) (*model.Hub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *mockHubRepo) List(_ context.Context, onlyActive bool) ([]model.Hub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Hub
	for _, h := range m.byID {
		if onlyActive && !h.IsActive {
			continue
		}
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockHubRepo) Update(_ context.Context, h *model.Hub) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *h
	m.byID[h.HubID] = &cp
	return nil
}

func (m *mockHubRepo) Delete(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

type mockUserRepo struct {
	mu   sync.Mutex
	byID map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.UserID == "" {
		u.UserID = fmt.Sprintf("user-%d", len(m.byID)+1)
	}
	cp := *u
	m.byID[u.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.byID[u.UserID] = &cp
	return nil
}

// newTestRepo 组装全内存 Repository
func newTestRepo() (*repository.Repository, *mockAssignmentRepo, *mockAdvocateRepo, *mockAuditRepo) {
	audits := newMockAuditRepo()
	assignments := newMockAssignmentRepo(audits)
	advocates := newMockAdvocateRepo()
	repo := &repository.Repository{
		User:       newMockUserRepo(),
		Hub:        newMockHubRepo(),
		Advocate:   advocates,
		Assignment: assignments,
		Audit:      audits,
	}
	return repo, assignments, advocates, audits
}
