package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"titleflow/backend/config"
	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/model"
	"titleflow/backend/pkg/keylock"
)

// fakeSuggester 按调用顺序返回预设结果
type fakeSuggester struct {
	responses []suggestResponse
	calls     int
	contexts  []*dto.SuggestContext
}

type suggestResponse struct {
	suggestion *dto.Suggestion
	err        error
}

func (f *fakeSuggester) Suggest(_ context.Context, sctx *dto.SuggestContext) (*dto.Suggestion, error) {
	f.contexts = append(f.contexts, sctx)
	if f.calls >= len(f.responses) {
		return nil, fmt.Errorf("意外的第 %d 次调用", f.calls+1)
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp.suggestion, resp.err
}

func newSmartTestEnv(t *testing.T, suggester Suggester) (SmartAllocationService, *mockAssignmentRepo, *mockAdvocateRepo, *mockAuditRepo) {
	t.Helper()
	repo, assignments, advocates, audits := newTestRepo()
	workload := NewWorkloadTracker(repo.Assignment, repo.Advocate)
	svc := NewSmartAllocationService(repo, workload, keylock.New(), suggester, nil,
		&config.AllocConfig{DefaultCap: 5, BrowseCap: 3},
		&config.ScoringConfig{CallInterval: 0}, // 测试不等待
		zap.NewNop())
	return svc, assignments, advocates, audits
}

func TestSmartAllocate_MixedBatch(t *testing.T) {
	// 第 2 条推荐的律师不在候选集合内，其余两条正常
	suggester := &fakeSuggester{responses: []suggestResponse{
		{suggestion: &dto.Suggestion{AdvocateID: "adv-1", Confidence: 8, Reason: "覆盖标的邦且在办量低"}},
		{suggestion: &dto.Suggestion{AdvocateID: "adv-ghost", Confidence: 9, Reason: "幻觉推荐"}},
		{suggestion: &dto.Suggestion{AdvocateID: "adv-1", Confidence: 7, Reason: "覆盖标的邦"}},
	}}
	svc, assignments, advocates, audits := newSmartTestEnv(t, suggester)

	seedAdvocate(t, advocates, "adv-1", "Meera Kulkarni", []string{"Maharashtra"}, []string{"Pune"})

	ids := make([]string, 3)
	for i := range ids {
		ids[i] = seedAssignment(t, assignments, fmt.Sprintf("TS-2026-00000%d", i+1)).AssignmentID
	}

	var progressCalls int
	summary, err := svc.AllocateBatch(context.Background(), ids, testActor,
		func(done, total int, _ dto.SmartAllocationItemResult) {
			progressCalls++
			if done != progressCalls || total != 3 {
				t.Errorf("进度回调参数异常: done=%d total=%d", done, total)
			}
		})
	if err != nil {
		t.Fatalf("批次不应整体失败: %v", err)
	}

	if summary.Total != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("期望 3/2/1，实际 %d/%d/%d", summary.Total, summary.Succeeded, summary.Failed)
	}
	if progressCalls != 3 {
		t.Errorf("进度回调应调用 3 次，实际 %d", progressCalls)
	}

	if summary.Items[0].Result != SmartResultOK || summary.Items[2].Result != SmartResultOK {
		t.Error("第 1、3 条应成功")
	}
	if summary.Items[1].Result != SmartResultInvalidSuggestion {
		t.Errorf("第 2 条应为 invalid_suggestion，实际 %s", summary.Items[1].Result)
	}

	// 失败条目不落库、不写轨迹
	fresh, _ := assignments.GetByID(context.Background(), ids[1])
	if fresh.Status != model.StatusPendingAllocation {
		t.Error("失败条目应保持待分单")
	}
	if got := audits.byAction(ids[1], model.ActionAllocated); got != 0 {
		t.Errorf("失败条目不应有分单轨迹，实际 %d 条", got)
	}
	if got := audits.byAction(ids[0], model.ActionAllocated); got != 1 {
		t.Errorf("成功条目应有 1 条分单轨迹，实际 %d", got)
	}
}

func TestSmartAllocate_SuggestError(t *testing.T) {
	suggester := &fakeSuggester{responses: []suggestResponse{
		{err: errors.New("评分服务返回状态 503")},
	}}
	svc, assignments, advocates, _ := newSmartTestEnv(t, suggester)

	seedAdvocate(t, advocates, "adv-1", "Meera Kulkarni", []string{"Maharashtra"}, []string{"Pune"})
	id := seedAssignment(t, assignments, "TS-2026-000001").AssignmentID

	summary, err := svc.AllocateBatch(context.Background(), []string{id}, testActor, nil)
	if err != nil {
		t.Fatalf("批次不应整体失败: %v", err)
	}
	if summary.Items[0].Result != SmartResultInvalidSuggestion {
		t.Errorf("外部服务出错应判 invalid_suggestion，实际 %s", summary.Items[0].Result)
	}
}

func TestSmartAllocate_NoCandidates(t *testing.T) {
	suggester := &fakeSuggester{}
	svc, assignments, advocates, _ := newSmartTestEnv(t, suggester)

	// 唯一律师不覆盖标的邦
	seedAdvocate(t, advocates, "adv-1", "Meera Kulkarni", []string{"Karnataka"}, nil)
	id := seedAssignment(t, assignments, "TS-2026-000001").AssignmentID

	summary, err := svc.AllocateBatch(context.Background(), []string{id}, testActor, nil)
	if err != nil {
		t.Fatalf("批次不应整体失败: %v", err)
	}
	if summary.Items[0].Result != SmartResultNoCandidates {
		t.Errorf("期望 no_candidates，实际 %s", summary.Items[0].Result)
	}
	if suggester.calls != 0 {
		t.Error("无候选人时不应调用外部服务")
	}
}

func TestSmartAllocate_Cancellation(t *testing.T) {
	suggester := &fakeSuggester{responses: []suggestResponse{
		{suggestion: &dto.Suggestion{AdvocateID: "adv-1", Confidence: 8}},
		{suggestion: &dto.Suggestion{AdvocateID: "adv-1", Confidence: 8}},
		{suggestion: &dto.Suggestion{AdvocateID: "adv-1", Confidence: 8}},
	}}
	svc, assignments, advocates, _ := newSmartTestEnv(t, suggester)

	seedAdvocate(t, advocates, "adv-1", "Meera Kulkarni", []string{"Maharashtra"}, []string{"Pune"})
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = seedAssignment(t, assignments, fmt.Sprintf("TS-2026-00000%d", i+1)).AssignmentID
	}

	ctx, cancel := context.WithCancel(context.Background())
	summary, err := svc.AllocateBatch(ctx, ids, testActor,
		func(done, _ int, _ dto.SmartAllocationItemResult) {
			if done == 1 {
				cancel()
			}
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际 %v", err)
	}
	// 已完成部分保留，后续条目未处理
	if summary.Succeeded != 1 || len(summary.Items) != 1 {
		t.Errorf("取消后应只保留已完成的 1 条，实际 succeeded=%d items=%d",
			summary.Succeeded, len(summary.Items))
	}
	fresh, _ := assignments.GetByID(context.Background(), ids[2])
	if fresh.Status != model.StatusPendingAllocation {
		t.Error("未处理的工单应保持待分单")
	}
}

func TestSmartAllocate_VerificationFailed(t *testing.T) {
	suggester := &fakeSuggester{responses: []suggestResponse{
		{suggestion: &dto.Suggestion{AdvocateID: "adv-1", Confidence: 8}},
	}}
	svc, assignments, advocates, audits := newSmartTestEnv(t, suggester)

	seedAdvocate(t, advocates, "adv-1", "Meera Kulkarni", []string{"Maharashtra"}, []string{"Pune"})
	seedAdvocate(t, advocates, "adv-2", "Rahul Joshi", []string{"Maharashtra"}, nil)
	id := seedAssignment(t, assignments, "TS-2026-000001").AssignmentID

	// 模拟落库后被第三方改写：回读时承办人已不是推荐对象
	other := "adv-2"
	assignments.afterUpdate = func(a *model.Assignment) {
		assignments.mu.Lock()
		assignments.byID[a.AssignmentID].AdvocateID = &other
		assignments.mu.Unlock()
	}

	summary, err := svc.AllocateBatch(context.Background(), []string{id}, testActor, nil)
	if err != nil {
		t.Fatalf("批次不应整体失败: %v", err)
	}
	if summary.Items[0].Result != SmartResultVerificationFailed {
		t.Errorf("期望 verification_failed，实际 %s", summary.Items[0].Result)
	}
	// 轨迹与分单同事务写入：分单已落库，核验失败也要有轨迹可查
	if got := audits.byAction(id, model.ActionAllocated); got != 1 {
		t.Errorf("已落库的分单应有 1 条轨迹，实际 %d 条", got)
	}
}

func TestSmartAllocate_DefaultPendingQueue(t *testing.T) {
	suggester := &fakeSuggester{responses: []suggestResponse{
		{suggestion: &dto.Suggestion{AdvocateID: "adv-1", Confidence: 8}},
		{suggestion: &dto.Suggestion{AdvocateID: "adv-1", Confidence: 7}},
	}}
	svc, assignments, advocates, _ := newSmartTestEnv(t, suggester)

	seedAdvocate(t, advocates, "adv-1", "Meera Kulkarni", []string{"Maharashtra"}, []string{"Pune"})
	a1 := seedAssignment(t, assignments, "TS-2026-000001")
	a2 := seedAssignment(t, assignments, "TS-2026-000002")

	// 不指定工单：默认处理全部待分单工单，按创建时间升序
	summary, err := svc.AllocateBatch(context.Background(), nil, testActor, nil)
	if err != nil {
		t.Fatalf("批次失败: %v", err)
	}
	if summary.Total != 2 || summary.Succeeded != 2 {
		t.Errorf("期望 2/2，实际 %d/%d", summary.Total, summary.Succeeded)
	}
	if summary.Items[0].AssignmentID != a1.AssignmentID || summary.Items[1].AssignmentID != a2.AssignmentID {
		t.Error("默认队列应按创建时间升序处理")
	}
}

func TestSmartAllocate_DefaultQueueSkipsChanged(t *testing.T) {
	suggester := &fakeSuggester{responses: []suggestResponse{
		{suggestion: &dto.Suggestion{AdvocateID: "adv-1", Confidence: 8}},
	}}
	svc, assignments, advocates, _ := newSmartTestEnv(t, suggester)

	seedAdvocate(t, advocates, "adv-1", "Meera Kulkarni", []string{"Maharashtra"}, []string{"Pune"})
	a1 := seedAssignment(t, assignments, "TS-2026-000001")
	a2 := seedAssignment(t, assignments, "TS-2026-000002")

	// 处理第 1 条期间第 2 条被别处分走：默认队列记为跳过而非失败
	advID := "adv-1"
	summary, err := svc.AllocateBatch(context.Background(), nil, testActor,
		func(done, _ int, _ dto.SmartAllocationItemResult) {
			if done == 1 {
				assignments.mu.Lock()
				assignments.byID[a2.AssignmentID].Status = model.StatusAllocated
				assignments.byID[a2.AssignmentID].AdvocateID = &advID
				assignments.mu.Unlock()
			}
		})
	if err != nil {
		t.Fatalf("批次失败: %v", err)
	}
	if summary.Succeeded != 1 || summary.Skipped != 1 || summary.Failed != 0 {
		t.Errorf("期望 1 成功 1 跳过 0 失败，实际 %d/%d/%d",
			summary.Succeeded, summary.Skipped, summary.Failed)
	}
	if summary.Items[0].AssignmentID != a1.AssignmentID || summary.Items[0].Result != SmartResultOK {
		t.Errorf("第 1 条应分单成功，实际 %+v", summary.Items[0])
	}
	if summary.Items[1].Result != SmartResultSkipped {
		t.Errorf("状态已变化的工单应为 skipped，实际 %s", summary.Items[1].Result)
	}
	if suggester.calls != 1 {
		t.Errorf("跳过的工单不应调用外部服务，实际调用 %d 次", suggester.calls)
	}
}

func TestSmartAllocate_ContextSnapshot(t *testing.T) {
	suggester := &fakeSuggester{responses: []suggestResponse{
		{suggestion: &dto.Suggestion{AdvocateID: "adv-1", Confidence: 8}},
	}}
	svc, assignments, advocates, _ := newSmartTestEnv(t, suggester)

	seedAdvocate(t, advocates, "adv-1", "Meera Kulkarni", []string{"Maharashtra"}, []string{"Pune"})
	seedAdvocate(t, advocates, "adv-far", "Anita Desai", []string{"Kerala"}, nil)
	id := seedAssignment(t, assignments, "TS-2026-000001").AssignmentID

	if _, err := svc.AllocateBatch(context.Background(), []string{id}, testActor, nil); err != nil {
		t.Fatalf("批次失败: %v", err)
	}

	if len(suggester.contexts) != 1 {
		t.Fatalf("应调用外部服务 1 次，实际 %d", len(suggester.contexts))
	}
	sctx := suggester.contexts[0]
	if sctx.SubjectState != "Maharashtra" || sctx.SubjectDistrict != "Pune" {
		t.Error("上下文应携带标的属地")
	}
	// 未入围的律师不进入上下文
	if len(sctx.Candidates) != 1 || sctx.Candidates[0].AdvocateID != "adv-1" {
		t.Errorf("候选集合应只含 adv-1，实际 %+v", sctx.Candidates)
	}
	if sctx.Candidates[0].BaseScore != 180 {
		t.Errorf("本地基准分应为 180，实际 %d", sctx.Candidates[0].BaseScore)
	}
}
