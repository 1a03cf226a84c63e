package service

import (
	"context"

	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/repository"
)

// WorkloadTracker 承办律师在办量推导器。
// 在办量永不落库：每次都按在办状态集合对 assignments 实时统计，
// 工单记录是唯一事实来源，不存在计数器漂移问题。
type WorkloadTracker struct {
	assignments repository.AssignmentRepository
	advocates   repository.AdvocateRepository
}

// NewWorkloadTracker 创建在办量推导器
func NewWorkloadTracker(assignments repository.AssignmentRepository, advocates repository.AdvocateRepository) *WorkloadTracker {
	return &WorkloadTracker{assignments: assignments, advocates: advocates}
}

// ActiveLoad 返回承办律师当前的在办工单数
func (w *WorkloadTracker) ActiveLoad(ctx context.Context, advocateID string) (int, error) {
	count, err := w.assignments.CountActiveByAdvocate(ctx, advocateID)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Overview 返回全部在岗承办律师的在办量，供运营侧巡检
func (w *WorkloadTracker) Overview(ctx context.Context) ([]dto.AdvocateLoadResponse, error) {
	advocates, err := w.advocates.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AdvocateLoadResponse, 0, len(advocates))
	for i := range advocates {
		load, err := w.ActiveLoad(ctx, advocates[i].AdvocateID)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.AdvocateLoadResponse{
			AdvocateID: advocates[i].AdvocateID,
			Name:       advocates[i].Name,
			ActiveLoad: load,
		})
	}
	return out, nil
}
