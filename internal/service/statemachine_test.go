package service

import (
	"errors"
	"testing"
	"time"

	"titleflow/backend/internal/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{model.StatusPendingAllocation, model.StatusAllocated, true},
		{model.StatusAllocated, model.StatusInProgress, true},
		{model.StatusInProgress, model.StatusQueryRaised, true},
		{model.StatusInProgress, model.StatusCompleted, true},
		{model.StatusQueryRaised, model.StatusInProgress, true},
		{model.StatusCompleted, model.StatusUnderReview, true},
		{model.StatusUnderReview, model.StatusClosed, true},
		{model.StatusUnderReview, model.StatusInProgress, true},

		// 跳级与回退
		{model.StatusPendingAllocation, model.StatusCompleted, false},
		{model.StatusPendingAllocation, model.StatusInProgress, false},
		{model.StatusAllocated, model.StatusCompleted, false},
		{model.StatusCompleted, model.StatusInProgress, false},
		{model.StatusClosed, model.StatusInProgress, false},
		{model.StatusClosed, model.StatusAllocated, false},

		// 同状态流转一律拒绝
		{model.StatusInProgress, model.StatusInProgress, false},
		{model.StatusClosed, model.StatusClosed, false},
		{model.StatusPendingAllocation, model.StatusPendingAllocation, false},

		// 未知状态
		{"unknown", model.StatusAllocated, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v，期望 %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestApplyTransition_Timestamps(t *testing.T) {
	now := time.Now()
	a := &model.Assignment{Status: model.StatusPendingAllocation}

	if err := ApplyTransition(a, model.StatusAllocated, now); err != nil {
		t.Fatalf("流转失败: %v", err)
	}
	if a.Status != model.StatusAllocated {
		t.Errorf("期望状态 allocated，实际 %s", a.Status)
	}
	if a.AllocatedAt == nil || !a.AllocatedAt.Equal(now) {
		t.Error("AllocatedAt 应被写入")
	}
	if a.CompletedAt != nil || a.ClosedAt != nil {
		t.Error("其余里程碑时间戳不应被写入")
	}
}

func TestApplyTransition_TimestampWriteOnce(t *testing.T) {
	first := time.Now().Add(-time.Hour)
	a := &model.Assignment{Status: model.StatusInProgress, AllocatedAt: &first}

	// 返工后再次交付：CompletedAt 保留首次交付时间
	t1 := time.Now().Add(-30 * time.Minute)
	if err := ApplyTransition(a, model.StatusCompleted, t1); err != nil {
		t.Fatalf("流转失败: %v", err)
	}
	if err := ApplyTransition(a, model.StatusUnderReview, time.Now()); err != nil {
		t.Fatalf("流转失败: %v", err)
	}
	if err := ApplyTransition(a, model.StatusInProgress, time.Now()); err != nil {
		t.Fatalf("流转失败: %v", err)
	}
	t2 := time.Now()
	if err := ApplyTransition(a, model.StatusCompleted, t2); err != nil {
		t.Fatalf("流转失败: %v", err)
	}

	if !a.CompletedAt.Equal(t1) {
		t.Errorf("CompletedAt 应保留首次写入值 %v，实际 %v", t1, *a.CompletedAt)
	}
	if !a.AllocatedAt.Equal(first) {
		t.Error("AllocatedAt 不应被改写")
	}
}

func TestApplyTransition_Invalid(t *testing.T) {
	a := &model.Assignment{Status: model.StatusPendingAllocation}

	err := ApplyTransition(a, model.StatusCompleted, time.Now())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("期望 ErrInvalidTransition，实际 %v", err)
	}
	if a.Status != model.StatusPendingAllocation {
		t.Error("失败的流转不应改动状态")
	}
	if a.CompletedAt != nil {
		t.Error("失败的流转不应写时间戳")
	}
}
