package service

import (
	"errors"
	"fmt"
	"time"

	"titleflow/backend/internal/model"
)

// ErrInvalidTransition 非法状态流转：目标状态不在当前状态的后继集合内
var ErrInvalidTransition = errors.New("非法的工单状态流转")

// allowedTransitions 工单状态流转表。
// pending_allocation 为初始态，closed 为终态。
// 同状态流转（target == current）一律拒绝：流转必须是真实的状态变化；
// 改派不改变状态，是独立操作而非状态流转。
var allowedTransitions = map[string][]string{
	model.StatusPendingAllocation: {model.StatusAllocated},
	model.StatusAllocated:         {model.StatusInProgress},
	model.StatusInProgress:        {model.StatusQueryRaised, model.StatusCompleted},
	model.StatusQueryRaised:       {model.StatusInProgress},
	model.StatusCompleted:         {model.StatusUnderReview},
	model.StatusUnderReview:       {model.StatusInProgress, model.StatusClosed},
	model.StatusClosed:            {},
}

// CanTransition 判断从 from 到 to 的流转是否合法
func CanTransition(from, to string) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ApplyTransition 校验并应用状态流转。
// 成功时就地修改 status 并按需打里程碑时间戳；时间戳只写一次、只前进。
// 本函数不写操作轨迹：轨迹的描述文案因操作缘由而异，由调用方负责。
func ApplyTransition(a *model.Assignment, target string, now time.Time) error {
	if !CanTransition(a.Status, target) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, a.Status, target)
	}

	a.Status = target

	switch target {
	case model.StatusAllocated:
		if a.AllocatedAt == nil {
			a.AllocatedAt = &now
		}
	case model.StatusCompleted:
		if a.CompletedAt == nil {
			a.CompletedAt = &now
		}
	case model.StatusClosed:
		if a.ClosedAt == nil {
			a.ClosedAt = &now
		}
	}

	return nil
}
