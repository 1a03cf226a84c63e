package service

import (
	"sort"

	"titleflow/backend/internal/model"
)

// ── 分单策略 ──

// Strategy 分单评分策略
type Strategy string

const (
	StrategySubjectLocation   Strategy = "subject_location"   // 标的属地优先
	StrategyRequesterLocation Strategy = "requester_location" // 委托方属地优先
	StrategyHub               Strategy = "hub"                // 网点归属优先
)

// ValidStrategy 判断策略取值是否合法
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategySubjectLocation, StrategyRequesterLocation, StrategyHub:
		return true
	}
	return false
}

// ── 评分 ──

// 评分权重。属地策略以邦匹配为准入门槛，网点策略以同网点为准入门槛。
const (
	scoreStateMatch     = 100
	scoreDistrictMatch  = 50
	scoreSpecialization = 30
	scoreHubMatch       = 20
	scoreHubGate        = 100
	loadPenaltyPerCase  = 10
)

// ScoreMatch 纯函数：计算工单与候选承办律师在指定策略下的匹配得分。
// 返回 eligible=false 表示未通过该策略的准入门槛，此时得分无意义。
func ScoreMatch(a *model.Assignment, adv *model.Advocate, activeLoad int, strategy Strategy) (int, bool) {
	switch strategy {
	case StrategySubjectLocation:
		return locationScore(a, adv, activeLoad, a.SubjectState, a.SubjectDistrict)
	case StrategyRequesterLocation:
		return locationScore(a, adv, activeLoad, a.RequesterState, a.RequesterDistrict)
	case StrategyHub:
		if a.HubID == nil || adv.HomeHubID == nil || *adv.HomeHubID != *a.HubID {
			return 0, false
		}
		score := scoreHubGate
		if adv.Specializations.Contains(a.Category) {
			score += scoreSpecialization
		}
		score -= loadPenaltyPerCase * activeLoad
		return score, true
	}
	return 0, false
}

func locationScore(a *model.Assignment, adv *model.Advocate, activeLoad int, state, district string) (int, bool) {
	// 邦覆盖是硬性门槛
	if state == "" || !adv.CoverageStates.Contains(state) {
		return 0, false
	}

	score := scoreStateMatch
	if district != "" && adv.CoverageDistricts.Contains(district) {
		score += scoreDistrictMatch
	}
	if adv.Specializations.Contains(a.Category) {
		score += scoreSpecialization
	}
	if a.HubID != nil && adv.HomeHubID != nil && *adv.HomeHubID == *a.HubID {
		score += scoreHubMatch
	}
	score -= loadPenaltyPerCase * activeLoad

	return score, true
}

// ── 排序 ──

// Candidate 通过准入门槛且未达在办量上限的候选人
type Candidate struct {
	Advocate   model.Advocate
	Score      int
	ActiveLoad int
}

// sortCandidates 确定性排序：得分降序 → 在办量升序 → 律师ID升序。
// 绝不依赖存储层的返回顺序，保证重复调用结果一致。
func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].ActiveLoad != candidates[j].ActiveLoad {
			return candidates[i].ActiveLoad < candidates[j].ActiveLoad
		}
		return candidates[i].Advocate.AdvocateID < candidates[j].Advocate.AdvocateID
	})
}
