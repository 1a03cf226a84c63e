package dto

// SuggestContext 提交给外部评分服务的只读上下文快照
type SuggestContext struct {
	AssignmentID      string             `json:"assignment_id"`
	RefCode           string             `json:"ref_code"`
	Title             string             `json:"title"`
	Category          string             `json:"category"`
	Priority          string             `json:"priority"`
	Scope             string             `json:"scope"`
	SubjectState      string             `json:"subject_state"`
	SubjectDistrict   string             `json:"subject_district"`
	RequesterState    string             `json:"requester_state,omitempty"`
	RequesterDistrict string             `json:"requester_district,omitempty"`
	Candidates        []SuggestCandidate `json:"candidates"`
}

// SuggestCandidate 候选人快照（只含评分所需字段，不含联系方式等敏感信息）
type SuggestCandidate struct {
	AdvocateID      string   `json:"advocate_id"`
	Name            string   `json:"name"`
	CoverageStates  []string `json:"coverage_states"`
	Specializations []string `json:"specializations"`
	ReputationTags  []string `json:"reputation_tags"`
	ActiveLoad      int      `json:"active_load"`
	BaseScore       int      `json:"base_score"` // 本地策略得分，供外部服务参考
}

// Suggestion 外部评分服务的推荐结果
type Suggestion struct {
	AdvocateID string   `json:"advocate_id"`
	Confidence int      `json:"confidence"` // 0-10
	Factors    []string `json:"factors"`
	Reason     string   `json:"reason"`
}
