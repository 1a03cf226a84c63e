package model

import "time"

// ── 工单状态 ──
// 状态只能沿固定的流转表前进（见 service 层状态机），closed 为终态。

const (
	StatusPendingAllocation = "pending_allocation" // 待分单
	StatusAllocated         = "allocated"          // 已分单
	StatusInProgress        = "in_progress"        // 办理中
	StatusQueryRaised       = "query_raised"       // 已提出质询，等待委托方澄清
	StatusCompleted         = "completed"          // 承办律师已交付
	StatusUnderReview       = "under_review"       // 运营复核中
	StatusClosed            = "closed"             // 已结案（终态）
)

// ActiveStatuses 在办状态集合：用于推导承办律师的在办量
var ActiveStatuses = []string{StatusAllocated, StatusInProgress, StatusQueryRaised}

// IsActiveStatus 判断状态是否属于在办集合
func IsActiveStatus(status string) bool {
	for _, s := range ActiveStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ── 工单分类 ──

const (
	CategoryFullSearch    = "full_search"    // 完整产权核查
	CategoryLimitedSearch = "limited_search" // 限定年限核查
	CategoryUpdateSearch  = "update_search"  // 补充期核查
	CategoryLegalOpinion  = "legal_opinion"  // 法律意见书
)

const (
	PriorityNormal   = "normal"
	PriorityUrgent   = "urgent"
	PriorityCritical = "critical"
)

const (
	ScopeBasic    = "basic"    // 13年追溯
	ScopeStandard = "standard" // 30年追溯
	ScopeExtended = "extended" // 50年追溯
)

// Assignment 产权核查工单 — 对应 assignments
type Assignment struct {
	AssignmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	RefCode      string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"ref_code"`
	Title        string `gorm:"type:varchar(255);not null"                     json:"title"`
	Category     string `gorm:"type:varchar(30);not null"                      json:"category"`
	Priority     string `gorm:"type:varchar(10);not null;default:'normal'"     json:"priority"`
	Scope        string `gorm:"type:varchar(10);not null;default:'standard'"   json:"scope"`
	Status       string `gorm:"type:varchar(30);not null;default:'pending_allocation'" json:"status"`

	// 标的物属地与委托方属地相互独立，可能不同
	SubjectAddress    string `gorm:"type:varchar(500)" json:"subject_address"`
	SubjectState      string `gorm:"type:varchar(50);not null" json:"subject_state"`
	SubjectDistrict   string `gorm:"type:varchar(50);not null" json:"subject_district"`
	RequesterState    string `gorm:"type:varchar(50)" json:"requester_state"`
	RequesterDistrict string `gorm:"type:varchar(50)" json:"requester_district"`

	RequesterID string  `gorm:"type:uuid;not null" json:"requester_id"`
	AdvocateID  *string `gorm:"type:uuid"          json:"advocate_id,omitempty"` // 分单前为空
	HubID       *string `gorm:"type:uuid"          json:"hub_id,omitempty"`

	// 里程碑时间戳：各自仅写入一次，只前进不回退
	AllocatedAt *time.Time `json:"allocated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`

	VersionedModel

	// 关联
	Advocate  *Advocate            `gorm:"foreignKey:AdvocateID;references:AdvocateID" json:"advocate,omitempty"`
	Hub       *Hub                 `gorm:"foreignKey:HubID;references:HubID"           json:"hub,omitempty"`
	Documents []AssignmentDocument `gorm:"foreignKey:AssignmentID"                     json:"documents,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignments" }

// AssignmentDocument 工单文档元数据 — 对应 assignment_documents
// 文档内容存放于外部文档存储，本服务只记录引用键。
type AssignmentDocument struct {
	DocumentID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"document_id"`
	AssignmentID string    `gorm:"type:uuid;not null"                             json:"assignment_id"`
	FileName     string    `gorm:"type:varchar(255);not null"                     json:"file_name"`
	ContentType  string    `gorm:"type:varchar(100)"                              json:"content_type"`
	SizeBytes    int64     `gorm:"not null;default:0"                             json:"size_bytes"`
	StorageKey   string    `gorm:"type:varchar(500);not null"                     json:"storage_key"`
	UploadedBy   string    `gorm:"type:uuid;not null"                             json:"uploaded_by"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AssignmentDocument) TableName() string { return "assignment_documents" }
