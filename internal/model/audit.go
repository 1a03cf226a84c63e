package model

import "time"

// ── 轨迹动作 ──

const (
	ActionCreated        = "created"         // 工单创建
	ActionAllocated      = "allocated"       // 分单
	ActionReallocated    = "re_allocated"    // 改派
	ActionStatusChanged  = "status_changed"  // 一般状态流转
	ActionQueryRaised    = "query_raised"    // 提出质询
	ActionQueryResponded = "query_responded" // 质询澄清
	ActionCompleted      = "completed"       // 交付完成
	ActionReviewStarted  = "review_started"  // 进入复核
	ActionReworked       = "reworked"        // 复核退回返工
	ActionClosed         = "closed"          // 结案
	ActionDocumentAdded  = "document_added"  // 收到工作成果文档
)

// AuditEntry 工单操作轨迹 — 对应 audit_entries
//
// 只追加：一经写入永不修改或删除，一条工单的轨迹序列即其完整来源链。
type AuditEntry struct {
	EntryID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"entry_id"`
	AssignmentID string    `gorm:"type:uuid;not null;index"                       json:"assignment_id"`
	Action       string    `gorm:"type:varchar(30);not null"                      json:"action"`
	ActorID      string    `gorm:"type:uuid;not null"                             json:"actor_id"`
	ActorRole    string    `gorm:"type:varchar(20);not null"                      json:"actor_role"`
	Detail       string    `gorm:"type:text;not null"                             json:"detail"`
	Metadata     JSONMap   `gorm:"type:jsonb"                                     json:"metadata,omitempty"` // 如评分因子
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AuditEntry) TableName() string { return "audit_entries" }
