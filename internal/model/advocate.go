package model

// Advocate 承办律师 — 对应 advocates
//
// 在办量不落库：始终由 assignments 表按在办状态实时统计推导，
// 避免计数器与工单记录产生漂移。
type Advocate struct {
	AdvocateID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"advocate_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	EnrollmentNo string `gorm:"type:varchar(50);not null"                      json:"enrollment_no"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	Phone        string `gorm:"type:varchar(20)"                               json:"phone"`

	// 覆盖范围：地区必须属于所覆盖的邦（编辑时校验，读取时不校验）
	CoverageStates    StringArray `gorm:"type:text[];not null;default:'{}'" json:"coverage_states"`
	CoverageDistricts StringArray `gorm:"type:text[];not null;default:'{}'" json:"coverage_districts"`

	Specializations StringArray `gorm:"type:text[];not null;default:'{}'" json:"specializations"` // 擅长的工单分类
	ReputationTags  StringArray `gorm:"type:text[];not null;default:'{}'" json:"reputation_tags"` // 自由标签

	HomeHubID *string `gorm:"type:uuid"                    json:"home_hub_id,omitempty"`
	IsActive  bool    `gorm:"not null;default:true"        json:"is_active"`
	VersionedModel

	// 关联
	HomeHub *Hub `gorm:"foreignKey:HomeHubID;references:HubID" json:"home_hub,omitempty"`
}

// TableName 指定表名
func (Advocate) TableName() string { return "advocates" }
