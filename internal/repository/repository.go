package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User       UserRepository
	Hub        HubRepository
	Advocate   AdvocateRepository
	Assignment AssignmentRepository
	Audit      AuditRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Hub:        NewHubRepo(db),
		Advocate:   NewAdvocateRepo(db),
		Assignment: NewAssignmentRepo(db),
		Audit:      NewAuditRepo(db),
	}
}
