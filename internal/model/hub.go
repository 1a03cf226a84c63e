package model

// Hub 服务网点 — 对应 hubs
type Hub struct {
	HubID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"hub_id"`
	Name     string `gorm:"type:varchar(100);not null"                     json:"name"`
	State    string `gorm:"type:varchar(50);not null"                      json:"state"`
	District string `gorm:"type:varchar(50);not null"                      json:"district"`
	IsActive bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Hub) TableName() string { return "hubs" }
