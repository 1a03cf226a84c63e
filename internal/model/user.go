package model

// ── 账号角色 ──

const (
	RoleRequester = "requester" // 委托方（银行/机构）
	RoleAdvocate  = "advocate"  // 承办律师
	RoleOps       = "ops"       // 运营协调
)

// User 登录账号 — 对应 users
// 服务层信任中间件解析出的身份与角色，不在业务逻辑内做权限判定。
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string  `gorm:"type:varchar(20);not null;default:'requester'"  json:"role"`
	OrgName      string  `gorm:"type:varchar(200)"                              json:"org_name"`
	AdvocateID   *string `gorm:"type:uuid"                                      json:"advocate_id,omitempty"` // 律师角色账号关联
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
