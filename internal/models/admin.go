package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 管理员表
type Admin struct {
	ID                 uint            `gorm:"primarykey" json:"id"`                                            // 主键
	Email              string          `gorm:"uniqueIndex;not null" json:"email"`                               // 登录邮箱
	Username           string          `gorm:"uniqueIndex;not null" json:"username"`                            // 管理员账号
	PasswordHash       string          `gorm:"not null" json:"-"`                                               // 密码哈希（不返回给前端）
	IsActive           bool            `gorm:"not null;default:true;index" json:"is_active"`                    // 是否启用
	LastLoginAt        *time.Time      `json:"last_login_at"`                                                   // 最后登录时间
	OperatorEntityID   *uint           `gorm:"index" json:"operator_entity_id"`                                 // 所属运营主体
	OperatorEntity     *OperatorEntity `gorm:"foreignKey:OperatorEntityID" json:"operator_entity"`              // 运营主体
	MFAEnabled         bool            `gorm:"column:mfa_enabled;not null;default:false" json:"mfa_enabled"`    // 是否启用二次验证
	MFASecret          string          `gorm:"column:mfa_secret;type:varchar(64);not null;default:''" json:"-"` // TOTP 密钥（永不返回）
	MFAVerified        bool            `gorm:"column:mfa_verified;not null;default:false" json:"mfa_verified"`  // 是否已确认绑定
	MFALastUsedStep    int64           `gorm:"column:mfa_last_used_step;not null;default:0" json:"-"`           // 最近一次使用的 TOTP 时间步
	TokenVersion       uint64          `gorm:"not null;default:0" json:"-"`                                     // Token 版本（用于全量失效）
	TokenInvalidBefore *time.Time      `gorm:"index" json:"-"`                                                  // 该时间点前签发的 Token 失效
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt          time.Time       `gorm:"index" json:"updated_at"`                                         // 更新时间
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`                                                  // 软删除时间
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}

// RoleName 返回管理员所属主体绑定的角色名，未绑定时为空
func (a *Admin) RoleName() string {
	if a == nil || a.OperatorEntity == nil || a.OperatorEntity.Role == nil {
		return ""
	}
	return a.OperatorEntity.Role.Name
}

// RoleID 返回管理员所属主体绑定的角色 ID，未绑定时为 0
func (a *Admin) RoleID() uint {
	if a == nil || a.OperatorEntity == nil {
		return 0
	}
	return a.OperatorEntity.RoleID
}

// EntityName 返回管理员所属运营主体名称
func (a *Admin) EntityName() string {
	if a == nil || a.OperatorEntity == nil {
		return ""
	}
	return a.OperatorEntity.Name
}
