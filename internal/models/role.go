package models

import "time"

// Role 角色
// 说明：命名的权限集合，name 创建后不可修改，权限由 RolePermission 行描述。
type Role struct {
	ID          uint             `gorm:"primarykey" json:"id"`
	Name        string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
	Label       string           `gorm:"type:varchar(120);not null;default:''" json:"label"`
	IsActive    bool             `gorm:"not null;default:true;index" json:"is_active"`
	Permissions []RolePermission `gorm:"foreignKey:RoleID" json:"permissions,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName 指定表名
func (Role) TableName() string {
	return "roles"
}
