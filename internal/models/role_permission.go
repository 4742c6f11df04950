package models

import "time"

// RolePermission 角色权限行
// 说明：(role_id, entity_type, action) 唯一，写入一律走 upsert，不允许重复累积。
type RolePermission struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	RoleID     uint      `gorm:"not null;uniqueIndex:idx_role_entity_action,priority:1" json:"role_id"`
	EntityType string    `gorm:"type:varchar(40);not null;uniqueIndex:idx_role_entity_action,priority:2" json:"entity_type"`
	Action     string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_role_entity_action,priority:3" json:"action"`
	Granted    bool      `gorm:"not null;default:false" json:"granted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定表名
func (RolePermission) TableName() string {
	return "role_permissions"
}
