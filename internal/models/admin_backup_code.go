package models

import "time"

// AdminBackupCode 管理员备用恢复码
// 说明：仅存储哈希，used_at 非空即视为已使用，且只能被条件更新写入一次。
type AdminBackupCode struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	AdminID   uint       `gorm:"not null;uniqueIndex:idx_admin_backup_code,priority:1" json:"admin_id"`
	Position  int        `gorm:"not null;default:0" json:"position"`
	CodeHash  string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_admin_backup_code,priority:2" json:"-"`
	UsedAt    *time.Time `gorm:"index" json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName 指定表名
func (AdminBackupCode) TableName() string {
	return "admin_backup_codes"
}
