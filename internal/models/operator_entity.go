package models

import "time"

// OperatorEntity 运营主体
// 说明：管理员归属的组织单元，每个主体绑定唯一角色，决定成员的权限矩阵。
type OperatorEntity struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:varchar(255);not null;default:''" json:"description"`
	RoleID      uint      `gorm:"index;not null" json:"role_id"`
	Role        *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (OperatorEntity) TableName() string {
	return "operator_entities"
}

// RoleName 返回绑定角色名
func (e *OperatorEntity) RoleName() string {
	if e == nil || e.Role == nil {
		return ""
	}
	return e.Role.Name
}
