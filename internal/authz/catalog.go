package authz

import (
	"fmt"
	"strings"
)

// EntityType 权限实体类型（封闭枚举）
type EntityType string

// Action 权限动作（封闭枚举）
type Action string

const (
	EntityUserManagement    EntityType = "USER_MANAGEMENT"
	EntityDriverManagement  EntityType = "DRIVER_MANAGEMENT"
	EntityRideService       EntityType = "RIDE_SERVICE"
	EntityProductManagement EntityType = "PRODUCT_MANAGEMENT"
	EntityOrderManagement   EntityType = "ORDER_MANAGEMENT"
	EntitySettlement        EntityType = "SETTLEMENT"
	EntityAnalytics         EntityType = "ANALYTICS"
	EntityOperatorEntity    EntityType = "OPERATOR_ENTITY"
	EntityRoleManagement    EntityType = "ROLE_MANAGEMENT"
	EntityAdminManagement   EntityType = "ADMIN_MANAGEMENT"
	EntityAuditLog          EntityType = "AUDIT_LOG"
)

const (
	ActionView   Action = "VIEW"
	ActionAdd    Action = "ADD"
	ActionEdit   Action = "EDIT"
	ActionDelete Action = "DELETE"
	ActionExport Action = "EXPORT"
)

var entityTypes = []EntityType{
	EntityUserManagement,
	EntityDriverManagement,
	EntityRideService,
	EntityProductManagement,
	EntityOrderManagement,
	EntitySettlement,
	EntityAnalytics,
	EntityOperatorEntity,
	EntityRoleManagement,
	EntityAdminManagement,
	EntityAuditLog,
}

var actions = []Action{ActionView, ActionAdd, ActionEdit, ActionDelete, ActionExport}

// EntityTypes 返回全部实体类型（固定顺序）
func EntityTypes() []EntityType {
	out := make([]EntityType, len(entityTypes))
	copy(out, entityTypes)
	return out
}

// Actions 返回全部动作（固定顺序）
func Actions() []Action {
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// Valid 是否为已知实体类型
func (e EntityType) Valid() bool {
	for _, item := range entityTypes {
		if item == e {
			return true
		}
	}
	return false
}

// Valid 是否为已知动作
func (a Action) Valid() bool {
	for _, item := range actions {
		if item == a {
			return true
		}
	}
	return false
}

// ParseEntityType 解析实体类型，未知值返回错误
func ParseEntityType(raw string) (EntityType, error) {
	e := EntityType(strings.ToUpper(strings.TrimSpace(raw)))
	if !e.Valid() {
		return "", fmt.Errorf("%w: entity type %q", ErrUnknownPermission, raw)
	}
	return e, nil
}

// ParseAction 解析动作，未知值返回错误
func ParseAction(raw string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(raw)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: action %q", ErrUnknownPermission, raw)
	}
	return a, nil
}

// ParsePermission 解析 (entity, action) 二元组
func ParsePermission(entity, action string) (Permission, error) {
	e, err := ParseEntityType(entity)
	if err != nil {
		return Permission{}, err
	}
	a, err := ParseAction(action)
	if err != nil {
		return Permission{}, err
	}
	return Permission{Entity: e, Action: a}, nil
}

// AllPermissions 返回全量权限二元组（实体 × 动作）
func AllPermissions() []Permission {
	out := make([]Permission, 0, len(entityTypes)*len(actions))
	for _, e := range entityTypes {
		for _, a := range actions {
			out = append(out, Permission{Entity: e, Action: a})
		}
	}
	return out
}
