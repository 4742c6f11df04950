package authz

import "sort"

// Permission 权限二元组
type Permission struct {
	Entity EntityType `json:"entity_type"`
	Action Action     `json:"action"`
}

// String 返回 ENTITY:ACTION 形式
func (p Permission) String() string {
	return string(p.Entity) + ":" + string(p.Action)
}

// PermissionSet 权限集合；缺失的键一律视为未授权
type PermissionSet map[Permission]bool

// Allows 判断是否授予
func (s PermissionSet) Allows(entity EntityType, action Action) bool {
	if s == nil {
		return false
	}
	return s[Permission{Entity: entity, Action: action}]
}

// Granted 返回已授予的权限（排序后）
func (s PermissionSet) Granted() []Permission {
	out := make([]Permission, 0, len(s))
	for perm, granted := range s {
		if granted {
			out = append(out, perm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entity == out[j].Entity {
			return out[i].Action < out[j].Action
		}
		return out[i].Entity < out[j].Entity
	})
	return out
}

// Clone 复制集合
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Principal 已通过会话校验的调用方
type Principal struct {
	AdminID      uint
	Username     string
	RoleID       uint
	Role         string
	Entity       string
	TokenVersion uint64
	Permissions  PermissionSet
}

// HasPermission 判断调用方是否拥有 (entity, action)
func HasPermission(p *Principal, entity EntityType, action Action) bool {
	if p == nil {
		return false
	}
	return p.Permissions.Allows(entity, action)
}

// HasAny 任一授予即为 true；空列表为 false
func HasAny(p *Principal, perms ...Permission) bool {
	if p == nil {
		return false
	}
	for _, perm := range perms {
		if p.Permissions.Allows(perm.Entity, perm.Action) {
			return true
		}
	}
	return false
}

// HasAll 全部授予才为 true；空列表为 false
func HasAll(p *Principal, perms ...Permission) bool {
	if p == nil || len(perms) == 0 {
		return false
	}
	for _, perm := range perms {
		if !p.Permissions.Allows(perm.Entity, perm.Action) {
			return false
		}
	}
	return true
}
