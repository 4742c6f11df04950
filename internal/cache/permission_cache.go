package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
)

const permissionSetCacheTTL = 5 * time.Minute

// PermissionCache 角色权限集合缓存，仅存储已授予的二元组
type PermissionCache struct {
	ttl time.Duration
}

// NewPermissionCache 创建权限集合缓存；ttl<=0 时使用默认 5 分钟
func NewPermissionCache(ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = permissionSetCacheTTL
	}
	return &PermissionCache{ttl: ttl}
}

func permissionSetKey(roleID uint) string {
	return fmt.Sprintf("authz:role:%d:perms", roleID)
}

// GetPermissionSet 读取缓存的权限集合
func (c *PermissionCache) GetPermissionSet(ctx context.Context, roleID uint) (authz.PermissionSet, bool, error) {
	var granted []authz.Permission
	hit, err := GetJSON(ctx, permissionSetKey(roleID), &granted)
	if err != nil || !hit {
		return nil, false, err
	}
	set := make(authz.PermissionSet, len(granted))
	for _, perm := range granted {
		// 缓存内容同样遵守封闭枚举
		if !perm.Entity.Valid() || !perm.Action.Valid() {
			continue
		}
		set[perm] = true
	}
	return set, true, nil
}

// SetPermissionSet 写入权限集合
func (c *PermissionCache) SetPermissionSet(ctx context.Context, roleID uint, set authz.PermissionSet) error {
	return SetJSON(ctx, permissionSetKey(roleID), set.Granted(), c.ttl)
}

// DeletePermissionSet 删除权限集合缓存
func (c *PermissionCache) DeletePermissionSet(ctx context.Context, roleID uint) error {
	return Del(ctx, permissionSetKey(roleID))
}
