package authz

import (
	"context"
	"strconv"

	"github.com/maronglamin/snap-admin-sub004/internal/logger"

	"golang.org/x/sync/singleflight"
)

// GrantLoader 按角色加载已授予权限
type GrantLoader interface {
	LoadGrants(ctx context.Context, roleID uint) (PermissionSet, error)
}

// SetCache 权限集合缓存
type SetCache interface {
	GetPermissionSet(ctx context.Context, roleID uint) (PermissionSet, bool, error)
	SetPermissionSet(ctx context.Context, roleID uint, set PermissionSet) error
	DeletePermissionSet(ctx context.Context, roleID uint) error
}

// Engine 授权引擎：角色 -> 权限集合解析
type Engine struct {
	loader GrantLoader
	cache  SetCache
	group  singleflight.Group
}

// NewEngine 创建授权引擎，cache 可为 nil
func NewEngine(loader GrantLoader, cache SetCache) *Engine {
	return &Engine{loader: loader, cache: cache}
}

// Resolve 解析角色权限集合；未绑定角色返回空集合
func (e *Engine) Resolve(ctx context.Context, roleID uint) (PermissionSet, error) {
	if roleID == 0 {
		return PermissionSet{}, nil
	}
	if e.cache != nil {
		set, ok, err := e.cache.GetPermissionSet(ctx, roleID)
		if err != nil {
			logger.Debugw("authz_permission_cache_get_failed", "role_id", roleID, "error", err)
		} else if ok {
			return set, nil
		}
	}

	// 加载与首个调用方的取消解耦，每个调用方只受自身 ctx 约束
	loadCtx := context.WithoutCancel(ctx)
	ch := e.group.DoChan(strconv.FormatUint(uint64(roleID), 10), func() (interface{}, error) {
		set, err := e.loader.LoadGrants(loadCtx, roleID)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			if err := e.cache.SetPermissionSet(loadCtx, roleID, set); err != nil {
				logger.Debugw("authz_permission_cache_set_failed", "role_id", roleID, "error", err)
			}
		}
		return set, nil
	})
	var value interface{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		value = res.Val
	}
	return value.(PermissionSet).Clone(), nil
}

// Invalidate 角色矩阵变更后清理缓存
func (e *Engine) Invalidate(ctx context.Context, roleID uint) error {
	if e == nil || e.cache == nil || roleID == 0 {
		return nil
	}
	return e.cache.DeletePermissionSet(ctx, roleID)
}
