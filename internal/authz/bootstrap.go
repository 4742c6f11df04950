package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"gorm.io/gorm"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Name   string
	Label  string
	Grants []Permission
}

// BootstrapReport 预置角色同步结果
type BootstrapReport struct {
	RolesCreated      int
	PermissionsFilled int64
}

func grantsOf(entity EntityType, acts ...Action) []Permission {
	out := make([]Permission, 0, len(acts))
	for _, a := range acts {
		out = append(out, Permission{Entity: entity, Action: a})
	}
	return out
}

func viewAll() []Permission {
	out := make([]Permission, 0, len(entityTypes))
	for _, e := range entityTypes {
		out = append(out, Permission{Entity: e, Action: ActionView})
	}
	return out
}

func join(groups ...[]Permission) []Permission {
	var out []Permission
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Name:   constants.RoleSuperAdmin,
			Label:  "Super Admin",
			Grants: AllPermissions(),
		},
		{
			Name:  constants.RoleOperations,
			Label: "Operations",
			Grants: join(
				grantsOf(EntityUserManagement, ActionView, ActionEdit),
				grantsOf(EntityDriverManagement, ActionView, ActionAdd, ActionEdit),
				grantsOf(EntityRideService, ActionView, ActionEdit),
				grantsOf(EntityProductManagement, ActionView, ActionAdd, ActionEdit),
				grantsOf(EntityOrderManagement, ActionView, ActionEdit),
				grantsOf(EntityAnalytics, ActionView),
			),
		},
		{
			Name:  constants.RoleSupport,
			Label: "Customer Support",
			Grants: join(
				grantsOf(EntityUserManagement, ActionView),
				grantsOf(EntityDriverManagement, ActionView),
				grantsOf(EntityRideService, ActionView),
				grantsOf(EntityOrderManagement, ActionView, ActionEdit),
			),
		},
		{
			Name:  constants.RoleFinance,
			Label: "Finance",
			Grants: join(
				grantsOf(EntitySettlement, ActionView, ActionAdd, ActionEdit, ActionExport),
				grantsOf(EntityOrderManagement, ActionView, ActionExport),
				grantsOf(EntityAnalytics, ActionView, ActionExport),
			),
		},
		{
			Name:   constants.RoleAnalyst,
			Label:  "Analyst",
			Grants: grantsOf(EntityAnalytics, ActionView, ActionExport),
		},
		{
			Name:   constants.RoleAuditor,
			Label:  "Read-only Auditor",
			Grants: join(viewAll(), grantsOf(EntityAuditLog, ActionExport)),
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色，并为所有角色补齐权限行
// 已存在的角色不会被覆盖，运营人员调整过的矩阵保持不变。
func (s *Service) BootstrapBuiltinRoles(ctx context.Context) (BootstrapReport, error) {
	var report BootstrapReport
	if s == nil || s.db == nil {
		return report, fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		var role models.Role
		err := s.db.WithContext(ctx).Where("name = ?", seed.Name).First(&role).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return report, fmt.Errorf("check builtin role failed: %w", err)
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			role = models.Role{Name: seed.Name, Label: seed.Label, IsActive: true}
			if err := tx.Create(&role).Error; err != nil {
				return fmt.Errorf("create builtin role failed: %w", err)
			}
			rows := make([]models.RolePermission, 0, len(seed.Grants))
			for _, perm := range seed.Grants {
				rows = append(rows, models.RolePermission{
					RoleID:     role.ID,
					EntityType: string(perm.Entity),
					Action:     string(perm.Action),
					Granted:    true,
				})
			}
			return upsertPermissions(tx, rows)
		})
		if err != nil {
			return report, err
		}
		report.RolesCreated++
	}

	filled, err := s.BackfillAll(ctx)
	if err != nil {
		return report, err
	}
	report.PermissionsFilled = filled
	return report, nil
}

// BackfillAll 为所有角色补齐缺失的权限行
func (s *Service) BackfillAll(ctx context.Context) (int64, error) {
	var roleIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Role{}).Pluck("id", &roleIDs).Error; err != nil {
		return 0, fmt.Errorf("list roles failed: %w", err)
	}
	var total int64
	for _, id := range roleIDs {
		n, err := s.Backfill(ctx, id)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
