package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrRoleNotFound 角色不存在
	ErrRoleNotFound = errors.New("authz role not found")
	// ErrUnknownPermission 实体类型或动作不在封闭枚举内
	ErrUnknownPermission = errors.New("unknown permission tag")
)

// Service 权限矩阵存储服务
// 统一封装 role_permissions 的读取、upsert 与补齐逻辑
type Service struct {
	db *gorm.DB
}

// NewService 创建权限矩阵服务
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}
	return &Service{db: db}, nil
}

// LoadGrants 加载启用角色的已授予权限；未知标签的行被跳过
func (s *Service) LoadGrants(ctx context.Context, roleID uint) (PermissionSet, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("authz service unavailable")
	}
	var rows []models.RolePermission
	err := s.db.WithContext(ctx).
		Model(&models.RolePermission{}).
		Select("role_permissions.*").
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Where("role_permissions.role_id = ? AND roles.is_active = ? AND role_permissions.granted = ?", roleID, true, true).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load role grants failed: %w", err)
	}
	return toPermissionSet(roleID, rows, true), nil
}

// GetRoleMatrix 读取角色完整矩阵（含 granted=false 的行）
func (s *Service) GetRoleMatrix(ctx context.Context, roleID uint) (PermissionSet, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("authz service unavailable")
	}
	if err := s.ensureRoleExists(ctx, roleID); err != nil {
		return nil, err
	}
	var rows []models.RolePermission
	if err := s.db.WithContext(ctx).Where("role_id = ?", roleID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get role matrix failed: %w", err)
	}
	return toPermissionSet(roleID, rows, false), nil
}

// SetPermission upsert 单个权限行
func (s *Service) SetPermission(ctx context.Context, roleID uint, perm Permission, granted bool) error {
	return s.SetRolePermissions(ctx, roleID, PermissionSet{perm: granted})
}

// SetRolePermissions 在一个事务内 upsert 多个权限行
func (s *Service) SetRolePermissions(ctx context.Context, roleID uint, matrix PermissionSet) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("authz service unavailable")
	}
	for perm := range matrix {
		if !perm.Entity.Valid() || !perm.Action.Valid() {
			return fmt.Errorf("%w: %s", ErrUnknownPermission, perm.String())
		}
	}
	if err := s.ensureRoleExists(ctx, roleID); err != nil {
		return err
	}
	if len(matrix) == 0 {
		return nil
	}
	rows := make([]models.RolePermission, 0, len(matrix))
	for perm, granted := range matrix {
		rows = append(rows, models.RolePermission{
			RoleID:     roleID,
			EntityType: string(perm.Entity),
			Action:     string(perm.Action),
			Granted:    granted,
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertPermissions(tx, rows)
	})
}

// Backfill 为角色补齐缺失的 (entity, action) 行，默认不授予；返回新增行数
func (s *Service) Backfill(ctx context.Context, roleID uint) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("authz service unavailable")
	}
	all := AllPermissions()
	rows := make([]models.RolePermission, 0, len(all))
	for _, perm := range all {
		rows = append(rows, models.RolePermission{
			RoleID:     roleID,
			EntityType: string(perm.Entity),
			Action:     string(perm.Action),
			Granted:    false,
		})
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role_id"}, {Name: "entity_type"}, {Name: "action"}},
		DoNothing: true,
	}).Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("backfill role permissions failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Service) ensureRoleExists(ctx context.Context, roleID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Role{}).Where("id = ?", roleID).Count(&count).Error; err != nil {
		return fmt.Errorf("check role failed: %w", err)
	}
	if count == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func upsertPermissions(tx *gorm.DB, rows []models.RolePermission) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role_id"}, {Name: "entity_type"}, {Name: "action"}},
		DoUpdates: clause.AssignmentColumns([]string{"granted", "updated_at"}),
	}).Create(&rows).Error
}

func toPermissionSet(roleID uint, rows []models.RolePermission, grantedOnly bool) PermissionSet {
	set := make(PermissionSet, len(rows))
	for _, row := range rows {
		perm, err := ParsePermission(row.EntityType, row.Action)
		if err != nil {
			logger.Warnw("authz_unknown_permission_row",
				"role_id", roleID,
				"entity_type", row.EntityType,
				"action", row.Action,
			)
			continue
		}
		if grantedOnly && !row.Granted {
			continue
		}
		set[perm] = row.Granted
	}
	return set
}
