package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"
)

var roleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// PermissionCell 矩阵中的一格
type PermissionCell struct {
	EntityType string `json:"entity_type"`
	Action     string `json:"action"`
	Granted    bool   `json:"granted"`
}

// RoleMatrix 角色完整权限矩阵
type RoleMatrix struct {
	Role        *models.Role     `json:"role"`
	Permissions []PermissionCell `json:"permissions"`
}

// PermissionCatalog 可选的实体类型与动作
type PermissionCatalog struct {
	EntityTypes []authz.EntityType `json:"entity_types"`
	Actions     []authz.Action     `json:"actions"`
}

// CreateRoleInput 创建角色输入
type CreateRoleInput struct {
	Name  string
	Label string
}

// UpdateRoleInput 更新角色输入（name 不可修改）
type UpdateRoleInput struct {
	Label    *string
	IsActive *bool
}

// RoleService 角色与权限矩阵管理
type RoleService struct {
	roleRepo repository.RoleRepository
	matrix   *authz.Service
	engine   *authz.Engine
	audit    *AuthzAuditService
}

// NewRoleService 创建角色服务
func NewRoleService(roleRepo repository.RoleRepository, matrix *authz.Service, engine *authz.Engine, audit *AuthzAuditService) *RoleService {
	return &RoleService{
		roleRepo: roleRepo,
		matrix:   matrix,
		engine:   engine,
		audit:    audit,
	}
}

// Catalog 返回封闭枚举
func (s *RoleService) Catalog() PermissionCatalog {
	return PermissionCatalog{
		EntityTypes: authz.EntityTypes(),
		Actions:     authz.Actions(),
	}
}

// List 角色列表
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return roles, nil
}

// Create 创建角色并补齐全部未授予的矩阵行
func (s *RoleService) Create(ctx context.Context, actor AuditActor, input CreateRoleInput) (*models.Role, error) {
	name := strings.ToLower(strings.TrimSpace(input.Name))
	if !roleNamePattern.MatchString(name) {
		return nil, ErrRoleInvalid
	}
	existing, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return nil, storageErr(err)
	}
	if existing != nil {
		return nil, ErrRoleExists
	}
	label := strings.TrimSpace(input.Label)
	if label == "" {
		label = name
	}
	role := &models.Role{Name: name, Label: label, IsActive: true}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, storageErr(err)
	}
	if _, err := s.matrix.Backfill(ctx, role.ID); err != nil {
		return nil, storageErr(err)
	}

	s.audit.Record(ctx, AuthzAuditRecordInput{
		Actor:      actor,
		Action:     constants.AuditActionRoleCreate,
		Role:       role.Name,
		ObjectType: AuditObjectRole,
		Object:     role.Name,
		Detail:     models.JSON{"label": role.Label},
	})
	return role, nil
}

// Update 更新角色标签或启用状态
func (s *RoleService) Update(ctx context.Context, actor AuditActor, id uint, input UpdateRoleInput) (*models.Role, error) {
	role, err := s.getRole(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	detail := models.JSON{}
	if input.Label != nil {
		label := strings.TrimSpace(*input.Label)
		if label == "" {
			return nil, ErrRoleInvalid
		}
		fields["label"] = label
		detail["label"] = label
	}
	if input.IsActive != nil {
		if !*input.IsActive && role.Name == constants.RoleSuperAdmin {
			return nil, ErrForbidden
		}
		fields["is_active"] = *input.IsActive
		detail["is_active"] = *input.IsActive
	}
	if len(fields) == 0 {
		return role, nil
	}
	if _, err := s.roleRepo.UpdateFields(ctx, role.ID, fields); err != nil {
		return nil, storageErr(err)
	}
	s.invalidate(ctx, role.ID)

	s.audit.Record(ctx, AuthzAuditRecordInput{
		Actor:      actor,
		Action:     constants.AuditActionRoleUpdate,
		Role:       role.Name,
		ObjectType: AuditObjectRole,
		Object:     role.Name,
		Detail:     detail,
	})
	return s.getRole(ctx, role.ID)
}

// Matrix 返回完整矩阵；缺失的行按未授予返回
func (s *RoleService) Matrix(ctx context.Context, id uint) (*RoleMatrix, error) {
	role, err := s.getRole(ctx, id)
	if err != nil {
		return nil, err
	}
	stored, err := s.matrix.GetRoleMatrix(ctx, role.ID)
	if err != nil {
		return nil, s.matrixErr(err)
	}
	all := authz.AllPermissions()
	cells := make([]PermissionCell, 0, len(all))
	for _, perm := range all {
		cells = append(cells, PermissionCell{
			EntityType: string(perm.Entity),
			Action:     string(perm.Action),
			Granted:    stored[perm],
		})
	}
	return &RoleMatrix{Role: role, Permissions: cells}, nil
}

// SetMatrix upsert 多个矩阵格；未提交的格保持不变
func (s *RoleService) SetMatrix(ctx context.Context, actor AuditActor, id uint, cells []PermissionCell) (*RoleMatrix, error) {
	role, err := s.getRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, ErrBadRequest
	}
	update := make(authz.PermissionSet, len(cells))
	for _, cell := range cells {
		perm, err := authz.ParsePermission(cell.EntityType, cell.Action)
		if err != nil {
			return nil, err
		}
		update[perm] = cell.Granted
	}
	if role.Name == constants.RoleSuperAdmin {
		for perm, granted := range update {
			if !granted && (perm.Entity == authz.EntityRoleManagement || perm.Entity == authz.EntityAdminManagement) {
				// 防止超级管理员失去管理入口
				return nil, ErrForbidden
			}
		}
	}
	if err := s.matrix.SetRolePermissions(ctx, role.ID, update); err != nil {
		return nil, s.matrixErr(err)
	}
	s.invalidate(ctx, role.ID)

	granted := make([]string, 0)
	revoked := make([]string, 0)
	for _, perm := range update.Granted() {
		granted = append(granted, perm.String())
	}
	for perm, ok := range update {
		if !ok {
			revoked = append(revoked, perm.String())
		}
	}
	s.audit.Record(ctx, AuthzAuditRecordInput{
		Actor:      actor,
		Action:     constants.AuditActionRolePermissionsSet,
		Role:       role.Name,
		ObjectType: AuditObjectRole,
		Object:     role.Name,
		Detail:     models.JSON{"granted": granted, "revoked": revoked},
	})
	return s.Matrix(ctx, role.ID)
}

func (s *RoleService) getRole(ctx context.Context, id uint) (*models.Role, error) {
	role, err := s.roleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

func (s *RoleService) invalidate(ctx context.Context, roleID uint) {
	if s.engine == nil {
		return
	}
	if err := s.engine.Invalidate(ctx, roleID); err != nil {
		logger.Warnw("authz_permission_cache_invalidate_failed", "role_id", roleID, "error", err)
	}
}

func (s *RoleService) matrixErr(err error) error {
	switch Classify(err) {
	case KindNotFound, KindValidation:
		return err
	default:
		return storageErr(err)
	}
}
