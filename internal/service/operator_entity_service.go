package service

import (
	"context"
	"strings"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"
)

// CreateOperatorEntityInput 创建运营主体输入
type CreateOperatorEntityInput struct {
	Name        string
	Description string
	RoleID      uint
}

// OperatorEntityService 运营主体管理
type OperatorEntityService struct {
	entityRepo repository.OperatorEntityRepository
	roleRepo   repository.RoleRepository
	adminRepo  repository.AdminRepository
	audit      *AuthzAuditService
}

// NewOperatorEntityService 创建运营主体服务
func NewOperatorEntityService(
	entityRepo repository.OperatorEntityRepository,
	roleRepo repository.RoleRepository,
	adminRepo repository.AdminRepository,
	audit *AuthzAuditService,
) *OperatorEntityService {
	return &OperatorEntityService{
		entityRepo: entityRepo,
		roleRepo:   roleRepo,
		adminRepo:  adminRepo,
		audit:      audit,
	}
}

// List 运营主体列表
func (s *OperatorEntityService) List(ctx context.Context) ([]models.OperatorEntity, error) {
	entities, err := s.entityRepo.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return entities, nil
}

// Create 创建运营主体
func (s *OperatorEntityService) Create(ctx context.Context, actor AuditActor, input CreateOperatorEntityInput) (*models.OperatorEntity, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > 100 {
		return nil, ErrBadRequest
	}
	role, err := s.roleRepo.GetByID(ctx, input.RoleID)
	if err != nil {
		return nil, storageErr(err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	existing, err := s.entityRepo.GetByName(ctx, name)
	if err != nil {
		return nil, storageErr(err)
	}
	if existing != nil {
		return nil, ErrEntityExists
	}

	entity := &models.OperatorEntity{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		RoleID:      role.ID,
	}
	if err := s.entityRepo.Create(ctx, entity); err != nil {
		return nil, storageErr(err)
	}
	entity.Role = role

	s.audit.Record(ctx, AuthzAuditRecordInput{
		Actor:      actor,
		Action:     constants.AuditActionEntityCreate,
		Role:       role.Name,
		ObjectType: AuditObjectOperatorEntity,
		Object:     entity.Name,
	})
	return entity, nil
}

// AssignRole 变更主体角色；成员已签发的会话全部失效
func (s *OperatorEntityService) AssignRole(ctx context.Context, actor AuditActor, id, roleID uint) (*models.OperatorEntity, error) {
	entity, err := s.entityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if entity == nil {
		return nil, ErrEntityNotFound
	}
	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return nil, storageErr(err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	if entity.RoleID == role.ID {
		return entity, nil
	}
	previous := ""
	if entity.Role != nil {
		previous = entity.Role.Name
	}

	if _, err := s.entityRepo.UpdateRole(ctx, entity.ID, role.ID); err != nil {
		return nil, storageErr(err)
	}
	revoked, err := s.adminRepo.RevokeTokensByEntity(ctx, entity.ID, time.Now())
	if err != nil {
		return nil, storageErr(err)
	}
	memberIDs, err := s.adminRepo.ListIDsByEntity(ctx, entity.ID)
	if err != nil {
		logger.Warnw("operator_entity_member_list_failed", "entity_id", entity.ID, "error", err)
	} else {
		invalidateAuthState(ctx, memberIDs...)
	}

	s.audit.Record(ctx, AuthzAuditRecordInput{
		Actor:      actor,
		Action:     constants.AuditActionEntityRoleAssign,
		Role:       role.Name,
		ObjectType: AuditObjectOperatorEntity,
		Object:     entity.Name,
		Detail:     models.JSON{"previous_role": previous, "sessions_revoked": revoked},
	})
	updated, err := s.entityRepo.GetByID(ctx, entity.ID)
	if err != nil {
		return nil, storageErr(err)
	}
	return updated, nil
}
