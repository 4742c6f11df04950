package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"

	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,63}$`)

// CreateAdminInput 创建管理员输入
type CreateAdminInput struct {
	Email            string
	Username         string
	Password         string
	OperatorEntityID uint
}

// AdminService 管理员账号管理
type AdminService struct {
	cfg        *config.Config
	adminRepo  repository.AdminRepository
	entityRepo repository.OperatorEntityRepository
	mfa        *MFAService
	audit      *AuthzAuditService
}

// NewAdminService 创建管理员服务
func NewAdminService(
	cfg *config.Config,
	adminRepo repository.AdminRepository,
	entityRepo repository.OperatorEntityRepository,
	mfaService *MFAService,
	audit *AuthzAuditService,
) *AdminService {
	return &AdminService{
		cfg:        cfg,
		adminRepo:  adminRepo,
		entityRepo: entityRepo,
		mfa:        mfaService,
		audit:      audit,
	}
}

// List 管理员列表
func (s *AdminService) List(ctx context.Context, filter repository.AdminListFilter) ([]models.Admin, int64, error) {
	admins, total, err := s.adminRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	return admins, total, nil
}

// Get 获取管理员
func (s *AdminService) Get(ctx context.Context, id uint) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}
	return admin, nil
}

// Create 创建管理员
func (s *AdminService) Create(ctx context.Context, actor AuditActor, input CreateAdminInput) (*models.Admin, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if !usernamePattern.MatchString(username) {
		return nil, ErrBadRequest
	}
	if s.cfg != nil {
		if err := validatePassword(s.cfg.Security.PasswordPolicy, input.Password, username, email); err != nil {
			return nil, err
		}
	}
	entity, err := s.getEntity(ctx, input.OperatorEntityID)
	if err != nil {
		return nil, err
	}

	for _, lookup := range []func() (*models.Admin, error){
		func() (*models.Admin, error) { return s.adminRepo.GetByEmail(ctx, email) },
		func() (*models.Admin, error) { return s.adminRepo.GetByUsername(ctx, username) },
	} {
		existing, err := lookup()
		if err != nil {
			return nil, storageErr(err)
		}
		if existing != nil {
			return nil, ErrAdminExists
		}
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{
		Email:            email,
		Username:         username,
		PasswordHash:     hash,
		IsActive:         true,
		OperatorEntityID: &entity.ID,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, storageErr(err)
	}

	s.audit.Record(ctx, AuthzAuditRecordInput{
		Actor:          actor,
		TargetAdminID:  &admin.ID,
		TargetUsername: admin.Username,
		Action:         constants.AuditActionAdminCreate,
		Role:           entity.RoleName(),
		ObjectType:     AuditObjectAdmin,
		Object:         admin.Username,
		Detail:         models.JSON{"operator_entity": entity.Name},
	})
	return s.Get(ctx, admin.ID)
}

// SetActive 启用或停用管理员；停用后已签发会话立即失效
func (s *AdminService) SetActive(ctx context.Context, actor AuditActor, id uint, active bool) (*models.Admin, error) {
	if id == actor.AdminID && !active {
		return nil, ErrSelfOperation
	}
	admin, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if admin.IsActive == active {
		return admin, nil
	}
	fields := map[string]interface{}{"is_active": active}
	if !active {
		fields["token_version"] = gorm.Expr("token_version + 1")
		fields["token_invalid_before"] = time.Now()
	}
	if _, err := s.adminRepo.UpdateFields(ctx, admin.ID, fields); err != nil {
		return nil, storageErr(err)
	}
	invalidateAuthState(ctx, admin.ID)

	action := constants.AuditActionAdminActivate
	if !active {
		action = constants.AuditActionAdminDeactivate
	}
	s.audit.Record(ctx, AuthzAuditRecordInput{
		Actor:          actor,
		TargetAdminID:  &admin.ID,
		TargetUsername: admin.Username,
		Action:         action,
		Role:           admin.RoleName(),
		ObjectType:     AuditObjectAdmin,
		Object:         admin.Username,
	})
	return s.Get(ctx, admin.ID)
}

// AssignEntity 调整管理员所属运营主体（即角色），已签发会话失效
func (s *AdminService) AssignEntity(ctx context.Context, actor AuditActor, id, entityID uint) (*models.Admin, error) {
	if id == actor.AdminID {
		return nil, ErrSelfOperation
	}
	admin, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entity, err := s.getEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if admin.OperatorEntityID != nil && *admin.OperatorEntityID == entity.ID {
		return admin, nil
	}
	previous := admin.EntityName()
	if _, err := s.adminRepo.UpdateFields(ctx, admin.ID, map[string]interface{}{
		"operator_entity_id":   entity.ID,
		"token_version":        gorm.Expr("token_version + 1"),
		"token_invalid_before": time.Now(),
	}); err != nil {
		return nil, storageErr(err)
	}
	invalidateAuthState(ctx, admin.ID)

	s.audit.Record(ctx, AuthzAuditRecordInput{
		Actor:          actor,
		TargetAdminID:  &admin.ID,
		TargetUsername: admin.Username,
		Action:         constants.AuditActionAdminEntityAssign,
		Role:           entity.RoleName(),
		ObjectType:     AuditObjectAdmin,
		Object:         admin.Username,
		Detail:         models.JSON{"previous_entity": previous, "operator_entity": entity.Name},
	})
	return s.Get(ctx, admin.ID)
}

// ResetMFA 管理员重置他人的二次验证（本人请走带因子校验的关闭流程）
func (s *AdminService) ResetMFA(ctx context.Context, actor AuditActor, id uint) error {
	if id == actor.AdminID {
		return ErrSelfOperation
	}
	admin, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.mfa.Disable(ctx, admin.ID); err != nil {
		return err
	}
	s.audit.Record(ctx, AuthzAuditRecordInput{
		Actor:          actor,
		TargetAdminID:  &admin.ID,
		TargetUsername: admin.Username,
		Action:         constants.AuditActionAdminMFAReset,
		Role:           admin.RoleName(),
		ObjectType:     AuditObjectAdmin,
		Object:         admin.Username,
	})
	return nil
}

func (s *AdminService) getEntity(ctx context.Context, id uint) (*models.OperatorEntity, error) {
	entity, err := s.entityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if entity == nil {
		return nil, ErrEntityNotFound
	}
	return entity, nil
}
