package service

import (
	"context"
	"strings"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"
)

// 审计对象类型
const (
	AuditObjectRole           = "role"
	AuditObjectOperatorEntity = "operator_entity"
	AuditObjectAdmin          = "admin"
)

// AuditActor 操作人信息（由 handler 从会话中提取）
type AuditActor struct {
	AdminID   uint
	Username  string
	RequestID string
}

// AuthzAuditRecordInput 权限审计记录输入
type AuthzAuditRecordInput struct {
	Actor          AuditActor
	TargetAdminID  *uint
	TargetUsername string
	Action         string
	Role           string
	ObjectType     string
	Object         string
	Detail         models.JSON
}

// AuthzAuditService 权限审计服务
type AuthzAuditService struct {
	repo repository.AuthzAuditLogRepository
}

// NewAuthzAuditService 创建权限审计服务
func NewAuthzAuditService(repo repository.AuthzAuditLogRepository) *AuthzAuditService {
	return &AuthzAuditService{repo: repo}
}

// Record 记录权限审计日志；写入失败仅记录日志
func (s *AuthzAuditService) Record(ctx context.Context, input AuthzAuditRecordInput) {
	if s == nil || s.repo == nil {
		return
	}
	if input.Actor.AdminID == 0 || strings.TrimSpace(input.Action) == "" {
		return
	}

	item := &models.AuthzAuditLog{
		OperatorAdminID:  input.Actor.AdminID,
		OperatorUsername: strings.TrimSpace(input.Actor.Username),
		TargetAdminID:    input.TargetAdminID,
		TargetUsername:   strings.TrimSpace(input.TargetUsername),
		Action:           strings.TrimSpace(input.Action),
		Role:             strings.TrimSpace(input.Role),
		ObjectType:       strings.TrimSpace(input.ObjectType),
		Object:           strings.TrimSpace(input.Object),
		RequestID:        strings.TrimSpace(input.Actor.RequestID),
		DetailJSON:       input.Detail,
		CreatedAt:        time.Now(),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		logger.Warnw("authz_audit_record_failed",
			"operator_admin_id", item.OperatorAdminID,
			"action", item.Action,
			"object", item.Object,
			"error", err,
		)
	}
}

// ListForAdmin 管理端查询权限审计日志
func (s *AuthzAuditService) ListForAdmin(ctx context.Context, filter repository.AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuthzAuditLog{}, 0, nil
	}
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	return logs, total, nil
}
