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

// AdminLoginLogService 管理员登录日志服务
type AdminLoginLogService struct {
	repo repository.AdminLoginLogRepository
}

// NewAdminLoginLogService 创建管理员登录日志服务
func NewAdminLoginLogService(repo repository.AdminLoginLogRepository) *AdminLoginLogService {
	return &AdminLoginLogService{repo: repo}
}

// RecordAdminLoginInput 登录日志记录输入
type RecordAdminLoginInput struct {
	AdminID    uint
	Account    string
	Status     string
	FailReason string
	MFAMethod  string
	ClientIP   string
	UserAgent  string
	RequestID  string
}

// Record 记录登录行为；写入失败不影响登录结果
func (s *AdminLoginLogService) Record(ctx context.Context, input RecordAdminLoginInput) {
	if s == nil || s.repo == nil {
		return
	}

	account := strings.ToLower(strings.TrimSpace(input.Account))
	if len(account) > 255 {
		account = account[:255]
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	switch status {
	case constants.LoginLogStatusSuccess, constants.LoginLogStatusMFARequired:
	default:
		status = constants.LoginLogStatusFailed
	}

	failReason := strings.ToLower(strings.TrimSpace(input.FailReason))
	if status != constants.LoginLogStatusFailed {
		failReason = ""
	} else if failReason == "" {
		failReason = constants.LoginLogFailReasonInternalError
	}

	err := s.repo.Create(ctx, &models.AdminLoginLog{
		AdminID:    input.AdminID,
		Account:    account,
		Status:     status,
		FailReason: failReason,
		MFAMethod:  strings.TrimSpace(input.MFAMethod),
		ClientIP:   strings.TrimSpace(input.ClientIP),
		UserAgent:  strings.TrimSpace(input.UserAgent),
		RequestID:  strings.TrimSpace(input.RequestID),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		logger.Warnw("admin_login_log_record_failed", "admin_id", input.AdminID, "status", status, "error", err)
	}
}

// ListForAdmin 管理端查询登录日志
func (s *AdminLoginLogService) ListForAdmin(ctx context.Context, filter repository.AdminLoginLogListFilter) ([]models.AdminLoginLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AdminLoginLog{}, 0, nil
	}
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	return logs, total, nil
}
