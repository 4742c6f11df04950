package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/metrics"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminLoginInput 管理员登录输入
type AdminLoginInput struct {
	Account   string
	Password  string
	MFACode   string
	Captcha   CaptchaVerifyPayload
	ClientIP  string
	UserAgent string
	RequestID string
}

// AdminLoginResult 登录结果；MFARequired 为 true 时需携带第二因子重新提交
type AdminLoginResult struct {
	Admin                *models.Admin
	Token                string
	ExpiresAt            time.Time
	MFARequired          bool
	MFAMethod            string
	BackupCodesRemaining int64
}

// AuthService 管理员认证服务
type AuthService struct {
	cfg       *config.Config
	adminRepo repository.AdminRepository
	sessions  *SessionService
	mfa       *MFAService
	captcha   *CaptchaService
	loginLogs *AdminLoginLogService
	notifier  SecurityNotifier
}

// NewAuthService 创建认证服务实例
func NewAuthService(
	cfg *config.Config,
	adminRepo repository.AdminRepository,
	sessions *SessionService,
	mfaService *MFAService,
	captcha *CaptchaService,
	loginLogs *AdminLoginLogService,
	notifier SecurityNotifier,
) *AuthService {
	return &AuthService{
		cfg:       cfg,
		adminRepo: adminRepo,
		sessions:  sessions,
		mfa:       mfaService,
		captcha:   captcha,
		loginLogs: loginLogs,
		notifier:  notifier,
	}
}

// HashPassword 使用 bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// burnPasswordCheck 账号不存在时仍执行一次 bcrypt，避免通过耗时枚举账号
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("snap-admin-placeholder"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// ValidatePassword 校验密码是否符合策略
func (s *AuthService) ValidatePassword(password string, identities ...string) error {
	if s == nil || s.cfg == nil {
		return nil
	}
	return validatePassword(s.cfg.Security.PasswordPolicy, password, identities...)
}

// Login 管理员登录：密码通过后，已启用二次验证的账号还需提交 TOTP 码或备用码
func (s *AuthService) Login(ctx context.Context, input AdminLoginInput) (*AdminLoginResult, error) {
	account := strings.ToLower(strings.TrimSpace(input.Account))
	record := RecordAdminLoginInput{
		Account:   account,
		ClientIP:  input.ClientIP,
		UserAgent: input.UserAgent,
		RequestID: input.RequestID,
	}
	fail := func(reason string, err error) (*AdminLoginResult, error) {
		record.Status = constants.LoginLogStatusFailed
		record.FailReason = reason
		s.loginLogs.Record(ctx, record)
		metrics.ObserveLogin(constants.LoginLogStatusFailed)
		return nil, err
	}

	if account == "" || input.Password == "" {
		return fail(constants.LoginLogFailReasonBadRequest, ErrBadRequest)
	}
	if err := s.captcha.Verify(constants.CaptchaSceneLogin, input.Captcha); err != nil {
		reason := constants.LoginLogFailReasonCaptchaInvalid
		if errors.Is(err, ErrCaptchaRequired) {
			reason = constants.LoginLogFailReasonCaptchaRequired
		}
		return fail(reason, err)
	}

	admin, err := s.findAdmin(ctx, account)
	if err != nil {
		if errors.Is(err, ErrInvalidEmail) {
			return fail(constants.LoginLogFailReasonInvalidEmail, ErrInvalidCredentials)
		}
		return fail(constants.LoginLogFailReasonStorageUnavailable, storageErr(err))
	}
	if admin == nil {
		burnPasswordCheck(input.Password)
		return fail(constants.LoginLogFailReasonAccountNotFound, ErrInvalidCredentials)
	}
	record.AdminID = admin.ID

	if err := VerifyPassword(admin.PasswordHash, input.Password); err != nil {
		return fail(constants.LoginLogFailReasonPasswordMismatch, ErrInvalidCredentials)
	}
	if !admin.IsActive {
		return fail(constants.LoginLogFailReasonAccountInactive, ErrInvalidCredentials)
	}

	state, err := s.mfa.stateOf(admin)
	if err != nil {
		return fail(constants.LoginLogFailReasonMFAStateCorrupt, err)
	}

	result := &AdminLoginResult{Admin: admin}
	if state == MFAStateEnabled {
		if strings.TrimSpace(input.MFACode) == "" {
			record.Status = constants.LoginLogStatusMFARequired
			s.loginLogs.Record(ctx, record)
			metrics.ObserveLogin(constants.LoginLogStatusMFARequired)
			return &AdminLoginResult{MFARequired: true}, nil
		}
		outcome, err := s.mfa.VerifyLoginCode(ctx, admin, input.MFACode)
		record.MFAMethod = outcome.Method
		if err != nil {
			reason := outcome.FailReason
			if reason == "" {
				reason = constants.LoginLogFailReasonInternalError
			}
			return fail(reason, err)
		}
		result.MFAMethod = outcome.Method
		result.BackupCodesRemaining = outcome.BackupCodesRemaining
	}

	token, expiresAt, err := s.sessions.Issue(admin)
	if err != nil {
		return fail(constants.LoginLogFailReasonInternalError, err)
	}
	result.Token = token
	result.ExpiresAt = expiresAt

	now := time.Now()
	if _, err := s.adminRepo.UpdateFields(ctx, admin.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		logger.Warnw("admin_login_update_last_login_failed", "admin_id", admin.ID, "error", err)
	}
	admin.LastLoginAt = &now

	record.Status = constants.LoginLogStatusSuccess
	s.loginLogs.Record(ctx, record)
	metrics.ObserveLogin(constants.LoginLogStatusSuccess)
	return result, nil
}

// Profile 获取当前管理员资料
func (s *AuthService) Profile(ctx context.Context, adminID uint) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, storageErr(err)
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}
	return admin, nil
}

// ChangePassword 修改管理员密码，成功后已签发的 Token 全部失效
func (s *AuthService) ChangePassword(ctx context.Context, adminID uint, oldPassword, newPassword string) error {
	admin, err := s.Profile(ctx, adminID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(admin.PasswordHash, oldPassword); err != nil {
		return ErrInvalidPassword
	}
	if err := s.ValidatePassword(newPassword, admin.Username, admin.Email); err != nil {
		return err
	}

	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	now := time.Now()
	if _, err := s.adminRepo.UpdateFields(ctx, admin.ID, map[string]interface{}{
		"password_hash":        hashedPassword,
		"token_version":        gorm.Expr("token_version + 1"),
		"token_invalid_before": now,
	}); err != nil {
		return storageErr(err)
	}
	invalidateAuthState(ctx, admin.ID)
	logger.Infow("admin_password_changed", "admin_id", admin.ID)
	if s.notifier != nil {
		s.notifier.Notify(admin.ID, constants.SecurityEventPasswordChanged, 0)
	}
	return nil
}

func (s *AuthService) findAdmin(ctx context.Context, account string) (*models.Admin, error) {
	if strings.Contains(account, "@") {
		email, err := normalizeEmail(account)
		if err != nil {
			return nil, err
		}
		return s.adminRepo.GetByEmail(ctx, email)
	}
	return s.adminRepo.GetByUsername(ctx, account)
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

// NormalizeEmail 统一邮箱格式
func NormalizeEmail(email string) (string, error) {
	return normalizeEmail(email)
}
