package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/cache"
	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/metrics"
	"github.com/maronglamin/snap-admin-sub004/internal/mfa"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"

	"gorm.io/gorm"
)

// MFAState 二次验证状态
type MFAState string

const (
	MFAStateDisabled MFAState = "DISABLED"
	MFAStatePending  MFAState = "PENDING_ENROLLMENT"
	MFAStateEnabled  MFAState = "ENABLED"
)

// MFAStateOf 由持久化字段推导状态；其它组合视为数据损坏
func MFAStateOf(admin *models.Admin) (MFAState, error) {
	if admin == nil {
		return "", ErrAdminNotFound
	}
	hasSecret := strings.TrimSpace(admin.MFASecret) != ""
	switch {
	case !admin.MFAEnabled && !admin.MFAVerified && !hasSecret:
		return MFAStateDisabled, nil
	case !admin.MFAEnabled && !admin.MFAVerified && hasSecret:
		return MFAStatePending, nil
	case admin.MFAEnabled && admin.MFAVerified && hasSecret:
		return MFAStateEnabled, nil
	default:
		return "", ErrMFAStateCorrupt
	}
}

// MFAEnrollment 开启流程返回值，明文仅此一次
type MFAEnrollment struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	BackupCodes     []string `json:"backup_codes"`
}

// MFAStatus 二次验证状态概览
type MFAStatus struct {
	State                MFAState `json:"state"`
	Enabled              bool     `json:"enabled"`
	BackupCodesRemaining int64    `json:"backup_codes_remaining"`
}

// MFAOutcome 登录第二因子校验结果
type MFAOutcome struct {
	Method               string
	FailReason           string
	BackupCodesRemaining int64
}

// MFAService 二次验证协调器
type MFAService struct {
	db        *gorm.DB
	adminRepo repository.AdminRepository
	totp      *mfa.TOTPEngine
	backup    *BackupCodeService
	limiter   *cache.AttemptLimiter
	notifier  SecurityNotifier
	lowCodes  int64
	now       func() time.Time
}

// NewMFAService 创建二次验证服务
func NewMFAService(
	db *gorm.DB,
	adminRepo repository.AdminRepository,
	totp *mfa.TOTPEngine,
	backup *BackupCodeService,
	limiter *cache.AttemptLimiter,
	notifier SecurityNotifier,
	lowCodes int,
) *MFAService {
	return &MFAService{
		db:        db,
		adminRepo: adminRepo,
		totp:      totp,
		backup:    backup,
		limiter:   limiter,
		notifier:  notifier,
		lowCodes:  int64(lowCodes),
		now:       time.Now,
	}
}

// Enroll 生成新的待确认密钥与备用码；已启用时拒绝
func (s *MFAService) Enroll(ctx context.Context, adminID uint) (*MFAEnrollment, error) {
	admin, state, err := s.loadWithState(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if state == MFAStateEnabled {
		return nil, ErrMFAAlreadyEnabled
	}

	account := strings.TrimSpace(admin.Email)
	if account == "" {
		account = admin.Username
	}
	secret, uri, err := s.totp.GenerateSecret(account)
	if err != nil {
		return nil, err
	}
	codes, err := s.backup.Generate()
	if err != nil {
		return nil, err
	}

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		rows, err := s.adminRepo.WithTx(tx).SetPendingMFASecret(ctx, admin.ID, secret)
		if err != nil {
			return storageErr(err)
		}
		if rows == 0 {
			return ErrMFAStateConflict
		}
		return s.backup.Replace(ctx, tx, admin.ID, codes)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("admin_mfa_enrollment_started", "admin_id", admin.ID, "re_enroll", state == MFAStatePending)
	return &MFAEnrollment{
		Secret:          secret,
		ProvisioningURI: uri,
		BackupCodes:     codes,
	}, nil
}

// Confirm 用当前 TOTP 码确认开启；错误码返回 false 且状态不变
func (s *MFAService) Confirm(ctx context.Context, adminID uint, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if !mfa.IsTOTPCode(code) {
		return false, mfa.ErrInvalidCodeFormat
	}
	admin, state, err := s.loadWithState(ctx, adminID)
	if err != nil {
		return false, err
	}
	if state != MFAStatePending {
		return false, ErrMFANotPending
	}
	if err := s.checkLimiter(ctx, admin.ID); err != nil {
		return false, err
	}

	ok, err := s.totp.Verify(admin.MFASecret, code, s.now())
	if err != nil {
		return false, s.secretErr(admin.ID, err)
	}
	metrics.ObserveMFAVerify(constants.MFAMethodTOTP, ok)
	if !ok {
		s.recordFailure(ctx, admin.ID)
		return false, nil
	}

	rows, err := s.adminRepo.ActivateMFA(ctx, admin.ID, admin.MFASecret)
	if err != nil {
		return false, storageErr(err)
	}
	if rows == 0 {
		return false, ErrMFAStateConflict
	}
	s.resetLimiter(ctx, admin.ID)
	logger.Infow("admin_mfa_enabled", "admin_id", admin.ID)
	s.notify(admin.ID, constants.SecurityEventMFAEnabled, 0)
	return true, nil
}

// Disable 清空全部 MFA 数据并使已签发会话失效；供本人关闭（已校验因子）与管理员重置共用
func (s *MFAService) Disable(ctx context.Context, adminID uint) error {
	if adminID == 0 {
		return ErrAdminNotFound
	}
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		rows, err := s.adminRepo.WithTx(tx).ClearMFA(ctx, adminID, s.now())
		if err != nil {
			return storageErr(err)
		}
		if rows == 0 {
			return ErrAdminNotFound
		}
		return s.backup.DeleteAll(ctx, tx, adminID)
	})
	if err != nil {
		return err
	}
	invalidateAuthState(ctx, adminID)
	s.resetLimiter(ctx, adminID)
	logger.Infow("admin_mfa_disabled", "admin_id", adminID)
	s.notify(adminID, constants.SecurityEventMFADisabled, 0)
	return nil
}

// DisableWithFactor 本人关闭二次验证，需提供当前 TOTP 码或备用码
func (s *MFAService) DisableWithFactor(ctx context.Context, adminID uint, code string) error {
	if err := s.requireFactor(ctx, adminID, code); err != nil {
		return err
	}
	return s.Disable(ctx, adminID)
}

// RegenerateBackupCodes 重新生成备用码，旧码全部作废
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, adminID uint, code string) ([]string, error) {
	if err := s.requireFactor(ctx, adminID, code); err != nil {
		return nil, err
	}
	codes, err := s.backup.Generate()
	if err != nil {
		return nil, err
	}
	if err := s.transaction(ctx, func(tx *gorm.DB) error {
		return s.backup.Replace(ctx, tx, adminID, codes)
	}); err != nil {
		return nil, err
	}
	logger.Infow("admin_backup_codes_regenerated", "admin_id", adminID, "count", len(codes))
	s.notify(adminID, constants.SecurityEventBackupCodesRegenerated, int64(len(codes)))
	return codes, nil
}

// Status 查询状态与剩余备用码数量
func (s *MFAService) Status(ctx context.Context, adminID uint) (*MFAStatus, error) {
	_, state, err := s.loadWithState(ctx, adminID)
	if err != nil {
		return nil, err
	}
	status := &MFAStatus{State: state, Enabled: state == MFAStateEnabled}
	if state == MFAStateDisabled {
		return status, nil
	}
	remaining, err := s.backup.Remaining(ctx, adminID)
	if err != nil {
		return nil, err
	}
	status.BackupCodesRemaining = remaining
	return status, nil
}

// VerifyLoginCode 登录第二步：6 位数字走 TOTP（含防重放），其余按备用码核销
// 所有失败对外统一为 ErrInvalidCredentials，具体原因仅写入 outcome
func (s *MFAService) VerifyLoginCode(ctx context.Context, admin *models.Admin, code string) (MFAOutcome, error) {
	outcome := MFAOutcome{}
	state, err := s.stateOf(admin)
	if err != nil {
		outcome.FailReason = constants.LoginLogFailReasonMFAStateCorrupt
		return outcome, err
	}
	if state != MFAStateEnabled {
		return outcome, ErrMFANotEnabled
	}
	if err := s.checkLimiter(ctx, admin.ID); err != nil {
		if errors.Is(err, ErrMFATooManyAttempts) {
			outcome.FailReason = constants.LoginLogFailReasonMFARateLimited
		} else {
			outcome.FailReason = constants.LoginLogFailReasonStorageUnavailable
		}
		return outcome, err
	}

	ok, method, reason, err := s.checkFactor(ctx, admin, code, true)
	outcome.Method = method
	if err != nil {
		outcome.FailReason = constants.LoginLogFailReasonStorageUnavailable
		if errors.Is(err, ErrMFAStateCorrupt) {
			outcome.FailReason = constants.LoginLogFailReasonMFAStateCorrupt
		}
		return outcome, err
	}
	if !ok {
		outcome.FailReason = reason
		s.recordFailure(ctx, admin.ID)
		return outcome, ErrInvalidCredentials
	}
	s.resetLimiter(ctx, admin.ID)

	if method == constants.MFAMethodBackupCode {
		remaining, err := s.backup.Remaining(ctx, admin.ID)
		if err != nil {
			logger.Warnw("admin_backup_code_count_failed", "admin_id", admin.ID, "error", err)
		} else {
			outcome.BackupCodesRemaining = remaining
		}
		logger.Infow("admin_backup_code_used", "admin_id", admin.ID, "remaining", remaining)
		s.notify(admin.ID, constants.SecurityEventBackupCodeUsed, remaining)
		if s.lowCodes > 0 && remaining < s.lowCodes {
			logger.Warnw("admin_backup_codes_low", "admin_id", admin.ID, "remaining", remaining)
		}
	}
	return outcome, nil
}

// requireFactor 已启用状态下校验当前因子（不记录时间步）
func (s *MFAService) requireFactor(ctx context.Context, adminID uint, code string) error {
	admin, state, err := s.loadWithState(ctx, adminID)
	if err != nil {
		return err
	}
	if state != MFAStateEnabled {
		return ErrMFANotEnabled
	}
	if strings.TrimSpace(code) == "" {
		return ErrMFACodeRequired
	}
	if err := s.checkLimiter(ctx, admin.ID); err != nil {
		return err
	}
	ok, _, _, err := s.checkFactor(ctx, admin, code, false)
	if err != nil {
		return err
	}
	if !ok {
		s.recordFailure(ctx, admin.ID)
		return ErrInvalidCredentials
	}
	s.resetLimiter(ctx, admin.ID)
	return nil
}

// checkFactor 返回 (是否通过, 方式, 失败原因, 错误)
func (s *MFAService) checkFactor(ctx context.Context, admin *models.Admin, code string, guardReplay bool) (bool, string, string, error) {
	code = strings.TrimSpace(code)
	if mfa.IsTOTPCode(code) {
		step, ok, err := s.totp.VerifyStep(admin.MFASecret, code, s.now())
		if err != nil {
			return false, constants.MFAMethodTOTP, "", s.secretErr(admin.ID, err)
		}
		if ok && guardReplay {
			recorded, err := s.adminRepo.RecordTOTPStep(ctx, admin.ID, step)
			if err != nil {
				return false, constants.MFAMethodTOTP, "", storageErr(err)
			}
			if !recorded {
				metrics.ObserveMFAVerify(constants.MFAMethodTOTP, false)
				return false, constants.MFAMethodTOTP, constants.LoginLogFailReasonMFAReplayed, nil
			}
		}
		metrics.ObserveMFAVerify(constants.MFAMethodTOTP, ok)
		return ok, constants.MFAMethodTOTP, constants.LoginLogFailReasonMFAInvalidCode, nil
	}

	ok, err := s.backup.Consume(ctx, admin.ID, code)
	if err != nil {
		return false, constants.MFAMethodBackupCode, "", err
	}
	metrics.ObserveMFAVerify(constants.MFAMethodBackupCode, ok)
	return ok, constants.MFAMethodBackupCode, constants.LoginLogFailReasonMFAInvalidCode, nil
}

func (s *MFAService) loadWithState(ctx context.Context, adminID uint) (*models.Admin, MFAState, error) {
	if adminID == 0 {
		return nil, "", ErrAdminNotFound
	}
	admin, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, "", storageErr(err)
	}
	if admin == nil {
		return nil, "", ErrAdminNotFound
	}
	state, err := s.stateOf(admin)
	if err != nil {
		return nil, "", err
	}
	return admin, state, nil
}

func (s *MFAService) stateOf(admin *models.Admin) (MFAState, error) {
	state, err := MFAStateOf(admin)
	if errors.Is(err, ErrMFAStateCorrupt) {
		logger.Errorw("mfa_state_invariant_violated",
			"admin_id", admin.ID,
			"mfa_enabled", admin.MFAEnabled,
			"mfa_verified", admin.MFAVerified,
		)
	}
	return state, err
}

// secretErr 已存密钥无法解码视为状态损坏
func (s *MFAService) secretErr(adminID uint, err error) error {
	if errors.Is(err, mfa.ErrInvalidSecret) {
		logger.Errorw("mfa_state_invariant_violated", "admin_id", adminID, "reason", "undecodable_secret")
		return fmt.Errorf("%w: %v", ErrMFAStateCorrupt, err)
	}
	return err
}

func (s *MFAService) limiterSubject(adminID uint) string {
	return fmt.Sprintf("admin:%d", adminID)
}

func (s *MFAService) checkLimiter(ctx context.Context, adminID uint) error {
	blocked, _, err := s.limiter.Blocked(ctx, s.limiterSubject(adminID))
	if err != nil {
		logger.Warnw("mfa_attempt_limiter_unavailable", "admin_id", adminID, "error", err)
		return ErrRateLimitUnavailable
	}
	if blocked {
		return ErrMFATooManyAttempts
	}
	return nil
}

func (s *MFAService) recordFailure(ctx context.Context, adminID uint) {
	blocked, err := s.limiter.RecordFailure(ctx, s.limiterSubject(adminID))
	if err != nil {
		logger.Warnw("mfa_attempt_limiter_record_failed", "admin_id", adminID, "error", err)
		return
	}
	if blocked {
		logger.Warnw("mfa_attempts_blocked", "admin_id", adminID)
	}
}

func (s *MFAService) resetLimiter(ctx context.Context, adminID uint) {
	if err := s.limiter.Reset(ctx, s.limiterSubject(adminID)); err != nil {
		logger.Debugw("mfa_attempt_limiter_reset_failed", "admin_id", adminID, "error", err)
	}
}

func (s *MFAService) notify(adminID uint, event string, remaining int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(adminID, event, remaining)
}

func (s *MFAService) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	for _, target := range []error{ErrStorageUnavailable, ErrMFAStateConflict, ErrAdminNotFound} {
		if errors.Is(err, target) {
			return err
		}
	}
	return storageErr(err)
}
