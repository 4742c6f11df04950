package service

import (
	"errors"
	"fmt"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	"github.com/maronglamin/snap-admin-sub004/internal/mfa"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrBadRequest           = errors.New("bad request")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidPassword      = errors.New("old password invalid")
	ErrWeakPassword         = errors.New("password does not satisfy policy")
	ErrForbidden            = errors.New("forbidden")
	ErrSelfOperation        = errors.New("operation not allowed on own account")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrLoginRateLimited     = errors.New("login rate limited")
	ErrRateLimitUnavailable = errors.New("rate limit unavailable")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaDisabled      = errors.New("captcha disabled")
	ErrSigningKeyMissing    = errors.New("session signing key missing")
)

// MFA 状态机错误
var (
	ErrMFAStateCorrupt    = errors.New("mfa state invariant violated")
	ErrMFAAlreadyEnabled  = errors.New("mfa already enabled")
	ErrMFANotPending      = errors.New("mfa enrollment not pending")
	ErrMFANotEnabled      = errors.New("mfa not enabled")
	ErrMFAStateConflict   = errors.New("mfa state changed concurrently")
	ErrMFATooManyAttempts = errors.New("too many mfa attempts")
	ErrMFACodeRequired    = errors.New("mfa code required")
)

// 管理对象错误
var (
	ErrAdminNotFound  = errors.New("admin not found")
	ErrAdminExists    = errors.New("admin already exists")
	ErrRoleNotFound   = authz.ErrRoleNotFound
	ErrRoleExists     = errors.New("role already exists")
	ErrRoleInvalid    = errors.New("role invalid")
	ErrEntityNotFound = errors.New("operator entity not found")
	ErrEntityExists   = errors.New("operator entity already exists")
)

// ErrUnauthenticated 所有会话校验失败的公共根错误
var ErrUnauthenticated = errors.New("unauthenticated")

// 会话校验失败类型，均满足 errors.Is(err, ErrUnauthenticated)
var (
	ErrMissingToken     = fmt.Errorf("%w: missing token", ErrUnauthenticated)
	ErrMalformedToken   = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", ErrUnauthenticated)
	ErrExpiredToken     = fmt.Errorf("%w: expired token", ErrUnauthenticated)
	ErrAccountInactive  = fmt.Errorf("%w: account inactive", ErrUnauthenticated)
	ErrTokenRevoked     = fmt.Errorf("%w: token revoked", ErrUnauthenticated)
)

// SessionFailureKind 返回会话失败类型标签，用于日志与指标
func SessionFailureKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, ErrAccountInactive):
		return "account_inactive"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "unknown"
	}
}

// ErrorKind 错误分类
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindState
	KindStorage
	KindNotFound
	KindConflict
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindStorage:
		return "storage"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Classify 将服务层错误归类
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrMFAStateCorrupt):
		return KindState
	case errors.Is(err, ErrStorageUnavailable), errors.Is(err, ErrRateLimitUnavailable):
		return KindStorage
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return KindAuthentication
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrSelfOperation):
		return KindAuthorization
	case errors.Is(err, ErrLoginRateLimited), errors.Is(err, ErrMFATooManyAttempts):
		return KindRateLimited
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAdminNotFound),
		errors.Is(err, ErrRoleNotFound),
		errors.Is(err, ErrEntityNotFound):
		return KindNotFound
	case errors.Is(err, ErrAdminExists),
		errors.Is(err, ErrRoleExists),
		errors.Is(err, ErrEntityExists),
		errors.Is(err, ErrMFAAlreadyEnabled),
		errors.Is(err, ErrMFANotPending),
		errors.Is(err, ErrMFANotEnabled),
		errors.Is(err, ErrMFAStateConflict):
		return KindConflict
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrRoleInvalid),
		errors.Is(err, ErrMFACodeRequired),
		errors.Is(err, ErrCaptchaRequired),
		errors.Is(err, ErrCaptchaInvalid),
		errors.Is(err, ErrCaptchaDisabled),
		errors.Is(err, authz.ErrUnknownPermission),
		errors.Is(err, mfa.ErrInvalidCodeFormat):
		return KindValidation
	default:
		return KindInternal
	}
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
