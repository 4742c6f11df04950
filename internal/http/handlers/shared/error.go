package shared

import (
	"errors"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"
	"github.com/maronglamin/snap-admin-sub004/internal/i18n"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/mfa"
	"github.com/maronglamin/snap-admin-sub004/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	locale := i18n.ResolveLocale(c)
	respond(c, response.WrapError(code, key, i18n.T(locale, key), err))
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	respond(c, response.WrapError(code, "", msg, err))
}

func respond(c *gin.Context, appErr *response.AppError) {
	if appErr.Err != nil {
		log := RequestLog(c)
		if appErr.ServerSide() {
			log.Errorw("handler_error", "code", appErr.Code, "key", appErr.Key, "error", appErr.Err)
		} else {
			log.Warnw("handler_rejected", "code", appErr.Code, "key", appErr.Key, "error", appErr.Err)
		}
	}
	response.Error(c, appErr.Code, appErr.Message)
}

var serviceErrorKeys = []struct {
	target error
	key    string
}{
	{service.ErrInvalidEmail, "error.invalid_email"},
	{service.ErrInvalidPassword, "error.password_old_invalid"},
	{service.ErrCaptchaRequired, "error.captcha_required"},
	{service.ErrCaptchaInvalid, "error.captcha_invalid"},
	{service.ErrCaptchaDisabled, "error.captcha_disabled"},
	{service.ErrRoleInvalid, "error.role_invalid"},
	{service.ErrMFACodeRequired, "error.mfa_code_invalid_format"},
	{mfa.ErrInvalidCodeFormat, "error.mfa_code_invalid_format"},
	{authz.ErrUnknownPermission, "error.permission_invalid"},
	{service.ErrSelfOperation, "error.self_operation_forbidden"},
	{service.ErrMFATooManyAttempts, "error.mfa_too_many_attempts"},
	{service.ErrLoginRateLimited, "error.too_many_requests"},
	{service.ErrRateLimitUnavailable, "error.rate_limit_unavailable"},
	{service.ErrAdminNotFound, "error.admin_not_found"},
	{service.ErrRoleNotFound, "error.role_not_found"},
	{service.ErrEntityNotFound, "error.entity_not_found"},
	{service.ErrAdminExists, "error.admin_exists"},
	{service.ErrRoleExists, "error.role_exists"},
	{service.ErrEntityExists, "error.entity_exists"},
	{service.ErrMFAAlreadyEnabled, "error.mfa_already_enabled"},
	{service.ErrMFANotPending, "error.mfa_not_pending"},
	{service.ErrMFANotEnabled, "error.mfa_not_enabled"},
	{service.ErrMFAStateConflict, "error.mfa_state_conflict"},
}

// RespondServiceError 按服务层错误分类返回统一响应
// 认证失败一律返回 error.invalid_credentials；状态损坏与内部错误不透出细节
func RespondServiceError(c *gin.Context, err error) {
	kind := service.Classify(err)
	switch kind {
	case service.KindAuthentication:
		RespondError(c, response.CodeUnauthorized, "error.invalid_credentials", nil)
		return
	case service.KindState:
		RespondError(c, response.CodeInternal, "error.internal", err)
		return
	case service.KindStorage:
		if errors.Is(err, service.ErrRateLimitUnavailable) {
			RespondError(c, response.CodeServiceUnavailable, "error.rate_limit_unavailable", err)
			return
		}
		RespondError(c, response.CodeServiceUnavailable, "error.storage_unavailable", err)
		return
	case service.KindInternal:
		RespondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	if kind == service.KindValidation && errors.Is(err, service.ErrWeakPassword) {
		if perr, ok := err.(interface {
			Key() string
			Args() []interface{}
		}); ok {
			msg := i18n.Sprintf(i18n.ResolveLocale(c), perr.Key(), perr.Args()...)
			RespondErrorWithMsg(c, response.CodeBadRequest, msg, nil)
			return
		}
		RespondError(c, response.CodeBadRequest, "error.password_weak", nil)
		return
	}

	key := ""
	for _, item := range serviceErrorKeys {
		if errors.Is(err, item.target) {
			key = item.key
			break
		}
	}
	code := response.CodeBadRequest
	switch kind {
	case service.KindAuthorization:
		code = response.CodeForbidden
		if key == "" {
			key = "error.forbidden"
		}
	case service.KindNotFound:
		code = response.CodeNotFound
		if key == "" {
			key = "error.not_found"
		}
	case service.KindConflict:
		code = response.CodeConflict
	case service.KindRateLimited:
		code = response.CodeTooManyRequests
	}
	if key == "" {
		key = "error.bad_request"
	}
	RespondError(c, code, key, nil)
}
