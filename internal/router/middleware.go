package router

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"
	"github.com/maronglamin/snap-admin-sub004/internal/i18n"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/metrics"
	"github.com/maronglamin/snap-admin-sub004/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"
const principalContextKey = "principal"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			"X-CSRF-Token",
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// SessionVerifier 会话校验
type SessionVerifier interface {
	Verify(ctx context.Context, tokenString string) (*authz.Principal, error)
}

// AdminSessionMiddleware 管理端会话中间件
// 所有校验失败统一返回 401，不区分失败原因；会话存储不可用返回 503
func AdminSessionMiddleware(sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil {
			logger.Errorw("admin_session_verifier_unavailable")
			abortUnauthorized(c)
			return
		}
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			metrics.ObserveSessionFailure(service.SessionFailureKind(service.ErrMalformedToken))
			abortUnauthorized(c)
			return
		}

		principal, err := sessions.Verify(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, service.ErrStorageUnavailable) {
				msg := i18n.T(i18n.ResolveLocale(c), "error.storage_unavailable")
				response.Error(c, response.CodeServiceUnavailable, msg)
				c.Abort()
				return
			}
			abortUnauthorized(c)
			return
		}

		c.Set(principalContextKey, principal)
		c.Set("admin_id", principal.AdminID)
		c.Set("username", principal.Username)
		c.Next()
	}
}

// bearerToken 解析 Authorization 头；缺失时返回空 Token 交由会话校验判定
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", true
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func abortUnauthorized(c *gin.Context) {
	msg := i18n.T(i18n.ResolveLocale(c), "error.unauthorized")
	response.Unauthorized(c, msg)
	c.Abort()
}

// RequirePermission 要求调用方拥有 (entity, action)
func RequirePermission(entity authz.EntityType, action authz.Action) gin.HandlerFunc {
	perm := authz.Permission{Entity: entity, Action: action}
	return permissionGuard([]authz.Permission{perm}, func(p *authz.Principal) bool {
		return authz.HasPermission(p, entity, action)
	})
}

// RequireAny 任一权限满足即放行
func RequireAny(perms ...authz.Permission) gin.HandlerFunc {
	return permissionGuard(perms, func(p *authz.Principal) bool {
		return authz.HasAny(p, perms...)
	})
}

// RequireAll 全部权限满足才放行
func RequireAll(perms ...authz.Permission) gin.HandlerFunc {
	return permissionGuard(perms, func(p *authz.Principal) bool {
		return authz.HasAll(p, perms...)
	})
}

func permissionGuard(perms []authz.Permission, allow func(*authz.Principal) bool) gin.HandlerFunc {
	required := make([]string, 0, len(perms))
	for _, perm := range perms {
		required = append(required, perm.String())
	}
	return func(c *gin.Context) {
		value, exists := c.Get(principalContextKey)
		principal, _ := value.(*authz.Principal)
		if !exists || principal == nil {
			abortUnauthorized(c)
			return
		}
		allowed := allow(principal)
		metrics.ObserveAuthzDecision(allowed)
		if !allowed {
			logger.Warnw("admin_permission_denied",
				"request_id", getRequestID(c),
				"admin_id", principal.AdminID,
				"role", principal.Role,
				"required", required,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			msg := i18n.T(i18n.ResolveLocale(c), "error.forbidden")
			response.Forbidden(c, msg)
			c.Abort()
			return
		}
		c.Next()
	}
}
