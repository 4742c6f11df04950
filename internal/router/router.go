package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	"github.com/maronglamin/snap-admin-sub004/internal/cache"
	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	adminhandlers "github.com/maronglamin/snap-admin-sub004/internal/http/handlers/admin"
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/metrics"
	"github.com/maronglamin/snap-admin-sub004/internal/provider"

	"github.com/gin-gonic/gin"
)

const adminAPIPrefix = "/api/v1/admin"

// adminRoute 管理端受保护路由；require 为空表示仅需登录
type adminRoute struct {
	method  string
	path    string
	require []authz.Permission
	handler gin.HandlerFunc
}

func perm(entity authz.EntityType, action authz.Action) []authz.Permission {
	return []authz.Permission{{Entity: entity, Action: action}}
}

func adminRoutes(h *adminhandlers.Handler) []adminRoute {
	return []adminRoute{
		// 当前管理员
		{method: "GET", path: "/me", handler: h.GetAdminMe},
		{method: "PUT", path: "/password", handler: h.UpdateAdminPassword},
		{method: "POST", path: "/mfa/enroll", handler: h.EnrollMFA},
		{method: "POST", path: "/mfa/confirm", handler: h.ConfirmMFA},
		{method: "POST", path: "/mfa/disable", handler: h.DisableMFA},
		{method: "POST", path: "/mfa/backup-codes", handler: h.RegenerateBackupCodes},
		{method: "GET", path: "/mfa/status", handler: h.GetMFAStatus},

		// 角色与权限矩阵
		{method: "GET", path: "/authz/catalog", require: perm(authz.EntityRoleManagement, authz.ActionView), handler: h.GetAuthzCatalog},
		{method: "GET", path: "/authz/roles", require: perm(authz.EntityRoleManagement, authz.ActionView), handler: h.ListAuthzRoles},
		{method: "POST", path: "/authz/roles", require: perm(authz.EntityRoleManagement, authz.ActionAdd), handler: h.CreateAuthzRole},
		{method: "PUT", path: "/authz/roles/:id", require: perm(authz.EntityRoleManagement, authz.ActionEdit), handler: h.UpdateAuthzRole},
		{method: "GET", path: "/authz/roles/:id/matrix", require: perm(authz.EntityRoleManagement, authz.ActionView), handler: h.GetAuthzRoleMatrix},
		{method: "PUT", path: "/authz/roles/:id/matrix", require: perm(authz.EntityRoleManagement, authz.ActionEdit), handler: h.SetAuthzRoleMatrix},

		// 运营主体
		{method: "GET", path: "/operator-entities", require: perm(authz.EntityOperatorEntity, authz.ActionView), handler: h.ListOperatorEntities},
		{method: "POST", path: "/operator-entities", require: perm(authz.EntityOperatorEntity, authz.ActionAdd), handler: h.CreateOperatorEntity},
		{method: "PUT", path: "/operator-entities/:id/role", require: perm(authz.EntityOperatorEntity, authz.ActionEdit), handler: h.AssignOperatorEntityRole},

		// 管理员
		{method: "GET", path: "/admins", require: perm(authz.EntityAdminManagement, authz.ActionView), handler: h.ListAdmins},
		{method: "GET", path: "/admins/:id", require: perm(authz.EntityAdminManagement, authz.ActionView), handler: h.GetAdmin},
		{method: "POST", path: "/admins", require: perm(authz.EntityAdminManagement, authz.ActionAdd), handler: h.CreateAdmin},
		{method: "PUT", path: "/admins/:id/active", require: perm(authz.EntityAdminManagement, authz.ActionEdit), handler: h.SetAdminActive},
		{method: "PUT", path: "/admins/:id/entity", require: perm(authz.EntityAdminManagement, authz.ActionEdit), handler: h.AssignAdminEntity},
		{method: "POST", path: "/admins/:id/mfa/reset", require: perm(authz.EntityAdminManagement, authz.ActionEdit), handler: h.ResetAdminMFA},

		// 审计
		{method: "GET", path: "/authz/audit-logs", require: perm(authz.EntityAuditLog, authz.ActionView), handler: h.ListAuthzAuditLogs},
		{method: "GET", path: "/login-logs", require: perm(authz.EntityAuditLog, authz.ActionView), handler: h.ListAdminLoginLogs},
	}
}

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	adminLoginRule := RateLimitRule{
		Name:          "admin_login",
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	admin := r.Group(adminAPIPrefix)
	{
		admin.GET("/captcha/config", adminHandler.GetCaptchaConfig)
		admin.GET("/captcha/image", adminHandler.GetCaptchaImage)
		admin.POST("/login", RateLimitMiddleware(cache.Client(), adminLoginRule, KeyByIPAndJSONField("account")), adminHandler.AdminLogin)

		authorized := admin.Group("", AdminSessionMiddleware(c.SessionService))
		routes := adminRoutes(adminHandler)
		for _, route := range routes {
			handlers := make([]gin.HandlerFunc, 0, 2)
			if len(route.require) > 0 {
				handlers = append(handlers, RequireAll(route.require...))
			}
			handlers = append(handlers, route.handler)
			authorized.Handle(route.method, route.path, handlers...)
		}
		catalog := buildAdminRouteCatalog(routes)
		authorized.GET("/authz/routes", RequirePermission(authz.EntityRoleManagement, authz.ActionView), func(ctx *gin.Context) {
			response.Success(ctx, catalog)
		})
	}

	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metrics.Handler()))
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminRouteCatalogItem struct {
	Module      string   `json:"module"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Permissions []string `json:"permissions"`
}

// buildAdminRouteCatalog 列出管理端路由所需权限，供前端按权限渲染菜单
func buildAdminRouteCatalog(routes []adminRoute) []adminRouteCatalogItem {
	items := make([]adminRouteCatalogItem, 0, len(routes))
	for _, route := range routes {
		permissions := make([]string, 0, len(route.require))
		for _, p := range route.require {
			permissions = append(permissions, p.String())
		}
		items = append(items, adminRouteCatalogItem{
			Module:      deriveAdminRouteModule(route.path),
			Method:      strings.ToUpper(route.method),
			Path:        adminAPIPrefix + route.path,
			Permissions: permissions,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Path == items[j].Path {
				return items[i].Method < items[j].Method
			}
			return items[i].Path < items[j].Path
		}
		return items[i].Module < items[j].Module
	})
	return items
}

func deriveAdminRouteModule(path string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(path), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	switch segments[0] {
	case "me", "password", "mfa":
		return "account"
	}
	return segments[0]
}
