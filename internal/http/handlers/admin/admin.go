package admin

import (
	"time"

	handlershared "github.com/maronglamin/snap-admin-sub004/internal/http/handlers/shared"
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求，account 支持账号或邮箱
type LoginRequest struct {
	Account        string                              `json:"account" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	MFACode        string                              `json:"mfa_code"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token                string     `json:"token,omitempty"`
	ExpiresAt            string     `json:"expires_at,omitempty"`
	Admin                *AdminView `json:"admin,omitempty"`
	MFARequired          bool       `json:"mfa_required"`
	MFAMethod            string     `json:"mfa_method,omitempty"`
	BackupCodesRemaining *int64     `json:"backup_codes_remaining,omitempty"`
}

// AdminView 管理员对外视图
type AdminView struct {
	ID               uint       `json:"id"`
	Email            string     `json:"email"`
	Username         string     `json:"username"`
	IsActive         bool       `json:"is_active"`
	MFAEnabled       bool       `json:"mfa_enabled"`
	OperatorEntityID *uint      `json:"operator_entity_id"`
	OperatorEntity   string     `json:"operator_entity"`
	Role             string     `json:"role"`
	LastLoginAt      *time.Time `json:"last_login_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toAdminView(admin *models.Admin) *AdminView {
	if admin == nil {
		return nil
	}
	return &AdminView{
		ID:               admin.ID,
		Email:            admin.Email,
		Username:         admin.Username,
		IsActive:         admin.IsActive,
		MFAEnabled:       admin.MFAEnabled,
		OperatorEntityID: admin.OperatorEntityID,
		OperatorEntity:   admin.EntityName(),
		Role:             admin.RoleName(),
		LastLoginAt:      admin.LastLoginAt,
		CreatedAt:        admin.CreatedAt,
	}
}

// AdminLogin 管理员登录
// 开启二次验证且未提交验证码时仅返回 mfa_required，不签发会话
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	result, err := h.AuthService.Login(c.Request.Context(), service.AdminLoginInput{
		Account:   req.Account,
		Password:  req.Password,
		MFACode:   req.MFACode,
		Captcha:   req.CaptchaPayload.ToServicePayload(),
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: currentRequestID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if result.MFARequired {
		response.Success(c, LoginResponse{MFARequired: true})
		return
	}

	resp := LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
		Admin:     toAdminView(result.Admin),
		MFAMethod: result.MFAMethod,
	}
	if result.MFAMethod != "" {
		remaining := result.BackupCodesRemaining
		resp.BackupCodesRemaining = &remaining
	}
	response.Success(c, resp)
}

// MeResponse 当前管理员信息与有效权限
type MeResponse struct {
	Admin       *AdminView `json:"admin"`
	Permissions []string   `json:"permissions"`
}

// GetAdminMe 获取当前管理员资料
func (h *Handler) GetAdminMe(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AuthService.Profile(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	permissions := []string{}
	if principal := currentPrincipal(c); principal != nil {
		for _, perm := range principal.Permissions.Granted() {
			permissions = append(permissions, perm.String())
		}
	}
	response.Success(c, MeResponse{Admin: toAdminView(admin), Permissions: permissions})
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateAdminPassword 修改管理员密码
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.AuthService.ChangePassword(c.Request.Context(), id, req.OldPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}
