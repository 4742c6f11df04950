package admin

import (
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"

	"github.com/gin-gonic/gin"
)

// MFACodeRequest 提交 TOTP 验证码或备用码
type MFACodeRequest struct {
	Code string `json:"code"`
}

// EnrollMFA 发起二次验证绑定，返回密钥、绑定链接与备用码
// 密钥与备用码仅在此响应中出现一次
func (h *Handler) EnrollMFA(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}
	enrollment, err := h.MFAService.Enroll(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.Success(c, enrollment)
}

// ConfirmMFA 确认绑定
func (h *Handler) ConfirmMFA(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}
	var req MFACodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	enabled, err := h.MFAService.Confirm(c.Request.Context(), id, req.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"enabled": enabled})
}

// DisableMFA 关闭二次验证，需提交当前验证码或备用码
func (h *Handler) DisableMFA(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}
	var req MFACodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.MFAService.DisableWithFactor(c.Request.Context(), id, req.Code); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"enabled": false})
}

// RegenerateBackupCodes 重新生成备用码，旧码全部作废
func (h *Handler) RegenerateBackupCodes(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}
	var req MFACodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	codes, err := h.MFAService.RegenerateBackupCodes(c.Request.Context(), id, req.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.Success(c, gin.H{"backup_codes": codes})
}

// GetMFAStatus 二次验证状态
func (h *Handler) GetMFAStatus(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}
	status, err := h.MFAService.Status(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, status)
}
