package admin

import (
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetCaptchaConfig 登录页验证码开关
func (h *Handler) GetCaptchaConfig(c *gin.Context) {
	response.Success(c, gin.H{"enabled": h.CaptchaService.Enabled()})
}

// GetCaptchaImage 生成登录图片验证码
func (h *Handler) GetCaptchaImage(c *gin.Context) {
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, challenge)
}
