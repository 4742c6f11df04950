package shared

import (
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextUintWithKeys 读取会话中间件写入的 uint 标识。
// 缺失或为 0 视为未登录；类型不符说明中间件配置错误，按内部错误处理。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists || value == nil {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		if v == 0 {
			RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
			return 0, false
		}
		return v, true
	case int:
		if v <= 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// GetContextString 读取上下文中的字符串，缺失时返回空串
func GetContextString(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	value, ok := c.Get(key)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}
