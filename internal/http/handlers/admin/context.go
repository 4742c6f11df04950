package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	handlershared "github.com/maronglamin/snap-admin-sub004/internal/http/handlers/shared"
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"
	"github.com/maronglamin/snap-admin-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "admin_id", "error.admin_id_invalid", "error.admin_id_type_invalid")
}

func parseIDParam(c *gin.Context, invalidKey string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, invalidKey, nil)
		return 0, false
	}
	return uint(id), true
}

func parseUintQuery(c *gin.Context, key string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return 0, false
	}
	return uint(value), true
}

func parseBoolQuery(c *gin.Context, key string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return nil, false
	}
	return &value, true
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func currentAdminID(c *gin.Context) uint {
	value, exists := c.Get("admin_id")
	if !exists {
		return 0
	}
	if adminID, ok := value.(uint); ok {
		return adminID
	}
	return 0
}

func currentUsername(c *gin.Context) string {
	return strings.TrimSpace(handlershared.GetContextString(c, "username"))
}

func currentRequestID(c *gin.Context) string {
	return strings.TrimSpace(handlershared.GetContextString(c, "request_id"))
}

// currentActor 当前操作人，用于审计
func currentActor(c *gin.Context) service.AuditActor {
	return service.AuditActor{
		AdminID:   currentAdminID(c),
		Username:  currentUsername(c),
		RequestID: currentRequestID(c),
	}
}

func currentPrincipal(c *gin.Context) *authz.Principal {
	value, exists := c.Get("principal")
	if !exists {
		return nil
	}
	principal, _ := value.(*authz.Principal)
	return principal
}
