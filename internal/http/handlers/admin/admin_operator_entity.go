package admin

import (
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"
	"github.com/maronglamin/snap-admin-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// ListOperatorEntities 运营主体列表
func (h *Handler) ListOperatorEntities(c *gin.Context) {
	entities, err := h.OperatorEntityService.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, entities)
}

// CreateOperatorEntityRequest 创建运营主体请求
type CreateOperatorEntityRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	RoleID      uint   `json:"role_id" binding:"required"`
}

// CreateOperatorEntity 创建运营主体
func (h *Handler) CreateOperatorEntity(c *gin.Context) {
	var req CreateOperatorEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	entity, err := h.OperatorEntityService.Create(c.Request.Context(), currentActor(c), service.CreateOperatorEntityInput{
		Name:        req.Name,
		Description: req.Description,
		RoleID:      req.RoleID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, entity)
}

// AssignEntityRoleRequest 变更主体角色请求
type AssignEntityRoleRequest struct {
	RoleID uint `json:"role_id" binding:"required"`
}

// AssignOperatorEntityRole 变更主体绑定角色，主体成员的会话全部失效
func (h *Handler) AssignOperatorEntityRole(c *gin.Context) {
	id, ok := parseIDParam(c, "error.bad_request")
	if !ok {
		return
	}
	var req AssignEntityRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	entity, err := h.OperatorEntityService.AssignRole(c.Request.Context(), currentActor(c), id, req.RoleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, entity)
}
