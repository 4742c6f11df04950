package admin

import "github.com/maronglamin/snap-admin-sub004/internal/provider"

// Handler 运营后台接口：登录、MFA、管理员、角色矩阵与审计查询。
// 鉴权由路由层的会话中间件与权限声明完成，处理器只读取 principal。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
