package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	authStateCacheTTL = 10 * time.Minute
	// 代际计数须比快照活得久，否则过期后回填无法识别失效
	authStateGenerationTTL = 24 * time.Hour
)

// KEYS[1] 快照，KEYS[2] 代际；ARGV 依次为读库前的代际、快照 JSON、TTL 秒数
var setAuthStateIfCurrentScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "EX", ARGV[3])
return 1
`)

// KEYS[1] 快照，KEYS[2] 代际；ARGV[1] 代际 TTL 秒数
var invalidateAuthStateScript = redis.NewScript(`
redis.call("INCR", KEYS[2])
redis.call("EXPIRE", KEYS[2], ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

// AdminAuthState 管理员鉴权快照
// token_invalid_before 为 Unix 秒时间戳，0 表示未设置
// 该结构仅用于服务端 Redis 缓存，会话校验时替代数据库查询
type AdminAuthState struct {
	AdminID            uint   `json:"admin_id"`
	Username           string `json:"username"`
	IsActive           bool   `json:"is_active"`
	RoleID             uint   `json:"role_id"`
	RoleName           string `json:"role_name"`
	EntityName         string `json:"entity_name"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
	UpdatedAt          int64  `json:"updated_at"`
}

func adminAuthStateKey(adminID uint) string {
	return fmt.Sprintf("auth:admin:%d", adminID)
}

func adminAuthGenerationKey(adminID uint) string {
	return fmt.Sprintf("auth:admin:%d:gen", adminID)
}

// BuildAdminAuthState 从管理员模型构建鉴权快照
func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	state := &AdminAuthState{
		AdminID:      admin.ID,
		Username:     admin.Username,
		IsActive:     admin.IsActive,
		RoleID:       admin.RoleID(),
		RoleName:     admin.RoleName(),
		EntityName:   admin.EntityName(),
		TokenVersion: admin.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
	if admin.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

// GetAdminAuthState 获取管理员鉴权快照
func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	var state AdminAuthState
	hit, err := GetJSON(ctx, adminAuthStateKey(adminID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// AdminAuthStateGeneration 读取快照代际，回源数据库之前调用
func AdminAuthStateGeneration(ctx context.Context, adminID uint) (string, error) {
	if !Enabled() || adminID == 0 {
		return "", nil
	}
	gen, err := redisClient.Get(ctx, buildKey(adminAuthGenerationKey(adminID))).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return gen, nil
}

// SetAdminAuthStateIfCurrent 仅当代际未变化时回填快照。
// 读库与回填之间发生的失效会推进代际，旧数据因此不会写回。
func SetAdminAuthStateIfCurrent(ctx context.Context, state *AdminAuthState, generation string) (bool, error) {
	if !Enabled() || state == nil || state.AdminID == 0 || generation == "" {
		return false, nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return false, err
	}
	keys := []string{
		buildKey(adminAuthStateKey(state.AdminID)),
		buildKey(adminAuthGenerationKey(state.AdminID)),
	}
	written, err := setAuthStateIfCurrentScript.Run(ctx, redisClient, keys,
		generation, string(payload), int(authStateCacheTTL/time.Second)).Int()
	if err != nil {
		return false, err
	}
	return written == 1, nil
}

// DelAdminAuthState 推进代际并删除快照
func DelAdminAuthState(ctx context.Context, adminID uint) error {
	if !Enabled() || adminID == 0 {
		return nil
	}
	keys := []string{
		buildKey(adminAuthStateKey(adminID)),
		buildKey(adminAuthGenerationKey(adminID)),
	}
	return invalidateAuthStateScript.Run(ctx, redisClient, keys,
		strconv.Itoa(int(authStateGenerationTTL/time.Second))).Err()
}

// DelAdminAuthStates 批量删除管理员鉴权快照
func DelAdminAuthStates(ctx context.Context, adminIDs []uint) error {
	for _, id := range adminIDs {
		if err := DelAdminAuthState(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
