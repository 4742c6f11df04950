package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	"github.com/maronglamin/snap-admin-sub004/internal/cache"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/metrics"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims 管理员会话声明
type SessionClaims struct {
	AdminID      uint   `json:"admin_id"`
	Role         string `json:"role"`
	Entity       string `json:"entity"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// AdminAuthLookup 会话校验时查询管理员实时状态，不存在时返回 nil, nil
type AdminAuthLookup interface {
	LookupAuthState(ctx context.Context, adminID uint) (*cache.AdminAuthState, error)
}

// PermissionResolver 按角色解析权限集合
type PermissionResolver interface {
	Resolve(ctx context.Context, roleID uint) (authz.PermissionSet, error)
}

// SessionService 会话签发与校验
type SessionService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	lookup     AdminAuthLookup
	resolver   PermissionResolver
	now        func() time.Time
}

// NewSessionService 创建会话服务，签名密钥显式传入
func NewSessionService(signingKey []byte, ttl time.Duration, issuer string, lookup AdminAuthLookup, resolver PermissionResolver) *SessionService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = "snap-admin"
	}
	key := make([]byte, len(signingKey))
	copy(key, signingKey)
	return &SessionService{
		signingKey: key,
		ttl:        ttl,
		issuer:     issuer,
		lookup:     lookup,
		resolver:   resolver,
		now:        time.Now,
	}
}

// TTL 会话有效期
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue 为已完成全部认证因子的管理员签发 Token
func (s *SessionService) Issue(admin *models.Admin) (string, time.Time, error) {
	if admin == nil || admin.ID == 0 {
		return "", time.Time{}, ErrAdminNotFound
	}
	if len(s.signingKey) == 0 {
		return "", time.Time{}, ErrSigningKeyMissing
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := SessionClaims{
		AdminID:      admin.ID,
		Role:         admin.RoleName(),
		Entity:       admin.EntityName(),
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify 校验 Token 并返回调用方身份；失败类型均满足 errors.Is(err, ErrUnauthenticated)，存储故障返回 ErrStorageUnavailable
func (s *SessionService) Verify(ctx context.Context, tokenString string) (*authz.Principal, error) {
	principal, err := s.verify(ctx, tokenString)
	if err != nil {
		kind := SessionFailureKind(err)
		metrics.ObserveSessionFailure(kind)
		if errors.Is(err, ErrStorageUnavailable) {
			logger.Errorw("admin_session_lookup_failed", "kind", kind, "error", err)
		} else {
			logger.Debugw("admin_session_rejected", "kind", kind)
		}
		return nil, err
	}
	return principal, nil
}

func (s *SessionService) verify(ctx context.Context, tokenString string) (*authz.Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	if len(s.signingKey) == 0 {
		return nil, ErrInvalidSignature
	}

	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if s.lookup == nil {
		return nil, ErrStorageUnavailable
	}
	state, err := s.lookup.LookupAuthState(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			return nil, err
		}
		return nil, storageErr(err)
	}
	if state == nil || !state.IsActive {
		return nil, ErrAccountInactive
	}
	if state.TokenVersion != claims.TokenVersion {
		return nil, ErrTokenRevoked
	}
	if state.TokenInvalidBefore > 0 && claims.IssuedAt != nil && claims.IssuedAt.Unix() < state.TokenInvalidBefore {
		return nil, ErrTokenRevoked
	}
	if state.RoleName != claims.Role {
		return nil, ErrTokenRevoked
	}

	perms := authz.PermissionSet{}
	if s.resolver != nil {
		perms, err = s.resolver.Resolve(ctx, state.RoleID)
		if err != nil {
			return nil, storageErr(err)
		}
	}

	return &authz.Principal{
		AdminID:      state.AdminID,
		Username:     state.Username,
		RoleID:       state.RoleID,
		Role:         state.RoleName,
		Entity:       state.EntityName,
		TokenVersion: state.TokenVersion,
		Permissions:  perms,
	}, nil
}

func (s *SessionService) parse(tokenString string) (*SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	claims := &SessionClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		default:
			return nil, ErrMalformedToken
		}
	}
	if !token.Valid || claims.AdminID == 0 {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// AdminAuthStateLoader 先读 Redis 快照，未命中时回源数据库。
// 回填以读库前的代际为条件，期间发生的失效不会被旧数据覆盖。
type AdminAuthStateLoader struct {
	adminRepo repository.AdminRepository
}

// NewAdminAuthStateLoader 创建鉴权状态加载器
func NewAdminAuthStateLoader(adminRepo repository.AdminRepository) *AdminAuthStateLoader {
	return &AdminAuthStateLoader{adminRepo: adminRepo}
}

// LookupAuthState 查询管理员鉴权快照
func (l *AdminAuthStateLoader) LookupAuthState(ctx context.Context, adminID uint) (*cache.AdminAuthState, error) {
	state, hit, err := cache.GetAdminAuthState(ctx, adminID)
	if err != nil {
		logger.Debugw("admin_auth_state_cache_get_failed", "admin_id", adminID, "error", err)
	} else if hit && state != nil {
		return state, nil
	}

	generation, err := cache.AdminAuthStateGeneration(ctx, adminID)
	if err != nil {
		logger.Debugw("admin_auth_state_generation_get_failed", "admin_id", adminID, "error", err)
		generation = ""
	}
	admin, err := l.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, storageErr(err)
	}
	if admin == nil {
		return nil, nil
	}
	state = cache.BuildAdminAuthState(admin)
	if generation == "" {
		return state, nil
	}
	written, err := cache.SetAdminAuthStateIfCurrent(ctx, state, generation)
	if err != nil {
		logger.Debugw("admin_auth_state_cache_set_failed", "admin_id", adminID, "error", err)
	} else if !written {
		logger.Debugw("admin_auth_state_cache_set_skipped_stale", "admin_id", adminID)
	}
	return state, nil
}

// invalidateAuthState 管理员状态变更后删除快照，下次校验回源数据库
func invalidateAuthState(ctx context.Context, adminIDs ...uint) {
	if err := cache.DelAdminAuthStates(ctx, adminIDs); err != nil {
		logger.Warnw("admin_auth_state_cache_delete_failed", "admin_ids", adminIDs, "error", err)
	}
}
