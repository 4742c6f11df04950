package cache

import (
	"context"
	"testing"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	UseClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { _ = Close() })
	return mr
}

func TestAdminAuthStateRoundTrip(t *testing.T) {
	mr := setupMiniRedis(t)
	ctx := context.Background()
	invalidBefore := time.Unix(1700000000, 0)
	admin := &models.Admin{
		ID:                 9,
		Username:           "ops",
		IsActive:           true,
		TokenVersion:       4,
		TokenInvalidBefore: &invalidBefore,
		OperatorEntity: &models.OperatorEntity{
			Name:   "lagos",
			RoleID: 3,
			Role:   &models.Role{ID: 3, Name: "operations"},
		},
	}
	gen, err := AdminAuthStateGeneration(ctx, 9)
	if err != nil || gen != "0" {
		t.Fatalf("expected initial generation 0, got %q err=%v", gen, err)
	}
	if ok, err := SetAdminAuthStateIfCurrent(ctx, BuildAdminAuthState(admin), gen); err != nil || !ok {
		t.Fatalf("set auth state failed: ok=%v err=%v", ok, err)
	}
	if !mr.Exists("test:auth:admin:9") {
		t.Fatalf("expected prefixed key in redis")
	}

	state, hit, err := GetAdminAuthState(ctx, 9)
	if err != nil || !hit {
		t.Fatalf("get auth state failed: hit=%v err=%v", hit, err)
	}
	if state.RoleID != 3 || state.RoleName != "operations" || state.EntityName != "lagos" {
		t.Fatalf("unexpected role snapshot: %+v", state)
	}
	if state.TokenVersion != 4 || state.TokenInvalidBefore != 1700000000 || !state.IsActive {
		t.Fatalf("unexpected token snapshot: %+v", state)
	}

	if err := DelAdminAuthStates(ctx, []uint{9}); err != nil {
		t.Fatalf("delete auth state failed: %v", err)
	}
	if _, hit, _ := GetAdminAuthState(ctx, 9); hit {
		t.Fatalf("expected cache miss after delete")
	}
}

// 读库后、回填前发生失效时，旧快照不得写回
func TestAdminAuthStateRefillAfterInvalidationIsRejected(t *testing.T) {
	mr := setupMiniRedis(t)
	ctx := context.Background()
	stale := &AdminAuthState{AdminID: 5, Username: "rita", IsActive: true, TokenVersion: 1}

	gen, err := AdminAuthStateGeneration(ctx, 5)
	if err != nil {
		t.Fatalf("read generation failed: %v", err)
	}
	if err := DelAdminAuthState(ctx, 5); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	ok, err := SetAdminAuthStateIfCurrent(ctx, stale, gen)
	if err != nil {
		t.Fatalf("conditional set failed: %v", err)
	}
	if ok || mr.Exists("test:auth:admin:5") {
		t.Fatalf("stale snapshot must not be written after invalidation")
	}
	if ttl := mr.TTL("test:auth:admin:5:gen"); ttl <= 0 {
		t.Fatalf("generation key should carry a ttl, got %v", ttl)
	}

	fresh, err := AdminAuthStateGeneration(ctx, 5)
	if err != nil || fresh != "1" {
		t.Fatalf("expected generation 1, got %q err=%v", fresh, err)
	}
	if ok, err := SetAdminAuthStateIfCurrent(ctx, stale, fresh); err != nil || !ok {
		t.Fatalf("refill with current generation should succeed: ok=%v err=%v", ok, err)
	}
}

func TestAdminAuthStateWithoutRedis(t *testing.T) {
	UseClient(nil, "")
	ctx := context.Background()
	gen, err := AdminAuthStateGeneration(ctx, 5)
	if err != nil || gen != "" {
		t.Fatalf("disabled cache should return empty generation, got %q err=%v", gen, err)
	}
	if ok, _ := SetAdminAuthStateIfCurrent(ctx, &AdminAuthState{AdminID: 5}, "0"); ok {
		t.Fatalf("disabled cache must not report a write")
	}
	if err := DelAdminAuthState(ctx, 5); err != nil {
		t.Fatalf("disabled cache delete should be a no-op: %v", err)
	}
}

func TestPermissionCacheStoresGrantedOnly(t *testing.T) {
	mr := setupMiniRedis(t)
	ctx := context.Background()
	pc := NewPermissionCache(0)
	set := authz.PermissionSet{
		{Entity: authz.EntityAnalytics, Action: authz.ActionView}:   true,
		{Entity: authz.EntityAnalytics, Action: authz.ActionExport}: false,
	}
	if err := pc.SetPermissionSet(ctx, 5, set); err != nil {
		t.Fatalf("set permission set failed: %v", err)
	}
	if ttl := mr.TTL("test:authz:role:5:perms"); ttl != 5*time.Minute {
		t.Fatalf("ttl want 5m got %s", ttl)
	}

	got, hit, err := pc.GetPermissionSet(ctx, 5)
	if err != nil || !hit {
		t.Fatalf("get permission set failed: hit=%v err=%v", hit, err)
	}
	if len(got) != 1 || !got.Allows(authz.EntityAnalytics, authz.ActionView) {
		t.Fatalf("unexpected cached set: %v", got)
	}

	if err := pc.DeletePermissionSet(ctx, 5); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, hit, _ := pc.GetPermissionSet(ctx, 5); hit {
		t.Fatalf("expected miss after delete")
	}
}

func TestPermissionCacheDropsUnknownTags(t *testing.T) {
	mr := setupMiniRedis(t)
	ctx := context.Background()
	if err := mr.Set("test:authz:role:6:perms", `[{"entity_type":"LEGACY","action":"VIEW"},{"entity_type":"AUDIT_LOG","action":"VIEW"}]`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	got, hit, err := NewPermissionCache(0).GetPermissionSet(ctx, 6)
	if err != nil || !hit {
		t.Fatalf("get failed: hit=%v err=%v", hit, err)
	}
	if len(got) != 1 || !got.Allows(authz.EntityAuditLog, authz.ActionView) {
		t.Fatalf("unknown tags must be dropped, got %v", got)
	}
}

func TestAttemptLimiterBlocksAfterMaxFailures(t *testing.T) {
	mr := setupMiniRedis(t)
	ctx := context.Background()
	limiter := NewAttemptLimiter("mfa", 3, 300, 900)

	for i := 1; i <= 2; i++ {
		blocked, err := limiter.RecordFailure(ctx, "admin:1")
		if err != nil || blocked {
			t.Fatalf("failure %d should not block: blocked=%v err=%v", i, blocked, err)
		}
	}
	if blocked, _, _ := limiter.Blocked(ctx, "admin:1"); blocked {
		t.Fatalf("should not be blocked before reaching max")
	}
	blocked, err := limiter.RecordFailure(ctx, "admin:1")
	if err != nil || !blocked {
		t.Fatalf("third failure should block: blocked=%v err=%v", blocked, err)
	}
	blocked, remaining, err := limiter.Blocked(ctx, "admin:1")
	if err != nil || !blocked || remaining <= 0 {
		t.Fatalf("expected active block, blocked=%v remaining=%s err=%v", blocked, remaining, err)
	}

	mr.FastForward(901 * time.Second)
	if blocked, _, _ := limiter.Blocked(ctx, "admin:1"); blocked {
		t.Fatalf("block should expire")
	}
}

func TestAttemptLimiterResetAndDisabled(t *testing.T) {
	setupMiniRedis(t)
	ctx := context.Background()
	limiter := NewAttemptLimiter("mfa", 2, 300, 900)
	if _, err := limiter.RecordFailure(ctx, "admin:2"); err != nil {
		t.Fatalf("record failure failed: %v", err)
	}
	if err := limiter.Reset(ctx, "admin:2"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if blocked, _ := limiter.RecordFailure(ctx, "admin:2"); blocked {
		t.Fatalf("counter should restart after reset")
	}

	_ = Close()
	if blocked, err := limiter.RecordFailure(ctx, "admin:2"); blocked || err != nil {
		t.Fatalf("disabled redis must not limit: blocked=%v err=%v", blocked, err)
	}
}
