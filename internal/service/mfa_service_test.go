package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/mfa"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
)

func TestMFAStateOf(t *testing.T) {
	cases := []struct {
		name  string
		admin models.Admin
		want  MFAState
		err   error
	}{
		{name: "disabled", admin: models.Admin{}, want: MFAStateDisabled},
		{name: "pending", admin: models.Admin{MFASecret: "ABC"}, want: MFAStatePending},
		{name: "enabled", admin: models.Admin{MFASecret: "ABC", MFAEnabled: true, MFAVerified: true}, want: MFAStateEnabled},
		{name: "enabled without secret", admin: models.Admin{MFAEnabled: true, MFAVerified: true}, err: ErrMFAStateCorrupt},
		{name: "verified but disabled", admin: models.Admin{MFASecret: "ABC", MFAVerified: true}, err: ErrMFAStateCorrupt},
		{name: "enabled but unverified", admin: models.Admin{MFASecret: "ABC", MFAEnabled: true}, err: ErrMFAStateCorrupt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			admin := tc.admin
			got, err := MFAStateOf(&admin)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("expected %s, got %s err=%v", tc.want, got, err)
			}
		})
	}
}

func TestMFAEnrollConfirmDisable(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "ops")
	entity := env.seedEntity(t, "ops-team", role.ID)
	admin := env.seedAdmin(t, "alice", entity.ID)

	enrollment, err := env.mfa.Enroll(ctx, admin.ID)
	if err != nil {
		t.Fatalf("enroll failed: %v", err)
	}
	if enrollment.Secret == "" || enrollment.ProvisioningURI == "" || len(enrollment.BackupCodes) != 10 {
		t.Fatalf("unexpected enrollment: %+v", enrollment)
	}
	status, err := env.mfa.Status(ctx, admin.ID)
	if err != nil || status.State != MFAStatePending || status.Enabled {
		t.Fatalf("expected pending status, got %+v err=%v", status, err)
	}

	// 错误码：返回 false，状态仍为待确认
	wrong := env.code(t, enrollment.Secret, env.now.Add(-5*time.Minute))
	ok, err := env.mfa.Confirm(ctx, admin.ID, wrong)
	if err != nil || ok {
		t.Fatalf("expected wrong code rejected, ok=%v err=%v", ok, err)
	}
	if state, _ := MFAStateOf(env.reloadAdmin(t, admin.ID)); state != MFAStatePending {
		t.Fatalf("expected pending after wrong code, got %s", state)
	}

	if _, err := env.mfa.Confirm(ctx, admin.ID, "12ab56"); !errors.Is(err, mfa.ErrInvalidCodeFormat) {
		t.Fatalf("expected format error, got %v", err)
	}

	ok, err = env.mfa.Confirm(ctx, admin.ID, env.code(t, enrollment.Secret, env.now))
	if err != nil || !ok {
		t.Fatalf("confirm failed: ok=%v err=%v", ok, err)
	}
	stored := env.reloadAdmin(t, admin.ID)
	if state, _ := MFAStateOf(stored); state != MFAStateEnabled {
		t.Fatalf("expected enabled, got %s", state)
	}
	if stored.MFALastUsedStep != 0 {
		t.Fatalf("confirm must not consume the time step, got %d", stored.MFALastUsedStep)
	}

	if _, err := env.mfa.Enroll(ctx, admin.ID); !errors.Is(err, ErrMFAAlreadyEnabled) {
		t.Fatalf("expected already enabled, got %v", err)
	}
	if _, err := env.mfa.Confirm(ctx, admin.ID, env.code(t, enrollment.Secret, env.now)); !errors.Is(err, ErrMFANotPending) {
		t.Fatalf("expected not pending, got %v", err)
	}

	if err := env.mfa.DisableWithFactor(ctx, admin.ID, ""); !errors.Is(err, ErrMFACodeRequired) {
		t.Fatalf("expected code required, got %v", err)
	}
	if err := env.mfa.DisableWithFactor(ctx, admin.ID, wrong); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := env.mfa.DisableWithFactor(ctx, admin.ID, env.code(t, enrollment.Secret, env.now)); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	stored = env.reloadAdmin(t, admin.ID)
	if state, _ := MFAStateOf(stored); state != MFAStateDisabled {
		t.Fatalf("expected disabled, got %s", state)
	}
	if stored.TokenVersion != admin.TokenVersion+1 {
		t.Fatalf("expected token version bump, got %d", stored.TokenVersion)
	}
	remaining, err := env.backup.Remaining(ctx, admin.ID)
	if err != nil || remaining != 0 {
		t.Fatalf("expected backup codes removed, got %d err=%v", remaining, err)
	}

	events := env.notifier.events()
	if len(events) != 2 || events[0] != constants.SecurityEventMFAEnabled || events[1] != constants.SecurityEventMFADisabled {
		t.Fatalf("unexpected notices: %v", events)
	}
}

func TestMFAReEnrollReplacesPendingSecret(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "ops")
	entity := env.seedEntity(t, "ops-team", role.ID)
	admin := env.seedAdmin(t, "bob", entity.ID)

	first, err := env.mfa.Enroll(ctx, admin.ID)
	if err != nil {
		t.Fatalf("first enroll failed: %v", err)
	}
	second, err := env.mfa.Enroll(ctx, admin.ID)
	if err != nil {
		t.Fatalf("second enroll failed: %v", err)
	}
	if first.Secret == second.Secret {
		t.Fatalf("expected a fresh secret")
	}
	ok, err := env.mfa.Confirm(ctx, admin.ID, env.code(t, first.Secret, env.now))
	if err != nil || ok {
		t.Fatalf("stale enrollment secret must not confirm, ok=%v err=%v", ok, err)
	}
	consumed, err := env.backup.Consume(ctx, admin.ID, first.BackupCodes[0])
	if err != nil || consumed {
		t.Fatalf("stale backup code must be replaced, consumed=%v err=%v", consumed, err)
	}
}

func TestMFAStatusRejectsCorruptState(t *testing.T) {
	env := setupAuthServiceTest(t)
	role := env.seedRole(t, "ops")
	entity := env.seedEntity(t, "ops-team", role.ID)
	admin := env.seedAdmin(t, "carol", entity.ID)
	if err := env.db.Model(&models.Admin{}).Where("id = ?", admin.ID).Update("mfa_enabled", true).Error; err != nil {
		t.Fatalf("corrupt admin failed: %v", err)
	}
	if _, err := env.mfa.Status(context.Background(), admin.ID); !errors.Is(err, ErrMFAStateCorrupt) {
		t.Fatalf("expected corrupt state, got %v", err)
	}
	if Classify(ErrMFAStateCorrupt) != KindState {
		t.Fatalf("corrupt state must classify as state error")
	}
}

func TestMFARegenerateBackupCodes(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "ops")
	entity := env.seedEntity(t, "ops-team", role.ID)
	admin := env.seedAdmin(t, "dave", entity.ID)
	enrollment := env.enableMFA(t, admin.ID)

	codes, err := env.mfa.RegenerateBackupCodes(ctx, admin.ID, enrollment.BackupCodes[0])
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if len(codes) != 10 {
		t.Fatalf("expected 10 codes, got %d", len(codes))
	}
	for _, old := range enrollment.BackupCodes[1:3] {
		ok, err := env.backup.Consume(ctx, admin.ID, old)
		if err != nil || ok {
			t.Fatalf("old code must be invalid after regenerate, ok=%v err=%v", ok, err)
		}
	}
	ok, err := env.backup.Consume(ctx, admin.ID, codes[0])
	if err != nil || !ok {
		t.Fatalf("new code must be consumable, ok=%v err=%v", ok, err)
	}
}

func TestBackupCodeConcurrentConsumeSingleWinner(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "ops")
	entity := env.seedEntity(t, "ops-team", role.ID)
	admin := env.seedAdmin(t, "erin", entity.ID)
	enrollment := env.enableMFA(t, admin.ID)
	code := enrollment.BackupCodes[0]

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := env.backup.Consume(ctx, admin.ID, code)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if ok {
				wins++
			}
		}()
	}
	wg.Wait()
	if len(errs) > 0 {
		t.Fatalf("unexpected consume errors: %v", errs)
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	remaining, err := env.backup.Remaining(ctx, admin.ID)
	if err != nil || remaining != 9 {
		t.Fatalf("expected 9 remaining, got %d err=%v", remaining, err)
	}
}

func TestBackupCodeBelongsToOwner(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "ops")
	entity := env.seedEntity(t, "ops-team", role.ID)
	owner := env.seedAdmin(t, "frank", entity.ID)
	other := env.seedAdmin(t, "grace", entity.ID)
	enrollment := env.enableMFA(t, owner.ID)

	ok, err := env.backup.Consume(ctx, other.ID, enrollment.BackupCodes[0])
	if err != nil || ok {
		t.Fatalf("code must not verify for another admin, ok=%v err=%v", ok, err)
	}
	ok, err = env.backup.Consume(ctx, owner.ID, "not-a-code")
	if err != nil || ok {
		t.Fatalf("malformed code must be rejected, ok=%v err=%v", ok, err)
	}
}
