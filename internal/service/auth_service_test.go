package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"
)

func loginInput(account, password, code string) AdminLoginInput {
	return AdminLoginInput{
		Account:   account,
		Password:  password,
		MFACode:   code,
		ClientIP:  "127.0.0.1",
		UserAgent: "go-test",
		RequestID: "req-test",
	}
}

func TestLoginWithoutMFAIssuesSession(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "support", authz.Permission{Entity: authz.EntityUserManagement, Action: authz.ActionView})
	entity := env.seedEntity(t, "support-team", role.ID)
	admin := env.seedAdmin(t, "henry", entity.ID)

	result, err := env.auth.Login(ctx, loginInput("HENRY", testAdminPassword, ""))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.MFARequired || result.Token == "" {
		t.Fatalf("unexpected login result: %+v", result)
	}
	principal, err := env.sessions.Verify(ctx, result.Token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if principal.AdminID != admin.ID || principal.Role != "support" || principal.Entity != "support-team" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
	if !authz.HasPermission(principal, authz.EntityUserManagement, authz.ActionView) {
		t.Fatalf("expected USER_MANAGEMENT:VIEW")
	}
	if authz.HasPermission(principal, authz.EntityUserManagement, authz.ActionDelete) {
		t.Fatalf("unexpected USER_MANAGEMENT:DELETE")
	}

	byEmail, err := env.auth.Login(ctx, loginInput("henry@example.com", testAdminPassword, ""))
	if err != nil || byEmail.Token == "" {
		t.Fatalf("login by email failed: %v", err)
	}
	if env.reloadAdmin(t, admin.ID).LastLoginAt == nil {
		t.Fatalf("expected last_login_at to be set")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "support")
	entity := env.seedEntity(t, "support-team", role.ID)
	admin := env.seedAdmin(t, "ivy", entity.ID)
	if err := env.db.Model(&models.Admin{}).Where("id = ?", admin.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	env.seedAdmin(t, "jack", entity.ID)

	cases := []AdminLoginInput{
		loginInput("nobody", testAdminPassword, ""),
		loginInput("jack", "wrong-password1", ""),
		loginInput("ivy", testAdminPassword, ""),
		loginInput("bad@", testAdminPassword, ""),
	}
	for _, input := range cases {
		_, err := env.auth.Login(ctx, input)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("account %q: expected invalid credentials, got %v", input.Account, err)
		}
		if err.Error() != ErrInvalidCredentials.Error() {
			t.Fatalf("account %q: error text leaks detail: %v", input.Account, err)
		}
	}

	if _, err := env.auth.Login(ctx, loginInput("", "", "")); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}

	logs, total, err := repository.NewAdminLoginLogRepository(env.db).List(ctx, repository.AdminLoginLogListFilter{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("list login logs failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 login log rows, got %d", total)
	}
	reasons := map[string]bool{}
	for _, log := range logs {
		if log.Status != constants.LoginLogStatusFailed {
			t.Fatalf("unexpected status %s", log.Status)
		}
		reasons[log.FailReason] = true
	}
	for _, want := range []string{
		constants.LoginLogFailReasonAccountNotFound,
		constants.LoginLogFailReasonPasswordMismatch,
		constants.LoginLogFailReasonAccountInactive,
	} {
		if !reasons[want] {
			t.Fatalf("missing fail reason %s in %v", want, reasons)
		}
	}
}

// 密码通过但二次验证失败时不签发会话；旧码被拒、当前码通过、同一码不可重放
func TestLoginWithTOTP(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "finance", authz.Permission{Entity: authz.EntitySettlement, Action: authz.ActionView})
	entity := env.seedEntity(t, "finance-team", role.ID)
	admin := env.seedAdmin(t, "kate", entity.ID)
	enrollment := env.enableMFA(t, admin.ID)

	first, err := env.auth.Login(ctx, loginInput("kate", testAdminPassword, ""))
	if err != nil {
		t.Fatalf("login step one failed: %v", err)
	}
	if !first.MFARequired || first.Token != "" {
		t.Fatalf("expected mfa required without token, got %+v", first)
	}

	stale := env.code(t, enrollment.Secret, env.now.Add(-3*time.Minute))
	if _, err := env.auth.Login(ctx, loginInput("kate", testAdminPassword, stale)); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected stale code rejected, got %v", err)
	}

	current := env.code(t, enrollment.Secret, env.now)
	result, err := env.auth.Login(ctx, loginInput("kate", testAdminPassword, current))
	if err != nil {
		t.Fatalf("login with current code failed: %v", err)
	}
	if result.Token == "" || result.MFAMethod != constants.MFAMethodTOTP {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if _, err := env.sessions.Verify(ctx, result.Token); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if _, err := env.auth.Login(ctx, loginInput("kate", testAdminPassword, current)); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected replayed code rejected, got %v", err)
	}
}

func TestLoginWithBackupCode(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "finance")
	entity := env.seedEntity(t, "finance-team", role.ID)
	admin := env.seedAdmin(t, "liam", entity.ID)
	enrollment := env.enableMFA(t, admin.ID)

	// 备用码大小写与分隔符不敏感
	code := enrollment.BackupCodes[1]
	loose := " " + strings.ToLower(code[:5]) + code[6:] + " "
	result, err := env.auth.Login(ctx, loginInput("liam", testAdminPassword, loose))
	if err != nil {
		t.Fatalf("login with backup code failed: %v", err)
	}
	if result.MFAMethod != constants.MFAMethodBackupCode || result.BackupCodesRemaining != 9 {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if _, err := env.auth.Login(ctx, loginInput("liam", testAdminPassword, code)); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected used backup code rejected, got %v", err)
	}

	found := false
	for _, event := range env.notifier.events() {
		if event == constants.SecurityEventBackupCodeUsed {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected backup code notice, got %v", env.notifier.events())
	}
}

func TestLoginMFAAttemptsBlocked(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "finance")
	entity := env.seedEntity(t, "finance-team", role.ID)
	admin := env.seedAdmin(t, "mia", entity.ID)
	enrollment := env.enableMFA(t, admin.ID)

	wrong := env.code(t, enrollment.Secret, env.now.Add(-10*time.Minute))
	for i := 0; i < 5; i++ {
		if _, err := env.auth.Login(ctx, loginInput("mia", testAdminPassword, wrong)); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}
	current := env.code(t, enrollment.Secret, env.now)
	if _, err := env.auth.Login(ctx, loginInput("mia", testAdminPassword, current)); !errors.Is(err, ErrMFATooManyAttempts) {
		t.Fatalf("expected blocked, got %v", err)
	}
	if Classify(ErrMFATooManyAttempts) != KindRateLimited {
		t.Fatalf("expected rate limited kind")
	}

	env.redis.FastForward(901 * time.Second)
	if _, err := env.auth.Login(ctx, loginInput("mia", testAdminPassword, current)); err != nil {
		t.Fatalf("expected login after block expires, got %v", err)
	}
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	env := setupAuthServiceTest(t)
	ctx := context.Background()
	role := env.seedRole(t, "support")
	entity := env.seedEntity(t, "support-team", role.ID)
	admin := env.seedAdmin(t, "noah", entity.ID)

	result, err := env.auth.Login(ctx, loginInput("noah", testAdminPassword, ""))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := env.auth.ChangePassword(ctx, admin.ID, "wrong-old1", "NewPassw0rd"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}
	if err := env.auth.ChangePassword(ctx, admin.ID, testAdminPassword, "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}
	if err := env.auth.ChangePassword(ctx, admin.ID, testAdminPassword, "NewPassw0rd"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, err := env.sessions.Verify(ctx, result.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked token, got %v", err)
	}
	if _, err := env.auth.Login(ctx, loginInput("noah", "NewPassw0rd", "")); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{ErrInvalidCredentials, KindAuthentication},
		{ErrExpiredToken, KindAuthentication},
		{ErrForbidden, KindAuthorization},
		{ErrSelfOperation, KindAuthorization},
		{storageErr(errors.New("db down")), KindStorage},
		{ErrRateLimitUnavailable, KindStorage},
		{ErrMFAStateCorrupt, KindState},
		{ErrMFANotPending, KindConflict},
		{ErrRoleExists, KindConflict},
		{ErrRoleNotFound, KindNotFound},
		{authz.ErrUnknownPermission, KindValidation},
		{passwordPolicyError{key: "error.password_min_length"}, KindValidation},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("classify %v: expected %s, got %s", tc.err, tc.want, got)
		}
	}
}
