package repository

import (
	"context"
	"testing"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/models"
)

func TestAuthzAuditLogRepositoryList(t *testing.T) {
	db := setupAdminRepositoryTest(t)
	repo := NewAuthzAuditLogRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	target := uint(9)
	rows := []models.AuthzAuditLog{
		{OperatorAdminID: 1, OperatorUsername: "root", Action: "role_create", Role: "dispatch", ObjectType: "role", Object: "dispatch", RequestID: "req-1", CreatedAt: base},
		{OperatorAdminID: 1, OperatorUsername: "root", Action: "role_permissions_set", Role: "dispatch", ObjectType: "role", Object: "dispatch", RequestID: "req-2", CreatedAt: base.Add(time.Hour)},
		{OperatorAdminID: 2, OperatorUsername: "ops", TargetAdminID: &target, TargetUsername: "sam", Action: "admin_mfa_reset", ObjectType: "admin", Object: "sam", RequestID: "req-3", CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range rows {
		if err := repo.Create(ctx, &rows[i]); err != nil {
			t.Fatalf("create audit log failed: %v", err)
		}
	}
	if err := repo.Create(ctx, nil); err != nil {
		t.Fatalf("nil log should be ignored: %v", err)
	}

	all, total, err := repo.List(ctx, AuthzAuditLogListFilter{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("expected 3 rows, got total=%d len=%d", total, len(all))
	}
	if all[0].Action != "admin_mfa_reset" {
		t.Fatalf("expected newest first, got %s", all[0].Action)
	}

	from := base.Add(30 * time.Minute)
	cases := []struct {
		name   string
		filter AuthzAuditLogListFilter
		want   int64
	}{
		{name: "operator", filter: AuthzAuditLogListFilter{OperatorAdminID: 1}, want: 2},
		{name: "target", filter: AuthzAuditLogListFilter{TargetAdminID: target}, want: 1},
		{name: "object type", filter: AuthzAuditLogListFilter{ObjectType: "role"}, want: 2},
		{name: "request id", filter: AuthzAuditLogListFilter{RequestID: "req-2"}, want: 1},
		{name: "created from", filter: AuthzAuditLogListFilter{CreatedFrom: &from}, want: 2},
		{name: "no match", filter: AuthzAuditLogListFilter{Role: "finance"}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.filter.Page, tc.filter.PageSize = 1, 20
			logs, total, err := repo.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if total != tc.want || int64(len(logs)) != tc.want {
				t.Fatalf("expected %d rows, got total=%d len=%d", tc.want, total, len(logs))
			}
		})
	}

	page, total, err := repo.List(ctx, AuthzAuditLogListFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list page 2 failed: %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].Action != "role_create" {
		t.Fatalf("unexpected page 2: total=%d rows=%+v", total, page)
	}
}
