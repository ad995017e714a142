package users

import (
	"context"
	"testing"

	"github.com/angelmondragon/koumale-backend/pkg/db/dbtest"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
)

func TestRepositoryListExcludesSuperAdminsByDefault(t *testing.T) {
	conn := dbtest.Open(t).DB()
	repo := NewRepository(conn)
	ctx := context.Background()

	dbtest.MustUser(t, conn, enums.UserRoleClient, enums.UserStatusApproved)
	dbtest.MustUser(t, conn, enums.UserRoleVendor, enums.UserStatusPending)
	dbtest.MustUser(t, conn, enums.UserRoleSuperAdmin, enums.UserStatusApproved)

	rows, total, err := repo.List(ctx, ListFilter{}, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 non-admin users, got total=%d rows=%d", total, len(rows))
	}

	admin := enums.UserRoleSuperAdmin
	rows, total, err = repo.List(ctx, ListFilter{Role: &admin}, pagination.Params{})
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if total != 1 || rows[0].Role != enums.UserRoleSuperAdmin {
		t.Fatalf("expected the admin only, got %+v", rows)
	}

	pending := enums.UserStatusPending
	_, total, err = repo.List(ctx, ListFilter{Status: &pending}, pagination.Params{})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 pending user, got %d", total)
	}
}

func TestRepositoryListSearchesNamesAndEmail(t *testing.T) {
	conn := dbtest.Open(t).DB()
	repo := NewRepository(conn)
	ctx := context.Background()

	ada := dbtest.MustUser(t, conn, enums.UserRoleClient, enums.UserStatusApproved)
	ada.FirstName = "Adjoua"
	if err := repo.Save(ctx, ada); err != nil {
		t.Fatalf("save: %v", err)
	}
	dbtest.MustUser(t, conn, enums.UserRoleClient, enums.UserStatusApproved)

	rows, total, err := repo.List(ctx, ListFilter{Query: "ADJ"}, pagination.Params{Page: 1, Limit: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || rows[0].ID != ada.ID {
		t.Fatalf("expected Adjoua only, got %d rows", total)
	}
}

func TestRepositoryRoleUpdatesAndLookups(t *testing.T) {
	conn := dbtest.Open(t).DB()
	repo := NewRepository(conn)
	ctx := context.Background()

	user := dbtest.MustUser(t, conn, enums.UserRoleVendor, enums.UserStatusPending)
	if err := repo.UpdateRoleStatus(ctx, user.ID, enums.UserRoleClient, enums.UserStatusApproved); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Role != enums.UserRoleClient || got.Status != enums.UserStatusApproved {
		t.Fatalf("unexpected role/status %s/%s", got.Role, got.Status)
	}

	ids, err := repo.IDsByRole(ctx, enums.UserRoleClient)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != user.ID {
		t.Fatalf("expected converted user id, got %v", ids)
	}
}
