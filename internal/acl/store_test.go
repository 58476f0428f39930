// internal/acl/store_test.go
//
// Unit-tests for acl.store helpers using sqlmock.
//
// Run: go test ./internal/acl -v

package acl

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

const rolesQuery = `SELECT r.name FROM user_role ur JOIN role r ON r.id = ur.role_id WHERE ur.user_id = ? AND r.enabled = TRUE`

func TestUserRoles(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(rolesQuery)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("editor").AddRow("admin"))

	got, err := UserRoles(context.Background(), db, 42)
	if err != nil {
		t.Fatalf("UserRoles error: %v", err)
	}
	if len(got) != 2 || got[0] != "editor" || got[1] != "admin" {
		t.Fatalf("unexpected result: %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestPrimaryRole(t *testing.T) {
	cases := map[string][]string{
		"admin":     {"editor", "admin"},
		"editor":    {"editor", "moderator"},
		RoleMember:  nil,
		"moderator": {"moderator"},
	}
	for want, in := range cases {
		if got := PrimaryRole(in); got != want {
			t.Errorf("PrimaryRole(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestStore_LoadViewer(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()
	s := NewStore(sqlx.NewDb(raw, "mysql"))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, did, primary_handle FROM users WHERE id = ? LIMIT 1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "did", "primary_handle"}).
			AddRow(int64(7), "did:plc:ivy", "ivy"))
	mock.ExpectQuery(regexp.QuoteMeta(rolesQuery)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("admin"))

	v, err := s.LoadViewer(context.Background(), 7)
	if err != nil {
		t.Fatalf("LoadViewer error: %v", err)
	}
	if v.ID != "7" || v.DID != "did:plc:ivy" || v.PrimaryHandle != "ivy" || !v.IsAdmin() {
		t.Fatalf("unexpected viewer: %#v", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_LoadViewerUnknown(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()
	s := NewStore(sqlx.NewDb(raw, "mysql"))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, did, primary_handle FROM users`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "did", "primary_handle"}))

	if _, err := s.LoadViewer(context.Background(), 9); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("want sql.ErrNoRows, got %v", err)
	}
}
