// internal/acl/store.go
//
// Query helpers for role lookup and viewer resolution.
//
// Context
// -------
// Roles live beside the user table:
//
//	users       (id PK, did, primary_handle, ...)
//	role        (id PK, name, enabled)
//	user_role   (user_id, role_id)
//
// Widgets only care about one role question: is this viewer an admin?
// LoadViewer folds the role list down to the single Viewer.Role string the
// widget gate reads.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
// • Max line length 100 columns.
package acl

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/threadstead/internal/widget"
)

// RoleMember is assigned to users with no enabled role rows.
const RoleMember = "member"

// UserRoles returns the role *names* bound to userID.  Disabled roles are
// filtered out.
func UserRoles(ctx context.Context, db *sql.DB, userID int64) ([]string, error) {
	const q = `SELECT r.name
                 FROM user_role ur
                 JOIN role r ON r.id = ur.role_id
                WHERE ur.user_id = ? AND r.enabled = TRUE`

	rows, err := db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]string, 0, 4)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// PrimaryRole collapses a role list.  admin wins, then the first listed
// role, then RoleMember.
func PrimaryRole(roles []string) string {
	for _, r := range roles {
		if r == widget.RoleAdmin {
			return r
		}
	}
	if len(roles) > 0 {
		return roles[0]
	}
	return RoleMember
}

// Store resolves viewers from the users database.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

type userRow struct {
	ID            int64          `db:"id"`
	DID           sql.NullString `db:"did"`
	PrimaryHandle sql.NullString `db:"primary_handle"`
}

// LoadViewer returns the viewer for userID or sql.ErrNoRows.
func (s *Store) LoadViewer(ctx context.Context, userID int64) (*widget.Viewer, error) {
	const q = `SELECT id, did, primary_handle FROM users WHERE id = ? LIMIT 1`

	var row userRow
	if err := s.db.GetContext(ctx, &row, q, userID); err != nil {
		return nil, err
	}
	roles, err := UserRoles(ctx, s.db.DB, userID)
	if err != nil {
		return nil, err
	}
	return &widget.Viewer{
		ID:            strconv.FormatInt(row.ID, 10),
		DID:           row.DID.String,
		PrimaryHandle: row.PrimaryHandle.String,
		Role:          PrimaryRole(roles),
	}, nil
}
