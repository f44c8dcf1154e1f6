// internal/policy/defaults.go
//
// Default role, permission, and menu seeding for new tenants.
//
// Context
// -------
// The tenant-facing admin area uses a small RBAC model:
//
//	role        (id PK, tenant_id, name, enabled)
//	role_acl    (role_id, component, action, permitted)
//	menu_entry  (tenant_id, title, path, sort_order)
//
// Every new tenant gets the same starter set: an administrator role with
// blanket permissions, an editor role limited to content, and the default
// admin menu.  ApplyDefaults runs inside the provisioning transaction, so
// a failure here rolls back the whole Customer/Tenant/Admin creation.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
// • Max line length 100 columns.
package policy

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// aclRule is one (component, action, permitted) triple.
type aclRule struct {
	component string
	action    string
}

var adminRules = []aclRule{
	{"*", "*"},
}

var editorRules = []aclRule{
	{"content", "view"},
	{"content", "edit"},
	{"media", "upload"},
}

// menuEntry seeds one admin-menu row.
type menuEntry struct {
	title string
	path  string
	sort  int
}

var defaultMenu = []menuEntry{
	{"Dashboard", "/admin", 10},
	{"Content", "/admin/content", 20},
	{"Media", "/admin/media", 30},
	{"Settings", "/admin/settings", 90},
}

// ApplyDefaults seeds roles, permissions, and menu entries for a new
// tenant.  It binds rootAdminID to the administrator role so the first
// login already has full access.
func ApplyDefaults(ctx context.Context, tx *sqlx.Tx, tenantID, rootAdminID uint64) error {
	adminRole, err := insertRole(ctx, tx, tenantID, "administrator")
	if err != nil {
		return err
	}
	editorRole, err := insertRole(ctx, tx, tenantID, "editor")
	if err != nil {
		return err
	}

	if err := insertRules(ctx, tx, adminRole, adminRules); err != nil {
		return err
	}
	if err := insertRules(ctx, tx, editorRole, editorRules); err != nil {
		return err
	}

	const bind = `INSERT INTO admin_role (admin_id, role_id) VALUES (?, ?)`
	if _, err := tx.ExecContext(ctx, bind, rootAdminID, adminRole); err != nil {
		return err
	}

	const menu = `
        INSERT INTO menu_entry (tenant_id, title, path, sort_order)
        VALUES (?, ?, ?, ?)`
	for _, m := range defaultMenu {
		if _, err := tx.ExecContext(ctx, menu, tenantID, m.title, m.path, m.sort); err != nil {
			return err
		}
	}
	return nil
}

func insertRole(ctx context.Context, tx *sqlx.Tx, tenantID uint64, name string) (uint64, error) {
	const q = `INSERT INTO role (tenant_id, name, enabled) VALUES (?, ?, TRUE)`
	res, err := tx.ExecContext(ctx, q, tenantID, name)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

func insertRules(ctx context.Context, tx *sqlx.Tx, roleID uint64, rules []aclRule) error {
	const q = `
        INSERT INTO role_acl (role_id, component, action, permitted)
        VALUES (?, ?, ?, TRUE)`
	for _, r := range rules {
		if _, err := tx.ExecContext(ctx, q, roleID, r.component, r.action); err != nil {
			return err
		}
	}
	return nil
}
