package authz

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/tessera-hq/tessera/internal/platform/db"
	"github.com/tessera-hq/tessera/internal/shared"
)

const pgUniqueViolation = "23505"

// scope column capability states.
const (
	scopeColUnknown int32 = iota
	scopeColPresent
	scopeColAbsent
)

// Repository provides PostgreSQL backed persistence for the authorization
// catalog and the workspace/membership/project read surface.
type Repository struct {
	pool *pgxpool.Pool

	// Older deployments predate the project_access_scope column on
	// workspace_memberships. The capability is probed once per process and
	// cached; concurrent first calls coalesce through the singleflight group.
	scopeCol   atomic.Int32
	scopeProbe singleflight.Group
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, description, is_system_role, created_at, updated_at FROM roles WHERE id = $1`, id)
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystemRole, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("authz: role %d: %w", id, shared.ErrNotFound)
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new custom role. Name collisions surface as
// shared.ErrDuplicateName via the unique constraint.
func (r *Repository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, is_system_role)
		VALUES ($1, $2, FALSE)
		RETURNING id, name, description, is_system_role, created_at, updated_at`, name, description)
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystemRole, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Role{}, fmt.Errorf("authz: role %q: %w", name, shared.ErrDuplicateName)
		}
		return Role{}, err
	}
	return role, nil
}

// UpdateRole updates name and description of an existing role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, name, description, is_system_role, created_at, updated_at`, id, name, description)
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystemRole, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("authz: role %d: %w", id, shared.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return Role{}, fmt.Errorf("authz: role %q: %w", name, shared.ErrDuplicateName)
		}
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role by ID.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("authz: role %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// ListPermissions returns permissions ordered by (resource, action),
// optionally filtered by resource.
func (r *Repository) ListPermissions(ctx context.Context, resourceFilter string) ([]Permission, error) {
	query := `SELECT id, resource, action FROM permissions ORDER BY resource, action`
	args := []any{}
	if resourceFilter != "" {
		query = `SELECT id, resource, action FROM permissions WHERE resource = $1 ORDER BY resource, action`
		args = append(args, resourceFilter)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// GetPermissionsByIDs returns the permissions matching the given ids,
// ordered by (resource, action). Unknown ids are simply absent from the
// result; callers compare counts.
func (r *Repository) GetPermissionsByIDs(ctx context.Context, ids []int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, resource, action FROM permissions WHERE id = ANY($1) ORDER BY resource, action`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// RolePermissions returns the permission set linked to a role.
func (r *Repository) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.resource, p.action
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.resource, p.action`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// ReplaceRolePermissions swaps the role's permission set in one transaction.
// Delete-then-insert under RepeatableRead so readers never observe a mixture
// of the old and new sets.
func (r *Repository) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		if len(permissionIDs) == 0 {
			return nil
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, unnest($2::bigint[])`, roleID, permissionIDs)
		return err
	})
}

// RoleHasPermission reports whether a custom role's set contains the pair.
func (r *Repository) RoleHasPermission(ctx context.Context, roleID int64, resource, action string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM role_permissions rp
			JOIN permissions p ON p.id = rp.permission_id
			WHERE rp.role_id = $1 AND p.resource = $2 AND p.action = $3
		)`, roleID, resource, action).Scan(&exists)
	return exists, err
}

// SystemRoleHasPermission reports whether the seeded default grant table
// contains the pair for the given system role name.
func (r *Repository) SystemRoleHasPermission(ctx context.Context, roleName, resource, action string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM system_role_permissions
			WHERE role_name = $1 AND resource = $2 AND action = $3
		)`, roleName, resource, action).Scan(&exists)
	return exists, err
}

// GetAssignment fetches the custom-role assignment for a principal in a
// workspace, if any.
func (r *Repository) GetAssignment(ctx context.Context, principalID, workspaceID uuid.UUID) (UserRoleAssignment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT principal_id, workspace_id, role_id
		FROM user_role_assignments
		WHERE principal_id = $1 AND workspace_id = $2`, principalID, workspaceID)
	var a UserRoleAssignment
	if err := row.Scan(&a.PrincipalID, &a.WorkspaceID, &a.RoleID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRoleAssignment{}, fmt.Errorf("authz: assignment: %w", shared.ErrNotFound)
		}
		return UserRoleAssignment{}, err
	}
	return a, nil
}

// CountRoleAssignments counts user-role assignments referencing a role.
func (r *Repository) CountRoleAssignments(ctx context.Context, roleID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM user_role_assignments WHERE role_id = $1`, roleID).Scan(&count)
	return count, err
}

// GetPrincipal fetches a principal record.
func (r *Repository) GetPrincipal(ctx context.Context, id uuid.UUID) (Principal, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, is_global_admin FROM principals WHERE id = $1`, id)
	var p Principal
	if err := row.Scan(&p.ID, &p.IsGlobalAdmin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, fmt.Errorf("authz: principal %s: %w", id, shared.ErrNotFound)
		}
		return Principal{}, err
	}
	return p, nil
}

// GetWorkspace fetches a workspace.
func (r *Repository) GetWorkspace(ctx context.Context, id uuid.UUID) (Workspace, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, owner_id FROM workspaces WHERE id = $1`, id)
	var w Workspace
	if err := row.Scan(&w.ID, &w.Name, &w.OwnerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Workspace{}, fmt.Errorf("authz: workspace %s: %w", id, shared.ErrNotFound)
		}
		return Workspace{}, err
	}
	return w, nil
}

// GetMembership fetches the membership row for a principal in a workspace.
// When the project_access_scope column is absent the scope defaults to
// ScopeAll.
func (r *Repository) GetMembership(ctx context.Context, principalID, workspaceID uuid.UUID) (WorkspaceMembership, error) {
	withScope, err := r.hasScopeColumn(ctx)
	if err != nil {
		return WorkspaceMembership{}, err
	}

	m := WorkspaceMembership{PrincipalID: principalID, WorkspaceID: workspaceID, ProjectAccessScope: ScopeAll}
	if withScope {
		row := r.pool.QueryRow(ctx, `
			SELECT role, COALESCE(project_access_scope, 'all')
			FROM workspace_memberships
			WHERE principal_id = $1 AND workspace_id = $2`, principalID, workspaceID)
		err = row.Scan(&m.Role, &m.ProjectAccessScope)
	} else {
		row := r.pool.QueryRow(ctx, `
			SELECT role
			FROM workspace_memberships
			WHERE principal_id = $1 AND workspace_id = $2`, principalID, workspaceID)
		err = row.Scan(&m.Role)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkspaceMembership{}, fmt.Errorf("authz: membership: %w", shared.ErrNotFound)
		}
		return WorkspaceMembership{}, err
	}
	return m, nil
}

// ListOwnedWorkspaces returns workspaces owned by the principal.
func (r *Repository) ListOwnedWorkspaces(ctx context.Context, principalID uuid.UUID) ([]Workspace, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, owner_id FROM workspaces WHERE owner_id = $1 ORDER BY name`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var workspaces []Workspace
	for rows.Next() {
		var w Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.OwnerID); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, w)
	}
	return workspaces, rows.Err()
}

// ListMemberships returns every workspace the principal holds a membership
// row in, paired with the system role stored on the row.
func (r *Repository) ListMemberships(ctx context.Context, principalID uuid.UUID) ([]MembershipListing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT w.id, w.name, w.owner_id, wm.role
		FROM workspace_memberships wm
		JOIN workspaces w ON w.id = wm.workspace_id
		WHERE wm.principal_id = $1
		ORDER BY w.name`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var listings []MembershipListing
	for rows.Next() {
		var l MembershipListing
		if err := rows.Scan(&l.Workspace.ID, &l.Workspace.Name, &l.Workspace.OwnerID, &l.SystemRole); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// ListProjectGrants returns project ids explicitly granted to the principal.
func (r *Repository) ListProjectGrants(ctx context.Context, principalID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT project_id FROM project_memberships WHERE principal_id = $1`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUUIDs(rows)
}

// ListWorkspaceProjectIDs returns the ids of projects belonging to a workspace.
func (r *Repository) ListWorkspaceProjectIDs(ctx context.Context, workspaceID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM projects WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUUIDs(rows)
}

// hasScopeColumn resolves the project_access_scope capability, probing the
// information schema at most once per process. A probe failure is a store
// failure and is returned, never treated as "column missing".
func (r *Repository) hasScopeColumn(ctx context.Context) (bool, error) {
	switch r.scopeCol.Load() {
	case scopeColPresent:
		return true, nil
	case scopeColAbsent:
		return false, nil
	}

	result, err, _ := r.scopeProbe.Do("project_access_scope", func() (any, error) {
		var exists bool
		err := r.pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_name = 'workspace_memberships' AND column_name = 'project_access_scope'
			)`).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("authz: probe project_access_scope: %w", err)
		}
		if exists {
			r.scopeCol.Store(scopeColPresent)
		} else {
			r.scopeCol.Store(scopeColAbsent)
		}
		return exists, nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func scanPermissions(rows pgx.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func scanUUIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
