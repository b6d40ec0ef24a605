// Package authz implements the authorization core: role resolution,
// permission evaluation, project-level access scoping, and the invariants
// that keep the role/permission catalog consistent. Every decision is
// recomputed from current catalog state; ambiguous or erroring state
// resolves to denial.
package authz

import (
	"time"

	"github.com/google/uuid"
)

// Fixed system role names, seeded once and immutable.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Project access scope values on a workspace membership.
const (
	ScopeAll        = "all"
	ScopeRestricted = "restricted"
)

// Principal is an authenticated actor. Lifecycle is owned by the external
// session subsystem; the core only reads it.
type Principal struct {
	ID            uuid.UUID
	IsGlobalAdmin bool
}

// Workspace is the tenant boundary. Every workspace-scoped resource carries
// its id; OwnerID names exactly one principal.
type Workspace struct {
	ID      uuid.UUID
	Name    string
	OwnerID uuid.UUID
}

// WorkspaceMembership links a principal to a workspace. At most one row per
// principal per workspace. ProjectAccessScope defaults to ScopeAll when the
// column is absent in older deployments.
type WorkspaceMembership struct {
	PrincipalID        uuid.UUID
	WorkspaceID        uuid.UUID
	Role               string
	ProjectAccessScope string
}

// Role is a permission grouping. System roles are seeded, immutable and
// non-deletable; custom roles carry an explicit permission set.
type Role struct {
	ID           int64
	Name         string
	Description  string
	IsSystemRole bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Permission is an addressable (resource, action) capability. Permissions
// are global; only role assignment is workspace-scoped.
type Permission struct {
	ID       int64
	Resource string
	Action   string
}

// Key returns the "resource.action" form used to address a permission.
func (p Permission) Key() string {
	return p.Resource + "." + p.Action
}

// UserRoleAssignment binds a custom role to a principal within a workspace.
// Its presence overrides the system role on the membership for permission
// purposes, but never overrides ownership.
type UserRoleAssignment struct {
	PrincipalID uuid.UUID
	WorkspaceID uuid.UUID
	RoleID      int64
}

// RelationKind tags the outcome of role resolution so callers must handle
// every case explicitly.
type RelationKind int

const (
	// RelationNone means the principal has no relationship to the workspace.
	RelationNone RelationKind = iota
	// RelationOwner means the principal is the workspace's OwnerID.
	RelationOwner
	// RelationSystemRole means a membership row with a system role applies.
	RelationSystemRole
	// RelationCustomRole means a user-role assignment replaces the system role.
	RelationCustomRole
)

// RoleResolution is the resolved effective role of a principal in a
// workspace. RoleID is meaningful only when Kind is RelationCustomRole.
type RoleResolution struct {
	Kind     RelationKind
	RoleName string
	RoleID   int64
}

// WorkspaceRole pairs a workspace with the principal's role name in it.
type WorkspaceRole struct {
	Workspace Workspace
	RoleName  string
}

// MembershipListing is a workspace joined with the system role stored on the
// principal's membership row, used when listing accessible workspaces.
type MembershipListing struct {
	Workspace  Workspace
	SystemRole string
}

// ProjectAccessContext describes a principal's project visibility within a
// workspace. An empty AccessibleProjectIDs with HasFullAccess true means
// unrestricted, not "no access"; callers must branch on HasFullAccess.
type ProjectAccessContext struct {
	HasFullAccess        bool
	AccessibleProjectIDs []uuid.UUID
	IsOwner              bool
	RoleName             string
	Scope                string
}

// PermissionPair names a single capability to evaluate in a batch check.
type PermissionPair struct {
	Resource string
	Action   string
}

// Key returns the "resource.action" map key used in batch results.
func (p PermissionPair) Key() string {
	return p.Resource + "." + p.Action
}
