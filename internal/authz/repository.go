package authz

import (
	"context"

	"github.com/google/uuid"
)

// CatalogStore defines data access for the role/permission catalog: roles,
// permissions, role-permission links, and per-workspace user-role
// assignments. Implementations return shared.ErrNotFound (wrapped) for
// absent single-row lookups.
type CatalogStore interface {
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error

	ListPermissions(ctx context.Context, resourceFilter string) ([]Permission, error)
	GetPermissionsByIDs(ctx context.Context, ids []int64) ([]Permission, error)

	RolePermissions(ctx context.Context, roleID int64) ([]Permission, error)
	// ReplaceRolePermissions atomically swaps the role's permission set for
	// exactly the supplied ids. Readers observe the old set or the new set,
	// never a mixture.
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	RoleHasPermission(ctx context.Context, roleID int64, resource, action string) (bool, error)
	SystemRoleHasPermission(ctx context.Context, roleName, resource, action string) (bool, error)

	GetAssignment(ctx context.Context, principalID, workspaceID uuid.UUID) (UserRoleAssignment, error)
	CountRoleAssignments(ctx context.Context, roleID int64) (int64, error)
}

// DirectoryStore defines the workspace/membership/project read surface owned
// by the broader application. The core consumes it read-only.
type DirectoryStore interface {
	GetPrincipal(ctx context.Context, id uuid.UUID) (Principal, error)
	GetWorkspace(ctx context.Context, id uuid.UUID) (Workspace, error)
	GetMembership(ctx context.Context, principalID, workspaceID uuid.UUID) (WorkspaceMembership, error)

	ListOwnedWorkspaces(ctx context.Context, principalID uuid.UUID) ([]Workspace, error)
	ListMemberships(ctx context.Context, principalID uuid.UUID) ([]MembershipListing, error)

	ListProjectGrants(ctx context.Context, principalID uuid.UUID) ([]uuid.UUID, error)
	ListWorkspaceProjectIDs(ctx context.Context, workspaceID uuid.UUID) ([]uuid.UUID, error)
}
