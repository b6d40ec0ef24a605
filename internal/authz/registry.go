package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tessera-hq/tessera/internal/shared"
)

// ErrRoleNameRequired indicates a create or rename with an empty name.
var ErrRoleNameRequired = errors.New("authz: role name required")

// RoleRegistry owns the lifecycle of custom roles and their permission
// assignments. System roles are seeded once and stay immutable and
// non-deletable.
type RoleRegistry struct {
	catalog CatalogStore
}

// NewRoleRegistry builds a RoleRegistry.
func NewRoleRegistry(catalog CatalogStore) *RoleRegistry {
	return &RoleRegistry{catalog: catalog}
}

// GetRole fetches a role by ID.
func (g *RoleRegistry) GetRole(ctx context.Context, id int64) (Role, error) {
	return g.catalog.GetRole(ctx, id)
}

// CreateRole inserts a new custom role. Roles created through this path are
// never system roles.
func (g *RoleRegistry) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrRoleNameRequired
	}
	return g.catalog.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole renames or re-describes an existing custom role. Nil fields are
// left unchanged. Any mutation of a system role is rejected.
func (g *RoleRegistry) UpdateRole(ctx context.Context, id int64, name, description *string) (Role, error) {
	role, err := g.catalog.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if role.IsSystemRole {
		return Role{}, fmt.Errorf("authz: role %q: %w", role.Name, shared.ErrSystemRoleImmutable)
	}

	newName := role.Name
	if name != nil {
		newName = strings.TrimSpace(*name)
		if newName == "" {
			return Role{}, ErrRoleNameRequired
		}
	}
	newDescription := role.Description
	if description != nil {
		newDescription = strings.TrimSpace(*description)
	}
	return g.catalog.UpdateRole(ctx, id, newName, newDescription)
}

// DeleteRole removes a custom role. Deletion is blocked while any user-role
// assignment references the role; the check runs before the delete.
func (g *RoleRegistry) DeleteRole(ctx context.Context, id int64) error {
	role, err := g.catalog.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return fmt.Errorf("authz: role %q: %w", role.Name, shared.ErrSystemRoleImmutable)
	}

	count, err := g.catalog.CountRoleAssignments(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("authz: role %q has %d assignments: %w", role.Name, count, shared.ErrRoleInUse)
	}

	return g.catalog.DeleteRole(ctx, id)
}

// SetRolePermissions replaces the role's permission set with exactly the
// supplied ids. Every id must name an existing permission or the whole
// operation is rejected; nothing is partially applied. Returns the new set
// sorted by (resource, action).
func (g *RoleRegistry) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) ([]Permission, error) {
	if _, err := g.catalog.GetRole(ctx, roleID); err != nil {
		return nil, err
	}

	unique := dedupeIDs(permissionIDs)
	found, err := g.catalog.GetPermissionsByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(found) != len(unique) {
		missing := missingIDs(unique, found)
		return nil, fmt.Errorf("authz: unknown permission ids %v: %w", missing, shared.ErrInvalidPermissionIDs)
	}

	if err := g.catalog.ReplaceRolePermissions(ctx, roleID, unique); err != nil {
		return nil, err
	}
	return found, nil
}

// GetRolePermissions returns the role's current permission set.
func (g *RoleRegistry) GetRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	if _, err := g.catalog.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return g.catalog.RolePermissions(ctx, roleID)
}

// ListPermissions returns the permission catalog sorted by (resource,
// action), optionally filtered by resource namespace.
func (g *RoleRegistry) ListPermissions(ctx context.Context, resourceFilter string) ([]Permission, error) {
	return g.catalog.ListPermissions(ctx, strings.TrimSpace(resourceFilter))
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

func missingIDs(requested []int64, found []Permission) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, p := range found {
		have[p.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range requested {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
