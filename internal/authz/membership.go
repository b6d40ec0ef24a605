package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tessera-hq/tessera/internal/shared"
)

// MembershipResolver determines a principal's effective role in a workspace.
// All methods are pure reads; store errors are surfaced to the caller, which
// must fail closed.
type MembershipResolver struct {
	directory DirectoryStore
	catalog   CatalogStore
}

// NewMembershipResolver builds a MembershipResolver.
func NewMembershipResolver(directory DirectoryStore, catalog CatalogStore) *MembershipResolver {
	return &MembershipResolver{directory: directory, catalog: catalog}
}

// ResolveRole resolves the effective role of a principal in a workspace.
// Precedence: ownership wins over any membership or custom-role row, even
// when such rows exist with conflicting data; a custom-role assignment
// replaces the system role stored on the membership; no membership means no
// relationship.
func (r *MembershipResolver) ResolveRole(ctx context.Context, principalID, workspaceID uuid.UUID) (RoleResolution, error) {
	workspace, err := r.directory.GetWorkspace(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return RoleResolution{Kind: RelationNone}, nil
		}
		return RoleResolution{}, err
	}

	if workspace.OwnerID == principalID {
		return RoleResolution{Kind: RelationOwner, RoleName: RoleOwner}, nil
	}

	membership, err := r.directory.GetMembership(ctx, principalID, workspaceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return RoleResolution{Kind: RelationNone}, nil
		}
		return RoleResolution{}, err
	}

	assignment, err := r.catalog.GetAssignment(ctx, principalID, workspaceID)
	switch {
	case err == nil:
		role, err := r.catalog.GetRole(ctx, assignment.RoleID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				// Assignment points at a deleted role; fall back to the
				// system role on the membership.
				return RoleResolution{Kind: RelationSystemRole, RoleName: membership.Role}, nil
			}
			return RoleResolution{}, err
		}
		return RoleResolution{Kind: RelationCustomRole, RoleName: role.Name, RoleID: role.ID}, nil
	case errors.Is(err, shared.ErrNotFound):
		return RoleResolution{Kind: RelationSystemRole, RoleName: membership.Role}, nil
	default:
		return RoleResolution{}, err
	}
}

// ListAccessibleWorkspaces returns every workspace the principal owns or is
// a member of, each paired with the resolved role name. Deduplicated by
// workspace id; ownership takes precedence when both conditions hold.
func (r *MembershipResolver) ListAccessibleWorkspaces(ctx context.Context, principalID uuid.UUID) ([]WorkspaceRole, error) {
	owned, err := r.directory.ListOwnedWorkspaces(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("authz: list owned workspaces: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(owned))
	result := make([]WorkspaceRole, 0, len(owned))
	for _, w := range owned {
		seen[w.ID] = struct{}{}
		result = append(result, WorkspaceRole{Workspace: w, RoleName: RoleOwner})
	}

	memberships, err := r.directory.ListMemberships(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("authz: list memberships: %w", err)
	}
	for _, listing := range memberships {
		if _, ok := seen[listing.Workspace.ID]; ok {
			continue
		}
		seen[listing.Workspace.ID] = struct{}{}

		roleName := listing.SystemRole
		if listing.Workspace.OwnerID == principalID {
			roleName = RoleOwner
		} else if assignment, err := r.catalog.GetAssignment(ctx, principalID, listing.Workspace.ID); err == nil {
			role, err := r.catalog.GetRole(ctx, assignment.RoleID)
			if err == nil {
				roleName = role.Name
			} else if !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}

		result = append(result, WorkspaceRole{Workspace: listing.Workspace, RoleName: roleName})
	}

	return result, nil
}
