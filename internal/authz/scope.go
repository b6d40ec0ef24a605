package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tessera-hq/tessera/internal/shared"
)

// ProjectAccessScoper determines whether a principal sees every project in a
// workspace or only an explicitly granted subset.
type ProjectAccessScoper struct {
	directory DirectoryStore
	members   *MembershipResolver
}

// NewProjectAccessScoper builds a ProjectAccessScoper.
func NewProjectAccessScoper(directory DirectoryStore, members *MembershipResolver) *ProjectAccessScoper {
	return &ProjectAccessScoper{directory: directory, members: members}
}

// GetProjectAccessContext computes the principal's project visibility in the
// workspace. A missing workspace or absent membership yields a closed
// context, not an error; other store failures propagate so callers that must
// distinguish infrastructure faults can do so.
func (s *ProjectAccessScoper) GetProjectAccessContext(ctx context.Context, workspaceID, principalID uuid.UUID) (ProjectAccessContext, error) {
	closed := ProjectAccessContext{AccessibleProjectIDs: []uuid.UUID{}, Scope: ScopeRestricted}

	workspace, err := s.directory.GetWorkspace(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return closed, nil
		}
		return ProjectAccessContext{}, err
	}

	resolution, err := s.members.ResolveRole(ctx, principalID, workspaceID)
	if err != nil {
		return ProjectAccessContext{}, err
	}
	if resolution.Kind == RelationNone {
		return closed, nil
	}

	isOwner := workspace.OwnerID == principalID

	scope := ScopeAll
	if resolution.Kind != RelationOwner {
		membership, err := s.directory.GetMembership(ctx, principalID, workspaceID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return closed, nil
			}
			return ProjectAccessContext{}, err
		}
		scope = membership.ProjectAccessScope
		if scope == "" {
			scope = ScopeAll
		}
	}

	// The empty id list paired with HasFullAccess true is the unrestricted
	// sentinel; callers must branch on HasFullAccess, never on emptiness.
	if isOwner || resolution.RoleName == RoleOwner || resolution.RoleName == RoleAdmin || scope == ScopeAll {
		return ProjectAccessContext{
			HasFullAccess:        true,
			AccessibleProjectIDs: []uuid.UUID{},
			IsOwner:              isOwner,
			RoleName:             resolution.RoleName,
			Scope:                scope,
		}, nil
	}

	grants, err := s.directory.ListProjectGrants(ctx, principalID)
	if err != nil {
		return ProjectAccessContext{}, err
	}
	workspaceProjects, err := s.directory.ListWorkspaceProjectIDs(ctx, workspaceID)
	if err != nil {
		return ProjectAccessContext{}, err
	}

	// Intersect grants with the workspace's own projects. A grant pointing
	// at a project that moved workspace or was deleted must not leak across
	// the tenant boundary.
	inWorkspace := make(map[uuid.UUID]struct{}, len(workspaceProjects))
	for _, id := range workspaceProjects {
		inWorkspace[id] = struct{}{}
	}
	accessible := make([]uuid.UUID, 0, len(grants))
	seen := make(map[uuid.UUID]struct{}, len(grants))
	for _, id := range grants {
		if _, ok := inWorkspace[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		accessible = append(accessible, id)
	}

	return ProjectAccessContext{
		HasFullAccess:        false,
		AccessibleProjectIDs: accessible,
		IsOwner:              false,
		RoleName:             resolution.RoleName,
		Scope:                scope,
	}, nil
}

// CanAccessProject reports whether the principal may see the given project.
// Any failure computing the context denies.
func (s *ProjectAccessScoper) CanAccessProject(ctx context.Context, workspaceID, projectID, principalID uuid.UUID) bool {
	access, err := s.GetProjectAccessContext(ctx, workspaceID, principalID)
	if err != nil {
		return false
	}
	if access.HasFullAccess {
		return true
	}
	for _, id := range access.AccessibleProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}
