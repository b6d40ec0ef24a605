package authz

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tessera-hq/tessera/internal/shared"
)

// batchConcurrency bounds parallel pair evaluation in HasPermissionsBatch.
const batchConcurrency = 8

// PermissionResolver is the decision function. It never returns errors: an
// authorization check that crashes is operationally worse than one that
// denies, so every ambiguous or failing condition resolves to false.
type PermissionResolver struct {
	directory DirectoryStore
	catalog   CatalogStore
	members   *MembershipResolver
}

// NewPermissionResolver builds a PermissionResolver.
func NewPermissionResolver(directory DirectoryStore, catalog CatalogStore, members *MembershipResolver) *PermissionResolver {
	return &PermissionResolver{directory: directory, catalog: catalog, members: members}
}

// HasPermission decides whether the principal may perform action on resource,
// optionally within a workspace. Evaluation order is strict, first match
// wins: global admin, workspace ownership, then the resolved role's
// permission set (custom role if assigned, otherwise the seeded defaults for
// the system role).
func (r *PermissionResolver) HasPermission(ctx context.Context, principalID uuid.UUID, resource, action string, workspaceID *uuid.UUID) bool {
	principal, err := r.directory.GetPrincipal(ctx, principalID)
	if err == nil && principal.IsGlobalAdmin {
		return true
	}
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return false
	}

	// Without a workspace there is no membership to resolve a role from;
	// only global admins pass workspace-less checks.
	if workspaceID == nil {
		return false
	}

	workspace, err := r.directory.GetWorkspace(ctx, *workspaceID)
	if err != nil {
		return false
	}
	if workspace.OwnerID == principalID {
		return true
	}

	resolution, err := r.members.ResolveRole(ctx, principalID, *workspaceID)
	if err != nil {
		return false
	}

	switch resolution.Kind {
	case RelationOwner:
		return true
	case RelationCustomRole:
		allowed, err := r.catalog.RoleHasPermission(ctx, resolution.RoleID, resource, action)
		return err == nil && allowed
	case RelationSystemRole:
		allowed, err := r.catalog.SystemRoleHasPermission(ctx, resolution.RoleName, resource, action)
		return err == nil && allowed
	default:
		return false
	}
}

// HasPermissionsBatch evaluates every pair and returns one boolean per pair,
// keyed "resource.action". Pairs are independent read-only checks and are
// evaluated concurrently; each one carries the exact semantics of
// HasPermission.
func (r *PermissionResolver) HasPermissionsBatch(ctx context.Context, principalID uuid.UUID, pairs []PermissionPair, workspaceID *uuid.UUID) map[string]bool {
	results := make(map[string]bool, len(pairs))
	if len(pairs) == 0 {
		return results
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			allowed := r.HasPermission(gctx, principalID, pair.Resource, pair.Action, workspaceID)
			mu.Lock()
			results[pair.Key()] = allowed
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
