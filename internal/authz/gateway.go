package authz

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tessera-hq/tessera/internal/observability"
)

// Gateway is the façade request handlers consume. It aggregates the
// resolver, scoper, membership resolver and registry behind the small stable
// surface of the core, performing input validation and nothing else.
type Gateway struct {
	resolver *PermissionResolver
	scoper   *ProjectAccessScoper
	members  *MembershipResolver
	registry *RoleRegistry
	metrics  *observability.Metrics
}

// NewGateway builds a Gateway. Metrics may be nil.
func NewGateway(resolver *PermissionResolver, scoper *ProjectAccessScoper, members *MembershipResolver, registry *RoleRegistry, metrics *observability.Metrics) *Gateway {
	return &Gateway{resolver: resolver, scoper: scoper, members: members, registry: registry, metrics: metrics}
}

// Check decides a single permission. Empty resource or action denies.
func (g *Gateway) Check(ctx context.Context, principalID uuid.UUID, resource, action string, workspaceID *uuid.UUID) bool {
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" || action == "" {
		g.metrics.RecordDecision(false)
		return false
	}
	allowed := g.resolver.HasPermission(ctx, principalID, resource, action, workspaceID)
	g.metrics.RecordDecision(allowed)
	return allowed
}

// CheckBatch decides a set of permission pairs, returning one boolean per
// pair keyed "resource.action". Pairs with empty parts deny.
func (g *Gateway) CheckBatch(ctx context.Context, principalID uuid.UUID, pairs []PermissionPair, workspaceID *uuid.UUID) map[string]bool {
	valid := make([]PermissionPair, 0, len(pairs))
	results := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		pair.Resource = strings.TrimSpace(pair.Resource)
		pair.Action = strings.TrimSpace(pair.Action)
		if pair.Resource == "" || pair.Action == "" {
			results[pair.Key()] = false
			continue
		}
		valid = append(valid, pair)
	}
	for key, allowed := range g.resolver.HasPermissionsBatch(ctx, principalID, valid, workspaceID) {
		results[key] = allowed
		g.metrics.RecordDecision(allowed)
	}
	return results
}

// ListWorkspaces returns the workspaces a principal may see, used to
// bootstrap a session.
func (g *Gateway) ListWorkspaces(ctx context.Context, principalID uuid.UUID) ([]WorkspaceRole, error) {
	return g.members.ListAccessibleWorkspaces(ctx, principalID)
}

// ProjectAccess reports whether the principal may see the given project.
func (g *Gateway) ProjectAccess(ctx context.Context, workspaceID, projectID, principalID uuid.UUID) bool {
	allowed := g.scoper.CanAccessProject(ctx, workspaceID, projectID, principalID)
	g.metrics.RecordDecision(allowed)
	return allowed
}

// ProjectAccessContext exposes the full scoping context for callers that
// need the accessible-project list rather than a single boolean.
func (g *Gateway) ProjectAccessContext(ctx context.Context, workspaceID, principalID uuid.UUID) (ProjectAccessContext, error) {
	return g.scoper.GetProjectAccessContext(ctx, workspaceID, principalID)
}

// Registry exposes the role catalog management surface.
func (g *Gateway) Registry() *RoleRegistry {
	return g.registry
}
