package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScoper(store *fakeStore) *ProjectAccessScoper {
	members := NewMembershipResolver(store, store)
	return NewProjectAccessScoper(store, members)
}

func TestProjectAccessContextOwnerFullAccess(t *testing.T) {
	store := newFakeStore()
	owner := store.addPrincipal(false)
	ws := store.addWorkspace(owner)
	store.addProject(ws)

	access, err := newScoper(store).GetProjectAccessContext(context.Background(), ws, owner)
	require.NoError(t, err)
	assert.True(t, access.HasFullAccess)
	assert.True(t, access.IsOwner)
	assert.Empty(t, access.AccessibleProjectIDs)
}

func TestProjectAccessContextScopeAllSentinel(t *testing.T) {
	store := newFakeStore()
	owner := store.addPrincipal(false)
	member := store.addPrincipal(false)
	ws := store.addWorkspace(owner)
	store.addMembership(member, ws, RoleMember, ScopeAll)
	store.addProject(ws)
	store.addProject(ws)

	access, err := newScoper(store).GetProjectAccessContext(context.Background(), ws, member)
	require.NoError(t, err)
	assert.True(t, access.HasFullAccess)
	assert.False(t, access.IsOwner)
	// Full access is the empty list plus the flag, never an enumeration.
	assert.Empty(t, access.AccessibleProjectIDs)

	// A project created after the context was computed is still visible.
	newProject := store.addProject(ws)
	assert.True(t, newScoper(store).CanAccessProject(context.Background(), ws, newProject, member))
}

func TestProjectAccessContextAdminIgnoresRestrictedScope(t *testing.T) {
	store := newFakeStore()
	owner := store.addPrincipal(false)
	admin := store.addPrincipal(false)
	ws := store.addWorkspace(owner)
	store.addMembership(admin, ws, RoleAdmin, ScopeRestricted)
	store.addProject(ws)

	access, err := newScoper(store).GetProjectAccessContext(context.Background(), ws, admin)
	require.NoError(t, err)
	assert.True(t, access.HasFullAccess)
}

func TestProjectAccessContextRestrictedIntersection(t *testing.T) {
	store := newFakeStore()
	owner := store.addPrincipal(false)
	member := store.addPrincipal(false)
	ws := store.addWorkspace(owner)
	otherWS := store.addWorkspace(owner)
	store.addMembership(member, ws, RoleMember, ScopeRestricted)

	granted := store.addProject(ws)
	ungranted := store.addProject(ws)
	movedAway := store.addProject(otherWS)

	store.addGrant(member, granted)
	// Grant pointing at a project that now lives in another workspace.
	store.addGrant(member, movedAway)

	scoper := newScoper(store)
	access, err := scoper.GetProjectAccessContext(context.Background(), ws, member)
	require.NoError(t, err)
	assert.False(t, access.HasFullAccess)
	assert.Equal(t, []uuid.UUID{granted}, access.AccessibleProjectIDs)

	ctx := context.Background()
	assert.True(t, scoper.CanAccessProject(ctx, ws, granted, member))
	assert.False(t, scoper.CanAccessProject(ctx, ws, ungranted, member))
	assert.False(t, scoper.CanAccessProject(ctx, ws, movedAway, member))
}

func TestProjectAccessContextNoMembershipClosed(t *testing.T) {
	store := newFakeStore()
	owner := store.addPrincipal(false)
	stranger := store.addPrincipal(false)
	ws := store.addWorkspace(owner)
	project := store.addProject(ws)

	access, err := newScoper(store).GetProjectAccessContext(context.Background(), ws, stranger)
	require.NoError(t, err)
	assert.False(t, access.HasFullAccess)
	assert.Empty(t, access.AccessibleProjectIDs)

	assert.False(t, newScoper(store).CanAccessProject(context.Background(), ws, project, stranger))
}

func TestProjectAccessContextWorkspaceMissingClosed(t *testing.T) {
	store := newFakeStore()
	principal := store.addPrincipal(false)

	access, err := newScoper(store).GetProjectAccessContext(context.Background(), uuid.New(), principal)
	require.NoError(t, err)
	assert.False(t, access.HasFullAccess)
	assert.Empty(t, access.AccessibleProjectIDs)
}

func TestCanAccessProjectDeniesOnStoreError(t *testing.T) {
	store := newFakeStore()
	owner := store.addPrincipal(false)
	member := store.addPrincipal(false)
	ws := store.addWorkspace(owner)
	store.addMembership(member, ws, RoleMember, ScopeRestricted)
	project := store.addProject(ws)
	store.addGrant(member, project)
	store.failOn["ListProjectGrants"] = errors.New("connection reset")

	assert.False(t, newScoper(store).CanAccessProject(context.Background(), ws, project, member))
}
