package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-hq/tessera/internal/shared"
)

func TestCreateRoleTrimsName(t *testing.T) {
	store := newFakeStore()
	registry := NewRoleRegistry(store)

	role, err := registry.CreateRole(context.Background(), "  reviewer  ", "  reviews things  ")
	require.NoError(t, err)
	assert.Equal(t, "reviewer", role.Name)
	assert.Equal(t, "reviews things", role.Description)
	assert.False(t, role.IsSystemRole)
}

func TestCreateRoleEmptyNameRejected(t *testing.T) {
	registry := NewRoleRegistry(newFakeStore())

	_, err := registry.CreateRole(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrRoleNameRequired)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	store := newFakeStore()
	registry := NewRoleRegistry(store)
	ctx := context.Background()

	_, err := registry.CreateRole(ctx, "reviewer", "")
	require.NoError(t, err)
	_, err = registry.CreateRole(ctx, "reviewer", "")
	assert.ErrorIs(t, err, shared.ErrDuplicateName)
}

func TestUpdateRolePartialFields(t *testing.T) {
	store := newFakeStore()
	registry := NewRoleRegistry(store)
	ctx := context.Background()

	role, err := registry.CreateRole(ctx, "reviewer", "original")
	require.NoError(t, err)

	name := "auditor"
	updated, err := registry.UpdateRole(ctx, role.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "auditor", updated.Name)
	assert.Equal(t, "original", updated.Description)
}

func TestUpdateRoleSystemRoleImmutable(t *testing.T) {
	store := newFakeStore()
	system := store.addRole("member", true)
	registry := NewRoleRegistry(store)

	name := "renamed"
	_, err := registry.UpdateRole(context.Background(), system.ID, &name, nil)
	assert.ErrorIs(t, err, shared.ErrSystemRoleImmutable)
}

func TestDeleteRoleSystemRoleImmutable(t *testing.T) {
	store := newFakeStore()
	system := store.addRole("admin", true)
	registry := NewRoleRegistry(store)

	err := registry.DeleteRole(context.Background(), system.ID)
	assert.ErrorIs(t, err, shared.ErrSystemRoleImmutable)
	_, ok := store.roles[system.ID]
	assert.True(t, ok)
}

func TestDeleteRoleInUse(t *testing.T) {
	store := newFakeStore()
	owner := store.addPrincipal(false)
	member := store.addPrincipal(false)
	ws := store.addWorkspace(owner)
	registry := NewRoleRegistry(store)
	ctx := context.Background()

	role, err := registry.CreateRole(ctx, "reviewer", "")
	require.NoError(t, err)
	store.assignRole(member, ws, role.ID)

	err = registry.DeleteRole(ctx, role.ID)
	assert.ErrorIs(t, err, shared.ErrRoleInUse)

	// Unassign and the delete goes through.
	delete(store.assignments, pwKey{member, ws})
	require.NoError(t, registry.DeleteRole(ctx, role.ID))
	_, ok := store.roles[role.ID]
	assert.False(t, ok)
}

func TestDeleteRoleNotFound(t *testing.T) {
	registry := NewRoleRegistry(newFakeStore())
	err := registry.DeleteRole(context.Background(), 42)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSetRolePermissionsReplacesExactly(t *testing.T) {
	store := newFakeStore()
	permA := store.addPermission(1, "tasks", "read")
	permB := store.addPermission(2, "tasks", "write")
	permC := store.addPermission(3, "projects", "view")
	registry := NewRoleRegistry(store)
	ctx := context.Background()

	role, err := registry.CreateRole(ctx, "reviewer", "")
	require.NoError(t, err)

	_, err = registry.SetRolePermissions(ctx, role.ID, []int64{permA.ID, permB.ID})
	require.NoError(t, err)

	after, err := registry.SetRolePermissions(ctx, role.ID, []int64{permB.ID, permC.ID})
	require.NoError(t, err)

	keys := make([]string, 0, len(after))
	for _, p := range after {
		keys = append(keys, p.Key())
	}
	assert.ElementsMatch(t, []string{permB.Key(), permC.Key()}, keys)

	current, err := registry.GetRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, current, 2)
	for _, p := range current {
		assert.NotEqual(t, permA.ID, p.ID)
	}
}

func TestSetRolePermissionsUnknownIDRejected(t *testing.T) {
	store := newFakeStore()
	permA := store.addPermission(1, "tasks", "read")
	registry := NewRoleRegistry(store)
	ctx := context.Background()

	role, err := registry.CreateRole(ctx, "reviewer", "")
	require.NoError(t, err)
	_, err = registry.SetRolePermissions(ctx, role.ID, []int64{permA.ID})
	require.NoError(t, err)

	// One bad id rejects the whole set and leaves the current set intact.
	_, err = registry.SetRolePermissions(ctx, role.ID, []int64{permA.ID, 99})
	assert.ErrorIs(t, err, shared.ErrInvalidPermissionIDs)

	current, err := registry.GetRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, permA.ID, current[0].ID)
}

func TestSetRolePermissionsEmptySetAllowed(t *testing.T) {
	store := newFakeStore()
	permA := store.addPermission(1, "tasks", "read")
	registry := NewRoleRegistry(store)
	ctx := context.Background()

	role, err := registry.CreateRole(ctx, "reviewer", "")
	require.NoError(t, err)
	_, err = registry.SetRolePermissions(ctx, role.ID, []int64{permA.ID})
	require.NoError(t, err)

	after, err := registry.SetRolePermissions(ctx, role.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestSetRolePermissionsDedupesIDs(t *testing.T) {
	store := newFakeStore()
	permA := store.addPermission(1, "tasks", "read")
	registry := NewRoleRegistry(store)
	ctx := context.Background()

	role, err := registry.CreateRole(ctx, "reviewer", "")
	require.NoError(t, err)
	after, err := registry.SetRolePermissions(ctx, role.ID, []int64{permA.ID, permA.ID, permA.ID})
	require.NoError(t, err)
	assert.Len(t, after, 1)
}

func TestSetRolePermissionsUnknownRole(t *testing.T) {
	registry := NewRoleRegistry(newFakeStore())
	_, err := registry.SetRolePermissions(context.Background(), 42, nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListPermissionsSortedAndFiltered(t *testing.T) {
	store := newFakeStore()
	store.addPermission(1, "tasks", "write")
	store.addPermission(2, "tasks", "read")
	store.addPermission(3, "projects", "view")
	registry := NewRoleRegistry(store)
	ctx := context.Background()

	all, err := registry.ListPermissions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "projects.view", all[0].Key())
	assert.Equal(t, "tasks.read", all[1].Key())
	assert.Equal(t, "tasks.write", all[2].Key())

	tasks, err := registry.ListPermissions(ctx, "tasks")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, p := range tasks {
		assert.Equal(t, "tasks", p.Resource)
	}
}
