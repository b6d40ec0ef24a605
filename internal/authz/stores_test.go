package authz

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/tessera-hq/tessera/internal/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pwKey struct {
	principal uuid.UUID
	workspace uuid.UUID
}

// fakeStore is an in-memory CatalogStore and DirectoryStore used across the
// package tests. Method-level failures can be injected through failOn.
type fakeStore struct {
	principals  map[uuid.UUID]Principal
	workspaces  map[uuid.UUID]Workspace
	memberships map[pwKey]WorkspaceMembership
	roles       map[int64]Role
	permissions map[int64]Permission
	rolePerms   map[int64]map[int64]struct{}
	systemPerms map[string]map[string]struct{}
	assignments map[pwKey]UserRoleAssignment
	projects    map[uuid.UUID]uuid.UUID
	grants      map[uuid.UUID][]uuid.UUID

	nextRoleID int64
	failOn     map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		principals:  make(map[uuid.UUID]Principal),
		workspaces:  make(map[uuid.UUID]Workspace),
		memberships: make(map[pwKey]WorkspaceMembership),
		roles:       make(map[int64]Role),
		permissions: make(map[int64]Permission),
		rolePerms:   make(map[int64]map[int64]struct{}),
		systemPerms: make(map[string]map[string]struct{}),
		assignments: make(map[pwKey]UserRoleAssignment),
		projects:    make(map[uuid.UUID]uuid.UUID),
		grants:      make(map[uuid.UUID][]uuid.UUID),
		nextRoleID:  1,
		failOn:      make(map[string]error),
	}
}

func (f *fakeStore) fail(method string) error {
	return f.failOn[method]
}

func (f *fakeStore) addPrincipal(globalAdmin bool) uuid.UUID {
	id := uuid.New()
	f.principals[id] = Principal{ID: id, IsGlobalAdmin: globalAdmin}
	return id
}

func (f *fakeStore) addWorkspace(ownerID uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.workspaces[id] = Workspace{ID: id, Name: "ws-" + id.String()[:8], OwnerID: ownerID}
	return id
}

func (f *fakeStore) addMembership(principalID, workspaceID uuid.UUID, role, scope string) {
	f.memberships[pwKey{principalID, workspaceID}] = WorkspaceMembership{
		PrincipalID:        principalID,
		WorkspaceID:        workspaceID,
		Role:               role,
		ProjectAccessScope: scope,
	}
}

func (f *fakeStore) addRole(name string, system bool) Role {
	role := Role{ID: f.nextRoleID, Name: name, IsSystemRole: system}
	f.roles[role.ID] = role
	f.nextRoleID++
	return role
}

func (f *fakeStore) addPermission(id int64, resource, action string) Permission {
	p := Permission{ID: id, Resource: resource, Action: action}
	f.permissions[id] = p
	return p
}

func (f *fakeStore) linkRolePermission(roleID, permissionID int64) {
	if f.rolePerms[roleID] == nil {
		f.rolePerms[roleID] = make(map[int64]struct{})
	}
	f.rolePerms[roleID][permissionID] = struct{}{}
}

func (f *fakeStore) grantSystemRole(roleName, resource, action string) {
	if f.systemPerms[roleName] == nil {
		f.systemPerms[roleName] = make(map[string]struct{})
	}
	f.systemPerms[roleName][resource+"."+action] = struct{}{}
}

func (f *fakeStore) addProject(workspaceID uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.projects[id] = workspaceID
	return id
}

func (f *fakeStore) addGrant(principalID, projectID uuid.UUID) {
	f.grants[principalID] = append(f.grants[principalID], projectID)
}

func (f *fakeStore) assignRole(principalID, workspaceID uuid.UUID, roleID int64) {
	f.assignments[pwKey{principalID, workspaceID}] = UserRoleAssignment{
		PrincipalID: principalID,
		WorkspaceID: workspaceID,
		RoleID:      roleID,
	}
}

// CatalogStore

func (f *fakeStore) GetRole(ctx context.Context, id int64) (Role, error) {
	if err := f.fail("GetRole"); err != nil {
		return Role{}, err
	}
	role, ok := f.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("role %d: %w", id, shared.ErrNotFound)
	}
	return role, nil
}

func (f *fakeStore) CreateRole(ctx context.Context, name, description string) (Role, error) {
	if err := f.fail("CreateRole"); err != nil {
		return Role{}, err
	}
	for _, r := range f.roles {
		if r.Name == name {
			return Role{}, fmt.Errorf("role %q: %w", name, shared.ErrDuplicateName)
		}
	}
	role := Role{ID: f.nextRoleID, Name: name, Description: description}
	f.roles[role.ID] = role
	f.nextRoleID++
	return role, nil
}

func (f *fakeStore) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("role %d: %w", id, shared.ErrNotFound)
	}
	for _, r := range f.roles {
		if r.ID != id && r.Name == name {
			return Role{}, fmt.Errorf("role %q: %w", name, shared.ErrDuplicateName)
		}
	}
	role.Name = name
	role.Description = description
	f.roles[id] = role
	return role, nil
}

func (f *fakeStore) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := f.roles[id]; !ok {
		return fmt.Errorf("role %d: %w", id, shared.ErrNotFound)
	}
	delete(f.roles, id)
	delete(f.rolePerms, id)
	return nil
}

func (f *fakeStore) ListPermissions(ctx context.Context, resourceFilter string) ([]Permission, error) {
	if err := f.fail("ListPermissions"); err != nil {
		return nil, err
	}
	var perms []Permission
	for _, p := range f.permissions {
		if resourceFilter != "" && p.Resource != resourceFilter {
			continue
		}
		perms = append(perms, p)
	}
	sortPermissions(perms)
	return perms, nil
}

func (f *fakeStore) GetPermissionsByIDs(ctx context.Context, ids []int64) ([]Permission, error) {
	if err := f.fail("GetPermissionsByIDs"); err != nil {
		return nil, err
	}
	var perms []Permission
	for _, id := range ids {
		if p, ok := f.permissions[id]; ok {
			perms = append(perms, p)
		}
	}
	sortPermissions(perms)
	return perms, nil
}

func (f *fakeStore) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	if err := f.fail("RolePermissions"); err != nil {
		return nil, err
	}
	var perms []Permission
	for id := range f.rolePerms[roleID] {
		perms = append(perms, f.permissions[id])
	}
	sortPermissions(perms)
	return perms, nil
}

func (f *fakeStore) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if err := f.fail("ReplaceRolePermissions"); err != nil {
		return err
	}
	next := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		next[id] = struct{}{}
	}
	f.rolePerms[roleID] = next
	return nil
}

func (f *fakeStore) RoleHasPermission(ctx context.Context, roleID int64, resource, action string) (bool, error) {
	if err := f.fail("RoleHasPermission"); err != nil {
		return false, err
	}
	for id := range f.rolePerms[roleID] {
		p := f.permissions[id]
		if p.Resource == resource && p.Action == action {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SystemRoleHasPermission(ctx context.Context, roleName, resource, action string) (bool, error) {
	if err := f.fail("SystemRoleHasPermission"); err != nil {
		return false, err
	}
	_, ok := f.systemPerms[roleName][resource+"."+action]
	return ok, nil
}

func (f *fakeStore) GetAssignment(ctx context.Context, principalID, workspaceID uuid.UUID) (UserRoleAssignment, error) {
	if err := f.fail("GetAssignment"); err != nil {
		return UserRoleAssignment{}, err
	}
	a, ok := f.assignments[pwKey{principalID, workspaceID}]
	if !ok {
		return UserRoleAssignment{}, fmt.Errorf("assignment: %w", shared.ErrNotFound)
	}
	return a, nil
}

func (f *fakeStore) CountRoleAssignments(ctx context.Context, roleID int64) (int64, error) {
	if err := f.fail("CountRoleAssignments"); err != nil {
		return 0, err
	}
	var count int64
	for _, a := range f.assignments {
		if a.RoleID == roleID {
			count++
		}
	}
	return count, nil
}

// DirectoryStore

func (f *fakeStore) GetPrincipal(ctx context.Context, id uuid.UUID) (Principal, error) {
	if err := f.fail("GetPrincipal"); err != nil {
		return Principal{}, err
	}
	p, ok := f.principals[id]
	if !ok {
		return Principal{}, fmt.Errorf("principal: %w", shared.ErrNotFound)
	}
	return p, nil
}

func (f *fakeStore) GetWorkspace(ctx context.Context, id uuid.UUID) (Workspace, error) {
	if err := f.fail("GetWorkspace"); err != nil {
		return Workspace{}, err
	}
	w, ok := f.workspaces[id]
	if !ok {
		return Workspace{}, fmt.Errorf("workspace: %w", shared.ErrNotFound)
	}
	return w, nil
}

func (f *fakeStore) GetMembership(ctx context.Context, principalID, workspaceID uuid.UUID) (WorkspaceMembership, error) {
	if err := f.fail("GetMembership"); err != nil {
		return WorkspaceMembership{}, err
	}
	m, ok := f.memberships[pwKey{principalID, workspaceID}]
	if !ok {
		return WorkspaceMembership{}, fmt.Errorf("membership: %w", shared.ErrNotFound)
	}
	if m.ProjectAccessScope == "" {
		m.ProjectAccessScope = ScopeAll
	}
	return m, nil
}

func (f *fakeStore) ListOwnedWorkspaces(ctx context.Context, principalID uuid.UUID) ([]Workspace, error) {
	if err := f.fail("ListOwnedWorkspaces"); err != nil {
		return nil, err
	}
	var owned []Workspace
	for _, w := range f.workspaces {
		if w.OwnerID == principalID {
			owned = append(owned, w)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].Name < owned[j].Name })
	return owned, nil
}

func (f *fakeStore) ListMemberships(ctx context.Context, principalID uuid.UUID) ([]MembershipListing, error) {
	if err := f.fail("ListMemberships"); err != nil {
		return nil, err
	}
	var listings []MembershipListing
	for key, m := range f.memberships {
		if key.principal != principalID {
			continue
		}
		w, ok := f.workspaces[key.workspace]
		if !ok {
			continue
		}
		listings = append(listings, MembershipListing{Workspace: w, SystemRole: m.Role})
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].Workspace.Name < listings[j].Workspace.Name })
	return listings, nil
}

func (f *fakeStore) ListProjectGrants(ctx context.Context, principalID uuid.UUID) ([]uuid.UUID, error) {
	if err := f.fail("ListProjectGrants"); err != nil {
		return nil, err
	}
	return append([]uuid.UUID(nil), f.grants[principalID]...), nil
}

func (f *fakeStore) ListWorkspaceProjectIDs(ctx context.Context, workspaceID uuid.UUID) ([]uuid.UUID, error) {
	if err := f.fail("ListWorkspaceProjectIDs"); err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for project, ws := range f.projects {
		if ws == workspaceID {
			ids = append(ids, project)
		}
	}
	return ids, nil
}

func sortPermissions(perms []Permission) {
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Resource != perms[j].Resource {
			return perms[i].Resource < perms[j].Resource
		}
		return perms[i].Action < perms[j].Action
	})
}
