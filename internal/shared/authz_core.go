package shared

import "strings"

// Core platform permissions, as "resource.action" pairs.
const (
	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"

	PermWorkspacesView = "workspaces.view"
	PermWorkspacesEdit = "workspaces.edit"

	PermProjectsView = "projects.view"
	PermProjectsEdit = "projects.edit"

	PermTasksRead  = "tasks.read"
	PermTasksWrite = "tasks.write"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermWorkspacesView,
		PermWorkspacesEdit,
		PermProjectsView,
		PermProjectsEdit,
		PermTasksRead,
		PermTasksWrite,
	}
}

// SplitPermission splits a dotted permission name into its resource and
// action parts. The action may itself contain dots ("reports.view_dashboard").
func SplitPermission(name string) (resource, action string) {
	resource, action, ok := strings.Cut(name, ".")
	if !ok {
		return name, ""
	}
	return resource, action
}
