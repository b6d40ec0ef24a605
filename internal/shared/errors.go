package shared

import "errors"

var (
	// ErrNotFound indicates workspace, role, permission or membership absent.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName indicates a role name collision.
	ErrDuplicateName = errors.New("duplicate role name")
	// ErrSystemRoleImmutable indicates a mutation attempted on a seeded role.
	ErrSystemRoleImmutable = errors.New("system role is immutable")
	// ErrRoleInUse indicates deletion blocked by existing role assignments.
	ErrRoleInUse = errors.New("role is in use")
	// ErrInvalidPermissionIDs indicates a replace-set containing unknown permission ids.
	ErrInvalidPermissionIDs = errors.New("invalid permission ids")
)
