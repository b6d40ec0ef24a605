package authz

import "github.com/google/uuid"

type checkRequest struct {
	PrincipalID uuid.UUID  `json:"principal_id" validate:"required"`
	Resource    string     `json:"resource" validate:"required,max=100"`
	Action      string     `json:"action" validate:"required,max=100"`
	WorkspaceID *uuid.UUID `json:"workspace_id,omitempty"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

type permissionPairRequest struct {
	Resource string `json:"resource" validate:"required,max=100"`
	Action   string `json:"action" validate:"required,max=100"`
}

type checkBatchRequest struct {
	PrincipalID uuid.UUID               `json:"principal_id" validate:"required"`
	Checks      []permissionPairRequest `json:"checks" validate:"required,min=1,max=100,dive"`
	WorkspaceID *uuid.UUID              `json:"workspace_id,omitempty"`
}

type checkBatchResponse struct {
	Results map[string]bool `json:"results"`
}

type workspaceRoleResponse struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	RoleName    string    `json:"role_name"`
}

type projectAccessResponse struct {
	Allowed bool `json:"allowed"`
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type updateRoleRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type setRolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,dive,gt=0"`
}

type roleResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsSystemRole bool   `json:"is_system_role"`
}

type permissionResponse struct {
	ID       int64  `json:"id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

func toRoleResponse(role Role) roleResponse {
	return roleResponse{
		ID:           role.ID,
		Name:         role.Name,
		Description:  role.Description,
		IsSystemRole: role.IsSystemRole,
	}
}

func toPermissionResponses(perms []Permission) []permissionResponse {
	out := make([]permissionResponse, len(perms))
	for i, p := range perms {
		out[i] = permissionResponse{ID: p.ID, Resource: p.Resource, Action: p.Action}
	}
	return out
}
