package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tessera-hq/tessera/internal/platform/httpx"
	"github.com/tessera-hq/tessera/internal/shared"
)

// Handler exposes the authorization core over JSON endpoints: decision
// checks for other services and catalog management for operators.
type Handler struct {
	logger   *slog.Logger
	gateway  *Gateway
	guard    Middleware
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, gateway *Gateway, guard Middleware) *Handler {
	return &Handler{
		logger:   logger,
		gateway:  gateway,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountDecisionRoutes registers the decision endpoints under the given router.
func (h *Handler) MountDecisionRoutes(r chi.Router) {
	r.Post("/check", h.check)
	r.Post("/check-batch", h.checkBatch)
	r.Get("/workspaces", h.listWorkspaces)
	r.Get("/workspaces/{workspaceID}/projects/{projectID}/access", h.projectAccess)
}

// MountRoleRoutes registers role catalog management endpoints.
func (h *Handler) MountRoleRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermRolesView))
		r.Get("/{roleID}", h.getRole)
		r.Get("/{roleID}/permissions", h.getRolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermRolesEdit))
		r.Post("/", h.createRole)
		r.Patch("/{roleID}", h.updateRole)
		r.Delete("/{roleID}", h.deleteRole)
		r.Put("/{roleID}/permissions", h.setRolePermissions)
	})
}

// MountPermissionRoutes registers permission catalog endpoints.
func (h *Handler) MountPermissionRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermPermissionsView))
		r.Get("/", h.listPermissions)
	})
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	allowed := h.gateway.Check(r.Context(), req.PrincipalID, req.Resource, req.Action, req.WorkspaceID)
	httpx.JSON(w, http.StatusOK, checkResponse{Allowed: allowed})
}

func (h *Handler) checkBatch(w http.ResponseWriter, r *http.Request) {
	var req checkBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	pairs := make([]PermissionPair, len(req.Checks))
	for i, c := range req.Checks {
		pairs[i] = PermissionPair{Resource: c.Resource, Action: c.Action}
	}
	results := h.gateway.CheckBatch(r.Context(), req.PrincipalID, pairs, req.WorkspaceID)
	httpx.JSON(w, http.StatusOK, checkBatchResponse{Results: results})
}

func (h *Handler) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	workspaces, err := h.gateway.ListWorkspaces(r.Context(), principalID)
	if err != nil {
		h.logger.Error("list workspaces", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]workspaceRoleResponse, len(workspaces))
	for i, wr := range workspaces {
		out[i] = workspaceRoleResponse{
			WorkspaceID: wr.Workspace.ID,
			Name:        wr.Workspace.Name,
			RoleName:    wr.RoleName,
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) projectAccess(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	workspaceID, err := uuid.Parse(chi.URLParam(r, "workspaceID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid workspace id")
		return
	}
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid project id")
		return
	}
	allowed := h.gateway.ProjectAccess(r.Context(), workspaceID, projectID, principalID)
	httpx.JSON(w, http.StatusOK, projectAccessResponse{Allowed: allowed})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	role, err := h.gateway.Registry().GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.gateway.Registry().CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, ErrRoleNameRequired) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.gateway.Registry().UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, ErrRoleNameRequired) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.gateway.Registry().DeleteRole(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	perms, err := h.gateway.Registry().GetRolePermissions(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionResponses(perms))
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req setRolePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perms, err := h.gateway.Registry().SetRolePermissions(r.Context(), id, req.PermissionIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionResponses(perms))
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.gateway.Registry().ListPermissions(r.Context(), r.URL.Query().Get("resource"))
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionResponses(perms))
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return 0, false
	}
	return id, true
}
