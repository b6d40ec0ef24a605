package authz

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tessera-hq/tessera/internal/shared"
)

// Middleware wires authorization guards for HTTP handlers.
type Middleware struct {
	Gateway *Gateway
	Logger  *slog.Logger
}

// RequireAny ensures the calling principal holds at least one of the given
// dotted permissions. The workspace scope, when present, is taken from the
// workspaceID route parameter or the workspace_id query parameter.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principalID, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			workspaceID := workspaceFromRequest(r)
			for _, perm := range normalized {
				resource, action := shared.SplitPermission(perm)
				if m.Gateway.Check(r.Context(), principalID, resource, action, workspaceID) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Logger != nil {
				m.Logger.Warn("permission denied", slog.String("path", r.URL.Path))
			}
			// A single generic denial: callers never learn whether the
			// principal lacked membership, role grants, or the workspace.
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func workspaceFromRequest(r *http.Request) *uuid.UUID {
	raw := chi.URLParam(r, "workspaceID")
	if raw == "" {
		raw = r.URL.Query().Get("workspace_id")
	}
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}
