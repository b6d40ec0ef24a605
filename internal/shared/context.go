package shared

import (
	"context"

	"github.com/google/uuid"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the authenticated principal id in context.
func ContextWithPrincipal(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, principalContextKey{}, id)
}

// PrincipalFromContext extracts the authenticated principal id from context.
// The second return is false when no identity was attached to the request.
func PrincipalFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(principalContextKey{}).(uuid.UUID)
	return id, ok
}
