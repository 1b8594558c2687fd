package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/academiaalbert/academia-backend/pkg/enums"
)

// Identity is what Auth learned from a verified access token.
type Identity struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	AccessID string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext reports false on routes that did not pass through Auth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != uuid.Nil
}

// UserIDFromContext returns "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}

// AccessIDFromContext returns the jti of the token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.AccessID
}
