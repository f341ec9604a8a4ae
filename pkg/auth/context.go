package auth

import (
	"context"

	apperrors "sidebet-backend/pkg/errors"
)

// Identity is the verified caller identity handed down by the identity
// provider: a subject id plus the granted scope set.
type Identity struct {
	Subject string
	Email   string
	Scopes  []string
}

// HasScope reports whether the identity carries the given scope.
func (id Identity) HasScope(scope string) bool {
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type contextKey string

const identityKey contextKey = "auth.identity"

// SetIdentity stores the verified identity in the request context.
func SetIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the verified identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Identity{}, apperrors.NewUnauthorizedError("no identity in request context")
	}
	return id, nil
}
