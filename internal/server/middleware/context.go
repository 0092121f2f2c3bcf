package middleware

import (
	"context"

	authdomain "saas-erp/backend/internal/auth/domain"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying the authenticated identity.
// Handlers and services read it back via GetIdentity.
func WithIdentity(ctx context.Context, id authdomain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the identity from context and true if set; otherwise
// the zero Identity and false.
func GetIdentity(ctx context.Context) (authdomain.Identity, bool) {
	v, ok := ctx.Value(identityKey).(authdomain.Identity)
	return v, ok
}
