package auth

import "context"

// `contextKey` is a custom type for context keys. Using a custom type prevents collisions
// with context keys defined in other packages.
type contextKey string

const identityContextKey contextKey = "auth_identity"

// Identity is the authenticated caller of a request. Handlers read it from the request
// context and pass it on explicitly; services never look it up themselves.
type Identity struct {
	UserID    int64
	Username  string
	SessionID string
}

// ContextWithIdentity returns a child context carrying id.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the identity stored by the session middleware, or nil for
// an anonymous request.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey).(*Identity)
	return id
}
