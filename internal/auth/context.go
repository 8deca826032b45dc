// ABOUTME: Request context carrying the authenticated tenant identity
// ABOUTME: Provides WithIdentity/FromContext for handlers behind the auth middleware

package auth

import (
	"context"
)

// identityKey is the key type for storing Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext retrieves the identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// TenantID returns the tenant of the request, or "" when unauthenticated.
func TenantID(ctx context.Context) string {
	if id := FromContext(ctx); id != nil {
		return id.TenantID
	}
	return ""
}
