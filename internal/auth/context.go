package auth

import (
	"context"

	"github.com/mewilker/jwt-pizza-service/internal/models"
)

// Context is the immutable authorization context for one request: the
// caller's identity plus the fixed set of roles granted when the token was
// issued. The zero value is an unauthenticated caller.
type Context struct {
	UserID int64
	Name   string
	Email  string
	Roles  []models.UserRole
}

// Authenticated reports whether a valid active token backed this request.
func (c Context) Authenticated() bool {
	return c.UserID != 0
}

// HasRole reports whether the caller holds the given role.
func (c Context) HasRole(role models.Role) bool {
	for _, r := range c.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

// FromClaims builds an authorization context from verified token claims.
func FromClaims(claims Claims) Context {
	return Context{
		UserID: claims.UserID,
		Name:   claims.Name,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}
}

type ctxKey struct{}

// WithContext attaches an authorization context to a request context.
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext returns the attached authorization context, or the zero value
// when the request is unauthenticated.
func FromContext(ctx context.Context) Context {
	if ac, ok := ctx.Value(ctxKey{}).(Context); ok {
		return ac
	}
	return Context{}
}
