package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// LocalsKey is the request locals key the middleware stores the AuthContext under
const LocalsKey = "auth"

var authCtxKey = &contextKey{"auth"}

type contextKey struct {
	name string
}

// AuthContext is what a successful authentication attaches to a request
type AuthContext struct {
	Principal *Principal
	RawToken  string
	Claims    *AccessClaims
}

// PrincipalID returns the authenticated principal id or ""
func (a *AuthContext) PrincipalID() string {
	if a == nil || a.Principal == nil {
		return ""
	}
	return a.Principal.ID
}

// Role returns the authenticated principal role or ""
func (a *AuthContext) Role() Role {
	if a == nil || a.Principal == nil {
		return ""
	}
	return a.Principal.Role
}

// WithAuthContext sets the AuthContext in the given context
func WithAuthContext(ctx context.Context, actx *AuthContext) context.Context {
	return context.WithValue(ctx, authCtxKey, actx)
}

// FromContext finds the AuthContext in ctx. Anonymous requests return false.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	if ctx == nil {
		return nil, false
	}
	actx, ok := ctx.Value(authCtxKey).(*AuthContext)
	return actx, ok && actx != nil
}

// FromRouterContext finds the AuthContext stored by the middleware
func FromRouterContext(c router.Context) (*AuthContext, bool) {
	actx, ok := c.Locals(LocalsKey).(*AuthContext)
	if ok && actx != nil {
		return actx, true
	}
	return FromContext(c.Context())
}
