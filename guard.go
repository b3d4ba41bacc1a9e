package auth

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// Authorize passes when actx is authenticated and, if roles is not empty,
// its role is one of roles.
func Authorize(actx *AuthContext, roles ...Role) error {
	if actx == nil || actx.Principal == nil {
		return NewUnauthorizedError("")
	}
	if len(roles) == 0 || actx.Role().In(roles...) {
		return nil
	}
	return NewForbiddenError(roles, actx.Role())
}

// SelfOrAdmin passes for admins and for the owner of the resource
func SelfOrAdmin(actx *AuthContext, ownerID string) error {
	if actx == nil || actx.Principal == nil {
		return NewUnauthorizedError("")
	}
	if actx.Role() == RoleAdmin || (ownerID != "" && actx.PrincipalID() == ownerID) {
		return nil
	}
	return NewOwnershipError()
}

// ResourceLoader fetches the resource a request targets. It returns a nil
// map, or an error IsNotFound recognizes, when the resource does not exist.
type ResourceLoader func(ctx context.Context) (map[string]any, error)

// OwnsResource passes admins without loading anything. Everyone else must
// own the loaded resource, compared through resource[ownerField].
func OwnsResource(ctx context.Context, actx *AuthContext, load ResourceLoader, ownerField string) (map[string]any, error) {
	if actx == nil || actx.Principal == nil {
		return nil, NewUnauthorizedError("")
	}
	if actx.Role() == RoleAdmin {
		return nil, nil
	}

	resource, err := load(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewNotFoundError("resource")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to load resource").
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)
	}
	if resource == nil {
		return nil, NewNotFoundError("resource")
	}

	owner, ok := resource[ownerField]
	if !ok || owner == nil || fmt.Sprint(owner) != actx.PrincipalID() {
		return nil, NewOwnershipError()
	}
	return resource, nil
}

// ResourceLocalsKey is where RequireOwnership stores the loaded resource
const ResourceLocalsKey = "resource"

// RequireRoles is the middleware form of Authorize. It must run after the
// authentication middleware.
func RequireRoles(roles ...Role) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			actx, _ := FromRouterContext(c)
			if err := Authorize(actx, roles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequireSelfOrAdmin compares the route param against the principal id
func RequireSelfOrAdmin(param string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			actx, _ := FromRouterContext(c)
			if err := SelfOrAdmin(actx, c.Param(param)); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequireOwnership loads the target resource and stores it under
// ResourceLocalsKey for the handler.
func RequireOwnership(load func(c router.Context) (map[string]any, error), ownerField string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			actx, _ := FromRouterContext(c)
			resource, err := OwnsResource(c.Context(), actx, func(context.Context) (map[string]any, error) {
				return load(c)
			}, ownerField)
			if err != nil {
				return err
			}
			if resource != nil {
				c.Locals(ResourceLocalsKey, resource)
			}
			return next(c)
		}
	}
}
