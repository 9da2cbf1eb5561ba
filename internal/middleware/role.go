package middleware // reusable HTTP middleware for the API routes

import (
	"github.com/labstack/echo/v4" // middleware chaining and request context

	"github.com/iliyamo/naturants/internal/apperr" // operational 401 and 403 errors
	"github.com/iliyamo/naturants/internal/authz"  // the role decision itself
	"github.com/iliyamo/naturants/internal/model"  // role values
)

// Rejections returned by RequireRole.  The error handler renders them as
// {"error": message}.
var (
	ErrNotLoggedIn      = apperr.Unauthorized("Unauthorized - Please log in")
	ErrPermissionDenied = apperr.Forbidden("Permission denied")
)

// RequireRole lets the request through only when the authenticated user's
// role is one of roles.  It must run after Authenticate.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	// Private copy of the allowed roles.
	allowed := append([]model.Role(nil), roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Without an identity the zero role is checked, which authz
			// reports as unauthenticated.
			id, _ := IdentityFrom(c)
			switch authz.Check(id.Role, allowed...) {
			case authz.Allow:
				// Role is in the allowed set.
				return next(c)
			case authz.DenyUnauthenticated:
				return ErrNotLoggedIn
			default:
				// Logged in, but the role is not allowed here.
				return ErrPermissionDenied
			}
		}
	}
}
