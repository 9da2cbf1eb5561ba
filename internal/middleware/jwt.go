package middleware // reusable HTTP middleware for the API routes

import (
	"context" // request context handed to the authenticator
	"strings" // header splitting and trimming

	"github.com/labstack/echo/v4" // middleware chaining and request context

	"github.com/iliyamo/naturants/internal/model" // the authenticated identity
)

// Authenticator turns a raw bearer token into the identity it belongs to.
// An empty token must be rejected as "not logged in".
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (model.Identity, error)
}

// Authenticate requires a valid `Authorization: Bearer <token>` header.  A
// missing or malformed header, an invalid or expired token, a deleted user
// and a password changed after the token was issued all end the request
// with the authenticator's 401 error.  On success the identity is attached
// to the context.
func Authenticate(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A header that is not a single bearer token yields "", which
			// the authenticator rejects as not logged in.
			raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			id, err := auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			// Store the identity for RequireRole and the handlers.
			setIdentity(c, id)
			return next(c)
		}
	}
}

// bearerToken returns the token of a well-formed bearer header, or "".
func bearerToken(header string) string {
	// The scheme is matched case-insensitively.
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	// Exactly one token must follow the scheme.
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return ""
	}
	return token
}
