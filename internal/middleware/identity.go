package middleware

// identity.go holds the typed accessors for the authenticated principal.
// Authenticate stores it once; everything downstream only reads it.

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/naturants/internal/model"
)

const identityKey = "naturants.identity"

type ctxKey struct{}

func setIdentity(c echo.Context, id model.Identity) {
	c.Set(identityKey, id)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), ctxKey{}, id)))
}

// IdentityFrom returns the identity attached by Authenticate.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}

// IdentityFromContext is IdentityFrom for code that only has the request
// context.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(model.Identity)
	return id, ok
}

// userID returns the authenticated user's id, or "guest".
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.ID, 10)
	}
	return "guest"
}
