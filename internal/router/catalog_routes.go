package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/naturants/internal/handler"
	"github.com/iliyamo/naturants/internal/middleware"
	"github.com/iliyamo/naturants/internal/model"
)

// RegisterNaturants mounts the naturant routes and the reviews nested
// under a naturant.  cached wraps the public reads only; writes never
// pass through it, so a cached response cannot stand in for an auth
// check.  The services flush cached responses after every write.
func RegisterNaturants(api *echo.Group, n *handler.NaturantHandler, r *handler.ReviewHandler, auth middleware.Authenticator, cached echo.MiddlewareFunc) {
	g := api.Group("/naturants")
	g.GET("", n.List, cached)
	g.GET("/top", n.Top, cached)
	g.GET("/:id", n.Get, cached)

	mustAuth := middleware.Authenticate(auth)
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	g.POST("", n.Create, mustAuth, staff)
	g.PUT("/:id", n.Replace, mustAuth, staff)
	g.PATCH("/:id", n.Patch, mustAuth, staff)
	g.DELETE("/:id", n.Delete, mustAuth, staff)

	g.GET("/:naturantId/reviews", r.List, mustAuth)
	g.POST("/:naturantId/reviews", r.Create, mustAuth, middleware.RequireRole(model.RoleUser, model.RoleAdmin))
}

// RegisterReviews mounts /reviews.  Every review route needs a session.
func RegisterReviews(api *echo.Group, r *handler.ReviewHandler, auth middleware.Authenticator) {
	g := api.Group("/reviews", middleware.Authenticate(auth))
	authors := middleware.RequireRole(model.RoleUser, model.RoleAdmin)
	g.GET("", r.List)
	g.GET("/:id", r.Get)
	g.POST("", r.Create, authors)
	g.PATCH("/:id", r.Update, authors)
	g.DELETE("/:id", r.Delete, middleware.RequireRole(model.RoleAdmin))
}
