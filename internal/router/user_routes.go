package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/naturants/internal/handler"
	"github.com/iliyamo/naturants/internal/middleware"
	"github.com/iliyamo/naturants/internal/model"
)

// RegisterUsers mounts account, profile and user administration routes.
// Static segments (/me, /signup) take precedence over /:id.
func RegisterUsers(api *echo.Group, a *handler.AuthHandler, u *handler.UserHandler, auth middleware.Authenticator) {
	g := api.Group("/users")
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.POST("/forgot-password", a.ForgotPassword)
	g.PATCH("/reset-password/:token", a.ResetPassword)

	mustAuth := middleware.Authenticate(auth)
	g.GET("/me", a.Me, mustAuth)
	g.PATCH("/me", a.UpdateMe, mustAuth)
	g.PATCH("/me/password", a.ChangePassword, mustAuth)
	g.DELETE("/me", a.DeleteMe, mustAuth)

	staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	admin := middleware.RequireRole(model.RoleAdmin)
	g.GET("", u.List, mustAuth, staff)
	g.POST("", u.Create, mustAuth, admin)
	g.GET("/:id", u.Get, mustAuth, staff)
	g.PUT("/:id", u.Replace, mustAuth, admin)
	g.PATCH("/:id", u.Update, mustAuth, admin)
	g.DELETE("/:id", u.Delete, mustAuth, admin)
}
