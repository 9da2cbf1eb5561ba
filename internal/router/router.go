// Package router wires middleware and handlers into the echo route table.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/naturants/internal/config"
	"github.com/iliyamo/naturants/internal/handler"
	"github.com/iliyamo/naturants/internal/middleware"
)

// APIPrefix is the mount point of every versioned route.
const APIPrefix = "/api/v1"

// bodyLimit caps JSON request bodies.
const bodyLimit = "10K"

// Setup installs the error handler, the validator and the middleware every
// request passes through, then returns the /api/v1 group with the rate
// limiter attached.
func Setup(e *echo.Echo, cfg config.Config, rdb *redis.Client, log *zap.Logger) *echo.Group {
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(log, cfg.DevMode())
	e.Validator = handler.NewValidator()

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit(bodyLimit))
	e.Use(echomw.Gzip())

	return e.Group(APIPrefix, middleware.NewTokenBucket(cfg.RateLimit, rdb, log))
}

// RegisterRoutes registers the routes that live outside of /api/v1.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}
