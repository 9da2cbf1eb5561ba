package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/naturants/internal/apperr"
	"github.com/iliyamo/naturants/internal/repository"
)

var ErrInvalidID = apperr.BadRequest("Invalid resource id")

// ErrorHandler is installed as echo's HTTPErrorHandler.  Every handler and
// middleware error ends up here and is written in one envelope:
// {error} in production, {error, message, stack} in development.
func ErrorHandler(log *zap.Logger, dev bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		e := resolve(err)
		if !e.Operational {
			log.Error("unhandled error",
				zap.Error(err),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
		}

		body := echo.Map{"error": e.Message}
		if dev {
			body["error"] = e.Error()
			body["message"] = e.Message
			body["stack"] = apperr.Stack(e)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(e.Status)
		} else {
			err = c.JSON(e.Status, body)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}

// resolve maps driver and framework errors onto application errors.
func resolve(err error) *apperr.Error {
	var dup *repository.DuplicateError
	if errors.As(err, &dup) {
		return apperr.BadRequest("Duplicate field value: " + dup.Value)
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return apperr.New(he.Code, msg)
	}
	return apperr.From(err)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
