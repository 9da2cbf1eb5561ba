package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/naturants/internal/service"
)

const statusSuccess = "success"

func listOK[T any](c echo.Context, plural string, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  statusSuccess,
		"results": len(items),
		"data":    echo.Map{plural: items},
	})
}

func item(c echo.Context, status int, singular string, v any) error {
	return c.JSON(status, echo.Map{
		"status": statusSuccess,
		"data":   echo.Map{singular: v},
	})
}

// session writes a user together with a freshly issued token.
func session(c echo.Context, status int, s service.Session) error {
	return c.JSON(status, echo.Map{
		"status": statusSuccess,
		"data": echo.Map{
			"user":  s.User,
			"token": s.Token.Token,
		},
	})
}
