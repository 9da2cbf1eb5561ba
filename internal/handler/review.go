package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/naturants/internal/query"
	"github.com/iliyamo/naturants/internal/service"
)

// ReviewHandler serves /reviews and the nested /naturants/:naturantId/reviews.
type ReviewHandler struct {
	Reviews *service.ReviewService
}

func NewReviewHandler(s *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{Reviews: s}
}

// naturantScope returns the naturant named by the route, or 0 outside of
// the nested routes.
func naturantScope(c echo.Context) (uint64, error) {
	if c.Param("naturantId") == "" {
		return 0, nil
	}
	return parseID(c, "naturantId")
}

func (h *ReviewHandler) List(c echo.Context) error {
	naturantID, err := naturantScope(c)
	if err != nil {
		return err
	}
	shaped := c.QueryString() != ""
	docs, err := h.Reviews.List(c.Request().Context(), naturantID, query.Parse(c.QueryParams()), shaped)
	if err != nil {
		return err
	}
	return listOK(c, "reviews", docs)
}

func (h *ReviewHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	rv, err := h.Reviews.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return item(c, http.StatusOK, "review", rv)
}

// Create takes the naturant from the route when nested, otherwise from
// the body.  The author is always the caller.
func (h *ReviewHandler) Create(c echo.Context) error {
	author, err := currentUser(c)
	if err != nil {
		return err
	}
	naturantID, err := naturantScope(c)
	if err != nil {
		return err
	}
	var in service.ReviewInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if naturantID != 0 {
		in.NaturantID = naturantID
	}
	rv, err := h.Reviews.Create(c.Request().Context(), author, in)
	if err != nil {
		return err
	}
	return item(c, http.StatusCreated, "review", rv)
}

func (h *ReviewHandler) Update(c echo.Context) error {
	editor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var p service.ReviewPatch
	if err := bind(c, &p); err != nil {
		return err
	}
	rv, err := h.Reviews.Update(c.Request().Context(), editor, id, p)
	if err != nil {
		return err
	}
	return item(c, http.StatusOK, "review", rv)
}

func (h *ReviewHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Reviews.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
