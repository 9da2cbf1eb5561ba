package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/naturants/internal/query"
	"github.com/iliyamo/naturants/internal/service"
)

type NaturantHandler struct {
	Naturants *service.NaturantService
}

func NewNaturantHandler(s *service.NaturantService) *NaturantHandler {
	return &NaturantHandler{Naturants: s}
}

// List: GET /naturants with filter, sort, fields and paging parameters.
func (h *NaturantHandler) List(c echo.Context) error {
	docs, err := h.Naturants.List(c.Request().Context(), query.Parse(c.QueryParams()))
	if err != nil {
		return err
	}
	return listOK(c, "naturants", docs)
}

// Top: GET /naturants/top
func (h *NaturantHandler) Top(c echo.Context) error {
	top, err := h.Naturants.Top(c.Request().Context())
	if err != nil {
		return err
	}
	return listOK(c, "naturants", top)
}

func (h *NaturantHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	n, err := h.Naturants.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return item(c, http.StatusOK, "naturant", n)
}

func (h *NaturantHandler) Create(c echo.Context) error {
	var in service.NaturantInput
	if err := bind(c, &in); err != nil {
		return err
	}
	n, err := h.Naturants.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return item(c, http.StatusCreated, "naturant", n)
}

// Replace: PUT /naturants/:id
func (h *NaturantHandler) Replace(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in service.NaturantInput
	if err := bind(c, &in); err != nil {
		return err
	}
	n, err := h.Naturants.Replace(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return item(c, http.StatusOK, "naturant", n)
}

// Patch: PATCH /naturants/:id
func (h *NaturantHandler) Patch(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var p service.NaturantPatch
	if err := bind(c, &p); err != nil {
		return err
	}
	n, err := h.Naturants.Patch(c.Request().Context(), id, p)
	if err != nil {
		return err
	}
	return item(c, http.StatusOK, "naturant", n)
}

func (h *NaturantHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Naturants.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
