package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/naturants/internal/model"
	"github.com/iliyamo/naturants/internal/query"
	"github.com/iliyamo/naturants/internal/repository"
	"github.com/iliyamo/naturants/internal/service"
)

// UserHandler is the admin surface over user records.
type UserHandler struct {
	Auth  *service.AuthService
	Users UserDirectory
}

func NewUserHandler(auth *service.AuthService, users UserDirectory) *UserHandler {
	return &UserHandler{Auth: auth, Users: users}
}

type adminUserReq struct {
	profileReq
	Role *string `json:"role"`
}

// userReplaceReq is a full user document.  An absent photo clears it.
type userReplaceReq struct {
	Username        string  `json:"username" validate:"required,min=3,max=40"`
	Email           string  `json:"email" validate:"required,email"`
	Role            string  `json:"role" validate:"required"`
	Photo           *string `json:"photo"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

func (h *UserHandler) List(c echo.Context) error {
	docs, err := h.Users.List(c.Request().Context(), query.Parse(c.QueryParams()))
	if err != nil {
		return err
	}
	return listOK(c, "users", docs)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return userErr(err)
	}
	return item(c, http.StatusOK, "user", u)
}

// Create registers a user with any role, manager and admin included.
func (h *UserHandler) Create(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Auth.CreateUser(c.Request().Context(), req.registration())
	if err != nil {
		return err
	}
	return item(c, http.StatusCreated, "user", u)
}

// Update changes profile fields and the role.  Passwords are only ever
// changed by their owner.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req adminUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Password != nil || req.PasswordConfirm != nil {
		return ErrNotForPasswords
	}
	patch := repository.UserPatch{Username: req.Username, Email: req.Email, Photo: req.Photo}
	if req.Role != nil {
		role, ok := model.ParseRole(*req.Role)
		if !ok {
			return service.ErrInvalidRole
		}
		patch.Role = &role
	}
	u, err := h.Users.Update(c.Request().Context(), id, patch)
	if err != nil {
		return userErr(err)
	}
	return item(c, http.StatusOK, "user", u)
}

// Replace overwrites every profile field and the role.
func (h *UserHandler) Replace(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req userReplaceReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Password != nil || req.PasswordConfirm != nil {
		return ErrNotForPasswords
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return service.ErrInvalidRole
	}
	u, err := h.Users.Update(c.Request().Context(), id, repository.UserPatch{
		Username:   &req.Username,
		Email:      &req.Email,
		Role:       &role,
		Photo:      req.Photo,
		ClearPhoto: req.Photo == nil,
	})
	if err != nil {
		return userErr(err)
	}
	return item(c, http.StatusOK, "user", u)
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		return userErr(err)
	}
	return c.NoContent(http.StatusNoContent)
}
