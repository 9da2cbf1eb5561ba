package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/naturants/internal/apperr"
	"github.com/iliyamo/naturants/internal/middleware"
	"github.com/iliyamo/naturants/internal/model"
	"github.com/iliyamo/naturants/internal/query"
	"github.com/iliyamo/naturants/internal/repository"
	"github.com/iliyamo/naturants/internal/service"
)

// ResetPath is the route a reset link points at; the token is appended.
const ResetPath = "/api/v1/users/reset-password"

var (
	ErrLoginFields     = apperr.BadRequest("Please provide username and password")
	ErrEmailRequired   = apperr.BadRequest("Please provide your email address")
	ErrNotForPasswords = apperr.BadRequest("This route is not for password updates. Please use /users/me/password")
	ErrUserNotFound    = apperr.NotFound("User not found")
)

// UserDirectory is the user persistence the profile and admin endpoints use.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	Update(ctx context.Context, id uint64, p repository.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, p query.Plan) ([]query.Document, error)
}

// AuthHandler serves signup, login, password recovery and the
// authenticated user's own profile.
type AuthHandler struct {
	Auth      *service.AuthService
	Users     UserDirectory
	PublicURL string // base for reset links; derived from the request when empty
}

func NewAuthHandler(auth *service.AuthService, users UserDirectory, publicURL string) *AuthHandler {
	return &AuthHandler{Auth: auth, Users: users, PublicURL: strings.TrimRight(publicURL, "/")}
}

type signupReq struct {
	Username        string  `json:"username" validate:"required,min=3,max=40"`
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required"`
	PasswordConfirm string  `json:"passwordConfirm" validate:"required"`
	Role            string  `json:"role"`
	Photo           *string `json:"photo"`
}

func (r signupReq) registration() service.Registration {
	return service.Registration{
		Username:        r.Username,
		Email:           r.Email,
		Password:        r.Password,
		PasswordConfirm: r.PasswordConfirm,
		Role:            r.Role,
		Photo:           r.Photo,
	}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type forgotReq struct {
	Email string `json:"email"`
}

type newPasswordReq struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required"`
}

// resetPasswordReq reads confirmPassword; passwordConfirm, the signup
// spelling, is accepted as well.
type resetPasswordReq struct {
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (r resetPasswordReq) confirmation() string {
	if r.ConfirmPassword != "" {
		return r.ConfirmPassword
	}
	return r.PasswordConfirm
}

type changePasswordReq struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	newPasswordReq
}

type profileReq struct {
	Username        *string `json:"username" validate:"omitempty,min=3,max=40"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Photo           *string `json:"photo"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

// Signup: POST /users/signup
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.Auth.Signup(c.Request().Context(), req.registration())
	if err != nil {
		return err
	}
	return session(c, http.StatusCreated, s)
}

// Login: POST /users/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return ErrLoginFields
	}
	s, err := h.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return session(c, http.StatusOK, s)
}

// ForgotPassword: POST /users/forgot-password.  The reset token only ever
// leaves the server inside the mail.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := bind(c, &req); err != nil {
		return err
	}
	email := model.NormalizeEmail(req.Email)
	if email == "" {
		return ErrEmailRequired
	}
	if err := h.Auth.ForgotPassword(c.Request().Context(), email, h.resetBase(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": statusSuccess, "message": "Token sent to email"})
}

func (h *AuthHandler) resetBase(c echo.Context) string {
	base := h.PublicURL
	if base == "" {
		base = c.Scheme() + "://" + c.Request().Host
	}
	return base + ResetPath
}

// ResetPassword: PATCH /users/reset-password/:token
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.Auth.ResetPassword(c.Request().Context(), c.Param("token"), req.Password, req.confirmation())
	if err != nil {
		return err
	}
	return session(c, http.StatusOK, s)
}

// Me: GET /users/me
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	u, err := h.Users.GetByID(c.Request().Context(), id.ID)
	if err != nil {
		return userErr(err)
	}
	return item(c, http.StatusOK, "user", u)
}

// UpdateMe: PATCH /users/me.  Only profile fields change here; the role
// is never taken from the body.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Password != nil || req.PasswordConfirm != nil {
		return ErrNotForPasswords
	}
	u, err := h.Users.Update(c.Request().Context(), id.ID, repository.UserPatch{
		Username: req.Username,
		Email:    req.Email,
		Photo:    req.Photo,
	})
	if err != nil {
		return userErr(err)
	}
	return item(c, http.StatusOK, "user", u)
}

// ChangePassword: PATCH /users/me/password
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.Auth.ChangePassword(c.Request().Context(), id.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		return userErr(err)
	}
	return session(c, http.StatusOK, s)
}

// DeleteMe: DELETE /users/me
func (h *AuthHandler) DeleteMe(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.Users.Delete(c.Request().Context(), id.ID); err != nil {
		return userErr(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func currentUser(c echo.Context) (model.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return model.Identity{}, middleware.ErrNotLoggedIn
	}
	return id, nil
}

func userErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
