// Package service holds the application logic that sits between the HTTP
// handlers and the repositories: credential checks, the reset-token
// lifecycle, rating aggregation and cache maintenance.
package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/iliyamo/naturants/internal/apperr"
	"github.com/iliyamo/naturants/internal/model"
	"github.com/iliyamo/naturants/internal/queue"
	"github.com/iliyamo/naturants/internal/repository"
	"github.com/iliyamo/naturants/internal/utils"
)

var (
	ErrMissingToken       = apperr.Unauthorized("Unauthorized - Please log in")
	ErrInvalidToken       = apperr.Unauthorized("Invalid token - Please log in")
	ErrUserGone           = apperr.Unauthorized("The user belonging to this token no longer exists")
	ErrPasswordChanged    = apperr.Unauthorized("User recently changed password - Please log in again")
	ErrInvalidCredentials = apperr.Unauthorized("Incorrect username or password")
	ErrWrongPassword      = apperr.Unauthorized("Your current password is wrong")
	ErrPasswordMismatch   = apperr.BadRequest("Passwords do not match")
	ErrPasswordTooShort   = apperr.BadRequest("Password must be at least 8 characters long")
	ErrSamePassword       = apperr.BadRequest("New password must be different from the current password")
	ErrInvalidRole        = apperr.BadRequest("Invalid role")
	ErrRoleNotAllowed     = apperr.BadRequest("Role manager or admin can only be granted by an admin")
	ErrResetTokenMissing  = apperr.BadRequest("Reset token is required")
	ErrResetTokenInvalid  = apperr.BadRequest("Token is invalid or has expired")
	ErrEmailNotFound      = apperr.NotFound("There is no user with that email address")
	ErrResetMailFailed    = apperr.New(http.StatusInternalServerError, "There was an error sending the email. Try again later!")
)

// UserStore is the persistence the auth flows need.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetToken(ctx context.Context, hash string, now time.Time) (*model.User, error)
	SetResetToken(ctx context.Context, id uint64, hash string, exp time.Time) error
	ClearResetToken(ctx context.Context, id uint64) error
	ConsumeResetToken(ctx context.Context, id uint64, tokenHash, passwordHash string, now time.Time) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string, now time.Time) error
}

// ResetNotifier delivers reset links out of band.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, ev queue.PasswordResetRequested) error
}

type AuthConfig struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
	ResetTTL   time.Duration
}

// AuthService issues and verifies credentials.
type AuthService struct {
	users    UserStore
	notifier ResetNotifier
	cfg      AuthConfig
	now      func() time.Time

	// dummyHash is verified against when a login names an unknown user so
	// both failure paths cost one bcrypt comparison.
	dummyHash string
}

func NewAuthService(users UserStore, notifier ResetNotifier, cfg AuthConfig) (*AuthService, error) {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = utils.DefaultResetTokenTTL
	}
	dummy, err := utils.HashPassword("naturants-dummy-password", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{users: users, notifier: notifier, cfg: cfg, now: time.Now, dummyHash: dummy}, nil
}

// Registration is the input of Signup and CreateUser.
type Registration struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	Role            string
	Photo           *string
}

// Session is an authenticated user together with a fresh bearer token.
type Session struct {
	User  *model.User
	Token utils.SessionToken
}

// Signup registers a user through the public endpoint.  Manager and admin
// roles cannot be self-assigned.
func (s *AuthService) Signup(ctx context.Context, in Registration) (Session, error) {
	u, err := s.register(ctx, in, false)
	if err != nil {
		return Session{}, err
	}
	return s.session(u)
}

// CreateUser registers a user on behalf of an admin; any role may be set.
func (s *AuthService) CreateUser(ctx context.Context, in Registration) (*model.User, error) {
	return s.register(ctx, in, true)
}

func (s *AuthService) register(ctx context.Context, in Registration, admin bool) (*model.User, error) {
	role := model.RoleUser
	if in.Role != "" {
		r, ok := model.ParseRole(in.Role)
		if !ok {
			return nil, ErrInvalidRole
		}
		if r.Privileged() && !admin {
			return nil, ErrRoleNotAllowed
		}
		role = r
	}
	if err := checkNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Photo:        in.Photo,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func checkNewPassword(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < utils.MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Login checks a username and password.  Unknown users and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword(s.dummyHash, password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u)
}

// Authenticate verifies a bearer token and re-loads its user.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (model.Identity, error) {
	if raw == "" {
		return model.Identity{}, ErrMissingToken
	}
	claims, err := utils.ParseSessionToken(s.cfg.Secret, raw)
	if err != nil {
		return model.Identity{}, ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Identity{}, ErrUserGone
	}
	if err != nil {
		return model.Identity{}, err
	}
	if u.ChangedPasswordAfter(claims.IssuedAt) {
		return model.Identity{}, ErrPasswordChanged
	}
	return u.Identity(), nil
}

// ForgotPassword stores a reset token for the user owning email and queues
// a mail carrying resetBase + "/" + token.  The plaintext token is never
// returned.  If the mail cannot be queued the token is withdrawn.
func (s *AuthService) ForgotPassword(ctx context.Context, email, resetBase string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrEmailNotFound
	}
	if err != nil {
		return err
	}
	tok, err := utils.NewResetToken(s.cfg.ResetTTL)
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, u.ID, tok.Hash, tok.Exp); err != nil {
		return err
	}
	ev := queue.PasswordResetRequested{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		ResetURL:    resetBase + "/" + tok.Raw,
		ExpiresAt:   tok.Exp,
		RequestedAt: s.now().UTC(),
	}
	if err := s.notifier.NotifyPasswordReset(ctx, ev); err != nil {
		_ = s.users.ClearResetToken(ctx, u.ID)
		return ErrResetMailFailed
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.  A token
// works once; the second attempt fails like an unknown token.
func (s *AuthService) ResetPassword(ctx context.Context, raw, password, confirm string) (Session, error) {
	if raw == "" {
		return Session{}, ErrResetTokenMissing
	}
	if err := checkNewPassword(password, confirm); err != nil {
		return Session{}, err
	}
	now := s.now()
	hash := utils.HashResetToken(raw)
	u, err := s.users.GetByResetToken(ctx, hash, now)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrResetTokenInvalid
	}
	if err != nil {
		return Session{}, err
	}
	if utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrSamePassword
	}
	pw, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, err
	}
	err = s.users.ConsumeResetToken(ctx, u.ID, hash, pw, now)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrResetTokenInvalid
	}
	if err != nil {
		return Session{}, err
	}
	changed := now.UTC()
	u.PasswordHash = pw
	u.PasswordResetToken, u.PasswordResetExpires = nil, nil
	u.PasswordChangedAt = &changed
	return s.session(u)
}

// ChangePassword replaces the password of a logged-in user after checking
// the current one.
func (s *AuthService) ChangePassword(ctx context.Context, id uint64, current, password, confirm string) (Session, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return Session{}, ErrWrongPassword
	}
	if err := checkNewPassword(password, confirm); err != nil {
		return Session{}, err
	}
	if current == password {
		return Session{}, ErrSamePassword
	}
	pw, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, err
	}
	now := s.now()
	if err := s.users.UpdatePassword(ctx, id, pw, now); err != nil {
		return Session{}, err
	}
	changed := now.UTC()
	u.PasswordHash = pw
	u.PasswordChangedAt = &changed
	return s.session(u)
}

func (s *AuthService) session(u *model.User) (Session, error) {
	tok, err := utils.NewSessionToken(s.cfg.Secret, u.ID, string(u.Role), s.cfg.TokenTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: tok}, nil
}
