package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/naturants/internal/model"
	"github.com/iliyamo/naturants/internal/queue"
	"github.com/iliyamo/naturants/internal/repository"
	"github.com/iliyamo/naturants/internal/utils"
)

const testSecret = "test-secret"

// memUsers is an in-memory UserStore that enforces the same unique keys as
// the users table.
type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.User
}

func newMemUsers() *memUsers { return &memUsers{rows: map[uint64]*model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	model.PrepareUser(u, time.Now())
	for _, r := range m.rows {
		if r.Username == u.Username {
			return &repository.DuplicateError{Value: u.Username, Key: "users.uq_users_username"}
		}
		if r.Email == u.Email {
			return &repository.DuplicateError{Value: u.Email, Key: "users.uq_users_email"}
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memUsers) find(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == username })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	return m.find(func(u *model.User) bool { return u.Email == email })
}

func (m *memUsers) GetByResetToken(_ context.Context, hash string, now time.Time) (*model.User, error) {
	return m.find(func(u *model.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == hash && u.PasswordResetExpires.After(now)
	})
}

func (m *memUsers) update(id uint64, fn func(*model.User) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok || !fn(u) {
		return repository.ErrNotFound
	}
	return nil
}

func (m *memUsers) SetResetToken(_ context.Context, id uint64, hash string, exp time.Time) error {
	return m.update(id, func(u *model.User) bool {
		u.PasswordResetToken, u.PasswordResetExpires = &hash, &exp
		return true
	})
}

func (m *memUsers) ClearResetToken(_ context.Context, id uint64) error {
	return m.update(id, func(u *model.User) bool {
		u.PasswordResetToken, u.PasswordResetExpires = nil, nil
		return true
	})
}

func (m *memUsers) ConsumeResetToken(_ context.Context, id uint64, tokenHash, passwordHash string, now time.Time) error {
	return m.update(id, func(u *model.User) bool {
		if u.PasswordResetToken == nil || *u.PasswordResetToken != tokenHash || !u.PasswordResetExpires.After(now) {
			return false
		}
		u.PasswordHash = passwordHash
		u.PasswordResetToken, u.PasswordResetExpires = nil, nil
		u.PasswordChangedAt = &now
		return true
	})
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, passwordHash string, now time.Time) error {
	return m.update(id, func(u *model.User) bool {
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = &now
		return true
	})
}

func (m *memUsers) delete(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
}

type fakeNotifier struct {
	events []queue.PasswordResetRequested
	err    error
}

func (f *fakeNotifier) NotifyPasswordReset(_ context.Context, ev queue.PasswordResetRequested) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func newAuth(t *testing.T) (*AuthService, *memUsers, *fakeNotifier) {
	t.Helper()
	users := newMemUsers()
	n := &fakeNotifier{}
	svc, err := NewAuthService(users, n, AuthConfig{
		Secret:     testSecret,
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		ResetTTL:   10 * time.Minute,
	})
	require.NoError(t, err)
	return svc, users, n
}

func alice() Registration {
	return Registration{
		Username:        "alice",
		Email:           "a@x.com",
		Password:        "pw123456",
		PasswordConfirm: "pw123456",
		Role:            "user",
	}
}

func TestSignup(t *testing.T) {
	t.Parallel()
	svc, users, _ := newAuth(t)

	s, err := svc.Signup(context.Background(), alice())
	require.NoError(t, err)
	assert.Equal(t, "alice", s.User.Username)
	assert.Equal(t, model.RoleUser, s.User.Role)
	assert.NotEqual(t, "pw123456", s.User.PasswordHash)
	assert.NotEmpty(t, s.Token.Token)

	claims, err := utils.ParseSessionToken(testSecret, s.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, claims.UserID)

	stored, err := users.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "pw123456"))
}

func TestSignup_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		edit func(*Registration)
		want error
	}{
		{"password mismatch", func(r *Registration) { r.PasswordConfirm = "pw654321" }, ErrPasswordMismatch},
		{"short password", func(r *Registration) { r.Password, r.PasswordConfirm = "short", "short" }, ErrPasswordTooShort},
		{"unknown role", func(r *Registration) { r.Role = "owner" }, ErrInvalidRole},
		{"self-assigned admin", func(r *Registration) { r.Role = "admin" }, ErrRoleNotAllowed},
		{"self-assigned manager", func(r *Registration) { r.Role = "Manager" }, ErrRoleNotAllowed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, users, _ := newAuth(t)
			in := alice()
			tt.edit(&in)

			_, err := svc.Signup(context.Background(), in)
			assert.ErrorIs(t, err, tt.want)
			_, err = users.GetByUsername(context.Background(), "alice")
			assert.ErrorIs(t, err, repository.ErrNotFound, "no identity may be created")
		})
	}
}

func TestSignup_DefaultRoleAndNonPrivilegedRoles(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAuth(t)

	in := alice()
	in.Role = ""
	s, err := svc.Signup(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, s.User.Role)

	in = Registration{Username: "carl", Email: "c@x.com", Password: "pw123456", PasswordConfirm: "pw123456", Role: "chef"}
	s, err = svc.Signup(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.RoleChef, s.User.Role)
}

func TestSignup_DuplicateUsername(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAuth(t)

	_, err := svc.Signup(context.Background(), alice())
	require.NoError(t, err)

	in := alice()
	in.Email = "other@x.com"
	_, err = svc.Signup(context.Background(), in)
	var dup *repository.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "alice", dup.Value)
}

func TestCreateUser_AdminMayGrantAnyRole(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAuth(t)

	in := alice()
	in.Role = "admin"
	u, err := svc.CreateUser(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
}

func TestLogin_EnumerationResistant(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAuth(t)
	_, err := svc.Signup(context.Background(), alice())
	require.NoError(t, err)

	s, err := svc.Login(context.Background(), "alice", "pw123456")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token.Token)

	_, wrongPw := svc.Login(context.Background(), "alice", "nope-nope")
	_, unknown := svc.Login(context.Background(), "mallory", "pw123456")
	require.Error(t, wrongPw)
	require.Error(t, unknown)
	assert.Equal(t, wrongPw, unknown)
	assert.ErrorIs(t, unknown, ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	svc, users, _ := newAuth(t)
	s, err := svc.Signup(context.Background(), alice())
	require.NoError(t, err)
	ctx := context.Background()

	id, err := svc.Authenticate(ctx, s.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, model.Identity{ID: s.User.ID, Username: "alice", Email: "a@x.com", Role: model.RoleUser}, id)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = svc.Authenticate(ctx, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := utils.NewSessionToken(testSecret, s.User.ID, "user", -time.Minute)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := utils.NewSessionToken("other-secret", s.User.ID, "user", time.Hour)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, foreign.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := time.Now().Add(time.Hour)
	require.NoError(t, users.UpdatePassword(ctx, s.User.ID, s.User.PasswordHash, later))
	_, err = svc.Authenticate(ctx, s.Token.Token)
	assert.ErrorIs(t, err, ErrPasswordChanged)

	users.delete(s.User.ID)
	_, err = svc.Authenticate(ctx, s.Token.Token)
	assert.ErrorIs(t, err, ErrUserGone)
}

func resetTokenFrom(t *testing.T, ev queue.PasswordResetRequested) string {
	t.Helper()
	i := strings.LastIndex(ev.ResetURL, "/")
	require.Positive(t, i)
	return ev.ResetURL[i+1:]
}

func TestForgotPassword(t *testing.T) {
	t.Parallel()
	svc, users, n := newAuth(t)
	ctx := context.Background()
	s, err := svc.Signup(ctx, alice())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ForgotPassword(ctx, "nobody@x.com", "http://h/api/v1/users/reset-password"), ErrEmailNotFound)
	require.NoError(t, svc.ForgotPassword(ctx, " A@X.com ", "http://h/api/v1/users/reset-password"))

	require.Len(t, n.events, 1)
	ev := n.events[0]
	assert.Equal(t, "a@x.com", ev.Email)
	assert.True(t, strings.HasPrefix(ev.ResetURL, "http://h/api/v1/users/reset-password/"))
	raw := resetTokenFrom(t, ev)
	assert.Len(t, raw, 64)

	stored, err := users.GetByID(ctx, s.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordResetToken)
	assert.Equal(t, utils.HashResetToken(raw), *stored.PasswordResetToken, "only the hash is persisted")
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *stored.PasswordResetExpires, 5*time.Second)
}

func TestForgotPassword_MailFailureWithdrawsToken(t *testing.T) {
	t.Parallel()
	svc, users, n := newAuth(t)
	ctx := context.Background()
	s, err := svc.Signup(ctx, alice())
	require.NoError(t, err)
	n.err = errors.New("broker down")

	assert.ErrorIs(t, svc.ForgotPassword(ctx, "a@x.com", "http://h"), ErrResetMailFailed)
	stored, err := users.GetByID(ctx, s.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)
}

func TestResetPassword_SingleUse(t *testing.T) {
	t.Parallel()
	svc, users, n := newAuth(t)
	ctx := context.Background()
	s, err := svc.Signup(ctx, alice())
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "a@x.com", "http://h"))
	raw := resetTokenFrom(t, n.events[0])

	got, err := svc.ResetPassword(ctx, raw, "newpass123", "newpass123")
	require.NoError(t, err)
	assert.NotEmpty(t, got.Token.Token)

	stored, err := users.GetByID(ctx, s.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)
	assert.NotNil(t, stored.PasswordChangedAt)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "newpass123"))

	_, err = svc.ResetPassword(ctx, raw, "another123", "another123")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetPassword_Rejections(t *testing.T) {
	t.Parallel()
	svc, _, n := newAuth(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, alice())
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "a@x.com", "http://h"))
	raw := resetTokenFrom(t, n.events[0])

	_, err = svc.ResetPassword(ctx, "", "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrResetTokenMissing)

	_, err = svc.ResetPassword(ctx, raw, "newpass123", "newpass321")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = svc.ResetPassword(ctx, strings.Repeat("0", 64), "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)

	_, err = svc.ResetPassword(ctx, raw, "pw123456", "pw123456")
	assert.ErrorIs(t, err, ErrSamePassword)

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err = svc.ResetPassword(ctx, raw, "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrResetTokenInvalid, "expired token")
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAuth(t)
	ctx := context.Background()
	s, err := svc.Signup(ctx, alice())
	require.NoError(t, err)

	_, err = svc.ChangePassword(ctx, s.User.ID, "wrong-pass", "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = svc.ChangePassword(ctx, s.User.ID, "pw123456", "pw123456", "pw123456")
	assert.ErrorIs(t, err, ErrSamePassword)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Second) }
	_, err = svc.ChangePassword(ctx, s.User.ID, "pw123456", "newpass123", "newpass123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "pw123456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, s.Token.Token)
	assert.ErrorIs(t, err, ErrPasswordChanged, "tokens issued before the change are refused")
}
