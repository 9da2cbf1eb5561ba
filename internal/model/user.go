package model

import (
	"strings"
	"time"
)

// Role is the access role stored on a user record.  The set of roles is
// closed; anything outside of it is rejected before persistence.
type Role string

const (
	RoleUser     Role = "user"
	RoleWaiter   Role = "waiter"
	RoleCustomer Role = "customer"
	RoleChef     Role = "chef"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Roles lists every valid role in declaration order.
var Roles = []Role{RoleUser, RoleWaiter, RoleCustomer, RoleChef, RoleManager, RoleAdmin}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// Privileged reports whether the role may only be granted by an admin.
func (r Role) Privileged() bool {
	return r == RoleManager || r == RoleAdmin
}

// ParseRole normalizes s and returns the matching role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// User mirrors the `users` table.  Secrets (password hash, reset token hash)
// carry json:"-" so a User can be written to a response as-is.
type User struct {
	ID                   uint64     `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	PasswordHash         string     `json:"-"`
	Role                 Role       `json:"role"`
	Photo                *string    `json:"photo,omitempty"`
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// ChangedPasswordAfter reports whether the password was changed after t.
// Tokens issued before a password change are no longer honoured.
func (u *User) ChangedPasswordAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Truncate(time.Second).After(t)
}

// Identity returns the request-scoped view of the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// Identity is the authenticated principal attached to a request once the
// bearer token has been verified and the user re-loaded from the store.
type Identity struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PrepareUser runs the pre-persist steps for a user row: email
// normalization, role defaulting and timestamps.
func PrepareUser(u *User, now time.Time) {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleUser
	}
	now = now.UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}
