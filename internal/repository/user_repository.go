package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/naturants/internal/model"
	"github.com/iliyamo/naturants/internal/query"
)

// UserSchema lists the user fields a list query may filter, sort or
// project on.  Secret columns are deliberately absent.
var UserSchema = query.NewSchema("users",
	query.Column{Field: "id", Name: "id", Kind: query.Int},
	query.Column{Field: "username", Name: "username", Kind: query.String},
	query.Column{Field: "email", Name: "email", Kind: query.String},
	query.Column{Field: "role", Name: "role", Kind: query.String},
	query.Column{Field: "photo", Name: "photo", Kind: query.String},
	query.Column{Field: "createdAt", Name: "created_at", Kind: query.Time},
	query.Column{Field: "updatedAt", Name: "updated_at", Kind: query.Time},
)

const userColumns = "id, username, email, password_hash, role, photo, password_reset_token, " +
	"password_reset_expires, password_changed_at, created_at, updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u                       model.User
		role                    string
		photo, resetToken       sql.NullString
		resetExpires, changedAt sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &photo, &resetToken,
		&resetExpires, &changedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	u.Role = model.Role(role)
	if photo.Valid {
		u.Photo = &photo.String
	}
	if resetToken.Valid {
		u.PasswordResetToken = &resetToken.String
	}
	if resetExpires.Valid {
		t := resetExpires.Time.UTC()
		u.PasswordResetExpires = &t
	}
	if changedAt.Valid {
		t := changedAt.Time.UTC()
		u.PasswordChangedAt = &t
	}
	return &u, nil
}

// Create runs the user pre-persist step, inserts the row and sets u.ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	model.PrepareUser(u, time.Now())
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role, photo, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		u.Username, u.Email, u.PasswordHash, string(u.Role), u.Photo, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, args ...any) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", args...)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "username = ?", strings.TrimSpace(username))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email = ?", model.NormalizeEmail(email))
}

// GetByResetToken fetches the user holding an unexpired reset token hash.
func (r *UserRepo) GetByResetToken(ctx context.Context, hash string, now time.Time) (*model.User, error) {
	return r.getOne(ctx, "password_reset_token = ? AND password_reset_expires > ?", hash, now.UTC())
}

// SetResetToken stores a reset token hash and its expiry.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, hash string, exp time.Time) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token = ?, password_reset_expires = ? WHERE id = ?",
		hash, exp.UTC(), id))
}

// ClearResetToken drops any pending reset token.
func (r *UserRepo) ClearResetToken(ctx context.Context, id uint64) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL WHERE id = ?", id))
}

// ConsumeResetToken sets a new password hash and clears the reset fields in
// one statement.  The update only matches while the presented token hash is
// still stored and unexpired, so of two concurrent consumers only one
// succeeds; the other gets ErrNotFound.
func (r *UserRepo) ConsumeResetToken(ctx context.Context, id uint64, tokenHash, passwordHash string, now time.Time) error {
	now = now.UTC()
	return affected(r.DB.ExecContext(ctx,
		`UPDATE users
		    SET password_hash = ?, password_reset_token = NULL, password_reset_expires = NULL,
		        password_changed_at = ?, updated_at = ?
		  WHERE id = ? AND password_reset_token = ? AND password_reset_expires > ?`,
		passwordHash, now, now, id, tokenHash, now))
}

// UpdatePassword stores a new password hash and records the change time.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string, now time.Time) error {
	now = now.UTC()
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, password_changed_at = ?, updated_at = ? WHERE id = ?",
		passwordHash, now, now, id))
}

// UserPatch carries the profile fields an update may change.  Nil fields
// are left untouched.
type UserPatch struct {
	Username   *string
	Email      *string
	Role       *model.Role
	Photo      *string
	ClearPhoto bool // sets photo to NULL when Photo is nil
}

// Update applies p and returns the stored user.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UserPatch) (*model.User, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if p.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, strings.TrimSpace(*p.Username))
	}
	if p.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, model.NormalizeEmail(*p.Email))
	}
	if p.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, string(*p.Role))
	}
	switch {
	case p.Photo != nil:
		sets = append(sets, "photo = ?")
		args = append(args, *p.Photo)
	case p.ClearPhoto:
		sets = append(sets, "photo = NULL")
	}
	args = append(args, id)
	if err := affected(r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes the user row.  Their reviews go with it through the
// foreign key.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id))
}

// List runs a shaped list query over users.
func (r *UserRepo) List(ctx context.Context, p query.Plan) ([]query.Document, error) {
	return list(ctx, r.DB, UserSchema, p)
}

func list(ctx context.Context, db *sql.DB, s *query.Schema, p query.Plan, scope ...query.Cond) ([]query.Document, error) {
	st := s.Build(p, scope...)
	rows, err := db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return query.ScanDocuments(rows, st.Columns)
}
