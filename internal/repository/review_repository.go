package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/naturants/internal/model"
	"github.com/iliyamo/naturants/internal/query"
)

var ReviewSchema = query.NewSchema("reviews",
	query.Column{Field: "id", Name: "id", Kind: query.Int},
	query.Column{Field: "naturantId", Name: "naturant_id", Kind: query.Int},
	query.Column{Field: "userId", Name: "user_id", Kind: query.Int},
	query.Column{Field: "content", Name: "content", Kind: query.String},
	query.Column{Field: "rating", Name: "rating", Kind: query.Int},
	query.Column{Field: "createdAt", Name: "created_at", Kind: query.Time},
	query.Column{Field: "updatedAt", Name: "updated_at", Kind: query.Time},
)

const reviewColumns = "id, naturant_id, user_id, content, rating, created_at, updated_at"

type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

func scanReview(s rowScanner) (*model.Review, error) {
	var rv model.Review
	if err := s.Scan(&rv.ID, &rv.NaturantID, &rv.UserID, &rv.Content, &rv.Rating, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &rv, nil
}

// List runs a shaped list query over reviews.  A non-zero naturantID
// restricts the result to that naturant.
func (r *ReviewRepo) List(ctx context.Context, naturantID uint64, p query.Plan) ([]query.Document, error) {
	var scope []query.Cond
	if naturantID != 0 {
		scope = append(scope, query.Cond{Column: "naturant_id", Value: naturantID})
	}
	return list(ctx, r.DB, ReviewSchema, p, scope...)
}

// GetByID fetches a review by id.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (*model.Review, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = ? LIMIT 1", id)
	return scanReview(row)
}

// Create inserts a review.  A second review by the same user for the same
// naturant fails with a *DuplicateError from the unique index.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	model.PrepareReview(rv, time.Now())
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (naturant_id, user_id, content, rating, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		rv.NaturantID, rv.UserID, rv.Content, rv.Rating, rv.CreatedAt, rv.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// Update writes the review's content and rating.
func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	model.PrepareReview(rv, time.Now())
	return affected(r.DB.ExecContext(ctx,
		"UPDATE reviews SET content = ?, rating = ?, updated_at = ? WHERE id = ?",
		rv.Content, rv.Rating, rv.UpdatedAt, rv.ID))
}

// NaturantsReviewedBy lists the naturants a user has reviewed.
func (r *ReviewRepo) NaturantsReviewedBy(ctx context.Context, userID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT DISTINCT naturant_id FROM reviews WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a review.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id))
}
