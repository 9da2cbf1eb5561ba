package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/naturants/internal/apperr"
	"github.com/iliyamo/naturants/internal/cache"
	"github.com/iliyamo/naturants/internal/model"
	"github.com/iliyamo/naturants/internal/query"
	"github.com/iliyamo/naturants/internal/repository"
)

var (
	ErrReviewNotFound  = apperr.NotFound("Review not found")
	ErrReviewNaturant  = apperr.BadRequest("Naturant ID is required for creating a review")
	ErrNotReviewAuthor = apperr.Forbidden("You can only modify your own reviews")
)

type ReviewStore interface {
	List(ctx context.Context, naturantID uint64, p query.Plan) ([]query.Document, error)
	GetByID(ctx context.Context, id uint64) (*model.Review, error)
	Create(ctx context.Context, rv *model.Review) error
	Update(ctx context.Context, rv *model.Review) error
	Delete(ctx context.Context, id uint64) error
}

// RatingStore is the part of the naturant store that reviews touch.
type RatingStore interface {
	Exists(ctx context.Context, id uint64) (bool, error)
	RefreshRatings(ctx context.Context, id uint64) error
}

type ReviewService struct {
	reviews   ReviewStore
	naturants RatingStore
	inv       Invalidator
	ttl       time.Duration
}

func NewReviewService(reviews ReviewStore, naturants RatingStore, inv Invalidator, ttl time.Duration) *ReviewService {
	return &ReviewService{reviews: reviews, naturants: naturants, inv: inv, ttl: ttl}
}

// List returns reviews, optionally of one naturant.  Unshaped lists (the
// default plan) are cached per naturant and for all reviews; shaped lists
// always go to the database.
func (s *ReviewService) List(ctx context.Context, naturantID uint64, p query.Plan, shaped bool) ([]query.Document, error) {
	if shaped {
		return s.reviews.List(ctx, naturantID, p)
	}
	key := cache.ReviewsAllKey
	if naturantID != 0 {
		key = cache.ReviewsKey(naturantID)
	}
	var docs []query.Document
	hit, err := cache.GetJSON(ctx, s.inv.Cache, key, &docs)
	if err != nil {
		s.inv.Log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return docs, nil
	}
	docs, err = s.reviews.List(ctx, naturantID, p)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.inv.Cache, key, docs, s.ttl); err != nil {
		s.inv.Log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return docs, nil
}

func (s *ReviewService) Get(ctx context.Context, id uint64) (*model.Review, error) {
	rv, err := s.reviews.GetByID(ctx, id)
	return rv, reviewErr(err)
}

// ReviewInput is the body of a review create request.  NaturantID may also
// come from the route.
type ReviewInput struct {
	NaturantID uint64 `json:"naturantId"`
	Content    string `json:"content" validate:"required"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
}

// Create stores a review by author and refreshes the naturant's ratings.
func (s *ReviewService) Create(ctx context.Context, author model.Identity, in ReviewInput) (*model.Review, error) {
	if in.NaturantID == 0 {
		return nil, ErrReviewNaturant
	}
	ok, err := s.naturants.Exists(ctx, in.NaturantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNaturantNotFound
	}
	rv := &model.Review{NaturantID: in.NaturantID, UserID: author.ID, Content: in.Content, Rating: in.Rating}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}
	if err := s.afterWrite(ctx, rv.NaturantID); err != nil {
		return nil, err
	}
	return rv, nil
}

type ReviewPatch struct {
	Content *string `json:"content" validate:"omitempty,min=1"`
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

// Update changes a review.  Only its author or an admin may do so.
func (s *ReviewService) Update(ctx context.Context, editor model.Identity, id uint64, p ReviewPatch) (*model.Review, error) {
	rv, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, reviewErr(err)
	}
	if editor.Role != model.RoleAdmin && rv.UserID != editor.ID {
		return nil, ErrNotReviewAuthor
	}
	if p.Content != nil {
		rv.Content = *p.Content
	}
	if p.Rating != nil {
		rv.Rating = *p.Rating
	}
	if err := s.reviews.Update(ctx, rv); err != nil {
		return nil, reviewErr(err)
	}
	if err := s.afterWrite(ctx, rv.NaturantID); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *ReviewService) Delete(ctx context.Context, id uint64) error {
	rv, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return reviewErr(err)
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return reviewErr(err)
	}
	return s.afterWrite(ctx, rv.NaturantID)
}

// afterWrite recomputes the naturant's rating aggregates and drops every
// cached list that could include the review.
func (s *ReviewService) afterWrite(ctx context.Context, naturantID uint64) error {
	err := s.naturants.RefreshRatings(ctx, naturantID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	s.inv.naturantsChanged(ctx, cache.ReviewsAllKey, cache.ReviewsKey(naturantID))
	return nil
}

func reviewErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrReviewNotFound
	}
	return err
}
