package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/naturants/internal/cache"
	"github.com/iliyamo/naturants/internal/model"
	"github.com/iliyamo/naturants/internal/query"
	"github.com/iliyamo/naturants/internal/repository"
)

// UserRecords is the user persistence behind profile and admin endpoints.
type UserRecords interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	Update(ctx context.Context, id uint64, p repository.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, p query.Plan) ([]query.Document, error)
}

// ReviewAuthors answers which naturants a user has reviewed.
type ReviewAuthors interface {
	NaturantsReviewedBy(ctx context.Context, userID uint64) ([]uint64, error)
}

// UserService manages stored accounts.  Deleting an account also removes
// its reviews, so the affected naturants' ratings and caches follow.
type UserService struct {
	users     UserRecords
	reviews   ReviewAuthors
	naturants RatingStore
	inv       Invalidator
}

func NewUserService(users UserRecords, reviews ReviewAuthors, naturants RatingStore, inv Invalidator) *UserService {
	return &UserService{users: users, reviews: reviews, naturants: naturants, inv: inv}
}

func (s *UserService) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, id uint64, p repository.UserPatch) (*model.User, error) {
	return s.users.Update(ctx, id, p)
}

func (s *UserService) List(ctx context.Context, p query.Plan) ([]query.Document, error) {
	return s.users.List(ctx, p)
}

// Delete removes a user.  Their reviews go with them (ON DELETE CASCADE),
// so every naturant they reviewed gets its ratings recomputed.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	reviewed, err := s.reviews.NaturantsReviewedBy(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	if len(reviewed) == 0 {
		return nil
	}

	keys := []string{cache.ReviewsAllKey}
	for _, nid := range reviewed {
		if err := s.naturants.RefreshRatings(ctx, nid); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.inv.Log.Error("refresh ratings after user delete",
				zap.Uint64("user_id", id), zap.Uint64("naturant_id", nid), zap.Error(err))
		}
		keys = append(keys, cache.ReviewsKey(nid))
	}
	s.inv.naturantsChanged(ctx, keys...)
	return nil
}
