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

// TopNaturants is the size of the top-rated list.
const TopNaturants = 5

var ErrNaturantNotFound = apperr.NotFound("Naturant not found")

type NaturantStore interface {
	List(ctx context.Context, p query.Plan) ([]query.Document, error)
	Top(ctx context.Context, n int) ([]model.Naturant, error)
	GetByID(ctx context.Context, id uint64) (*model.Naturant, error)
	Exists(ctx context.Context, id uint64) (bool, error)
	Create(ctx context.Context, n *model.Naturant) error
	Update(ctx context.Context, n *model.Naturant) error
	Delete(ctx context.Context, id uint64) error
	RefreshRatings(ctx context.Context, id uint64) error
}

// Invalidator drops cached data derived from naturant rows.
type Invalidator struct {
	Cache        cache.Store
	ResponseKeys string // glob over cached list responses, empty for none
	Log          *zap.Logger
}

func (i Invalidator) naturantsChanged(ctx context.Context, extra ...string) {
	keys := append([]string{cache.TopNaturantsKey}, extra...)
	if err := i.Cache.Delete(ctx, keys...); err != nil {
		i.Log.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
	if i.ResponseKeys == "" {
		return
	}
	if err := i.Cache.DeleteMatch(ctx, i.ResponseKeys); err != nil {
		i.Log.Warn("cache invalidation failed", zap.String("pattern", i.ResponseKeys), zap.Error(err))
	}
}

type NaturantService struct {
	store NaturantStore
	inv   Invalidator
	ttl   time.Duration
}

func NewNaturantService(store NaturantStore, inv Invalidator, ttl time.Duration) *NaturantService {
	return &NaturantService{store: store, inv: inv, ttl: ttl}
}

func (s *NaturantService) List(ctx context.Context, p query.Plan) ([]query.Document, error) {
	return s.store.List(ctx, p)
}

// Top returns the best-rated naturants, served from cache when possible.
func (s *NaturantService) Top(ctx context.Context) ([]model.Naturant, error) {
	var top []model.Naturant
	hit, err := cache.GetJSON(ctx, s.inv.Cache, cache.TopNaturantsKey, &top)
	if err != nil {
		s.inv.Log.Warn("cache read failed", zap.String("key", cache.TopNaturantsKey), zap.Error(err))
	}
	if hit {
		return top, nil
	}
	top, err = s.store.Top(ctx, TopNaturants)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.inv.Cache, cache.TopNaturantsKey, top, s.ttl); err != nil {
		s.inv.Log.Warn("cache write failed", zap.String("key", cache.TopNaturantsKey), zap.Error(err))
	}
	return top, nil
}

func (s *NaturantService) Get(ctx context.Context, id uint64) (*model.Naturant, error) {
	n, err := s.store.GetByID(ctx, id)
	return n, naturantErr(err)
}

// NaturantInput is the full writable representation of a naturant.
type NaturantInput struct {
	Name      string           `json:"restaurantName" validate:"required"`
	Address   string           `json:"address" validate:"required"`
	Phone     string           `json:"phone" validate:"required"`
	MenuItems []model.MenuItem `json:"menuItems" validate:"dive"`
	Employees []model.Employee `json:"employees" validate:"dive"`
	Orders    []model.Order    `json:"orders" validate:"dive"`
	Customers []model.Customer `json:"customers" validate:"dive"`
}

func (in NaturantInput) apply(n *model.Naturant) {
	n.Name, n.Address, n.Phone = in.Name, in.Address, in.Phone
	n.MenuItems, n.Employees, n.Orders, n.Customers = in.MenuItems, in.Employees, in.Orders, in.Customers
}

// NaturantPatch changes only the fields that are present.
type NaturantPatch struct {
	Name      *string           `json:"restaurantName" validate:"omitempty,min=1"`
	Address   *string           `json:"address" validate:"omitempty,min=1"`
	Phone     *string           `json:"phone" validate:"omitempty,min=1"`
	MenuItems *[]model.MenuItem `json:"menuItems" validate:"omitempty,dive"`
	Employees *[]model.Employee `json:"employees" validate:"omitempty,dive"`
	Orders    *[]model.Order    `json:"orders" validate:"omitempty,dive"`
	Customers *[]model.Customer `json:"customers" validate:"omitempty,dive"`
}

func (p NaturantPatch) apply(n *model.Naturant) {
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Address != nil {
		n.Address = *p.Address
	}
	if p.Phone != nil {
		n.Phone = *p.Phone
	}
	if p.MenuItems != nil {
		n.MenuItems = *p.MenuItems
	}
	if p.Employees != nil {
		n.Employees = *p.Employees
	}
	if p.Orders != nil {
		n.Orders = *p.Orders
	}
	if p.Customers != nil {
		n.Customers = *p.Customers
	}
}

func (s *NaturantService) Create(ctx context.Context, in NaturantInput) (*model.Naturant, error) {
	n := &model.Naturant{}
	in.apply(n)
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}
	s.inv.naturantsChanged(ctx)
	return n, nil
}

// Replace overwrites every writable field of the naturant.
func (s *NaturantService) Replace(ctx context.Context, id uint64, in NaturantInput) (*model.Naturant, error) {
	return s.modify(ctx, id, in.apply)
}

// Patch changes the fields present in p and leaves the rest untouched.
func (s *NaturantService) Patch(ctx context.Context, id uint64, p NaturantPatch) (*model.Naturant, error) {
	return s.modify(ctx, id, p.apply)
}

func (s *NaturantService) modify(ctx context.Context, id uint64, apply func(*model.Naturant)) (*model.Naturant, error) {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, naturantErr(err)
	}
	apply(n)
	if err := s.store.Update(ctx, n); err != nil {
		return nil, naturantErr(err)
	}
	s.inv.naturantsChanged(ctx)
	return n, nil
}

// Delete removes the naturant; its reviews go with it.
func (s *NaturantService) Delete(ctx context.Context, id uint64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return naturantErr(err)
	}
	s.inv.naturantsChanged(ctx, cache.ReviewsAllKey, cache.ReviewsKey(id))
	return nil
}

func naturantErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNaturantNotFound
	}
	return err
}
