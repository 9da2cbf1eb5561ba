// Package cache stores disposable copies of read results.  Entries are hints:
// a miss or a backend failure always falls through to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// ErrMiss is returned by Get when the key holds no value.
var ErrMiss = errors.New("cache: miss")

// Store is a key/value cache with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteMatch removes every key matching a glob pattern.
	DeleteMatch(ctx context.Context, pattern string) error
}

const (
	ReviewsAllKey   = "reviews:all"
	TopNaturantsKey = "naturants:top"
)

// ReviewsKey is the key of one naturant's review list.
func ReviewsKey(naturantID uint64) string {
	return "reviews:" + strconv.FormatUint(naturantID, 10)
}

// GetJSON decodes the value at key into dst.  It reports false on a miss.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	bs, err := s.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(bs, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, bs, ttl)
}

// Noop never holds anything.  It stands in when Redis is unavailable.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error)              { return nil, ErrMiss }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error                  { return nil }
func (Noop) DeleteMatch(context.Context, string) error                { return nil }
