package model

import (
	"strings"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review mirrors the `reviews` table.  A user may review a naturant once;
// the (user_id, naturant_id) pair is unique.
type Review struct {
	ID         uint64    `json:"id"`
	NaturantID uint64    `json:"naturantId"`
	UserID     uint64    `json:"userId"`
	Content    string    `json:"content"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PrepareReview runs the pre-persist steps for a review row.
func PrepareReview(r *Review, now time.Time) {
	r.Content = strings.TrimSpace(r.Content)
	now = now.UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}
