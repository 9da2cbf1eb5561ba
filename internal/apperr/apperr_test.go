package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom(t *testing.T) {
	t.Parallel()

	notFound := NotFound("Review not found")

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		operational bool
	}{
		{
			name:        "operational error passes through",
			err:         notFound,
			wantStatus:  http.StatusNotFound,
			wantMessage: "Review not found",
			operational: true,
		},
		{
			name:        "wrapped operational error is unwrapped",
			err:         fmt.Errorf("load review: %w", notFound),
			wantStatus:  http.StatusNotFound,
			wantMessage: "Review not found",
			operational: true,
		},
		{
			name:        "plain error becomes internal",
			err:         errors.New("connection reset"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal Server Error",
			operational: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := From(tt.err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, tt.operational, got.Operational)
		})
	}
}

func TestInternal_RecordsStack(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: refused")
	err := Internal(cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial tcp: refused")
	assert.NotEmpty(t, Stack(err))
	assert.Empty(t, Stack(BadRequest("nope")))
}
