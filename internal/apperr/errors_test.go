package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "validation", err: Validation("invalid_name", "bad name"), want: KindValidation},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", NotFound("group_not_found", "missing")), want: KindNotFound},
		{name: "rate limited", err: RateLimited("post-message", time.Minute), want: KindRateLimited},
		{name: "foreign error", err: errors.New("boom"), want: KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorsIsMatchesKindAndCode(t *testing.T) {
	sentinel := Precondition("last_admin", "last admin")
	err := fmt.Errorf("leave: %w", Precondition("last_admin", "cannot leave"))

	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, Precondition("other", "")))
	assert.True(t, errors.Is(err, &Error{Kind: KindPrecondition}))
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable(cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindUnavailable, e.Kind)
}

func TestContentRejectedCarriesReason(t *testing.T) {
	e, ok := As(ContentRejected("excessive_caps"))
	require.True(t, ok)
	assert.Equal(t, "excessive_caps", e.Reason)
	assert.True(t, Is(e, KindContentRejected))
}
