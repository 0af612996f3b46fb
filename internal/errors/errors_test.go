package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize_WrappedError(t *testing.T) {
	base := NewBusinessFailure("join_signal", "insufficient balance", BusinessDetails{})
	wrapped := fmt.Errorf("join signal 7: %w", base)

	cat := Categorize(wrapped)
	require.NotNil(t, cat)
	assert.Same(t, base, cat)
	assert.True(t, IsBusiness(wrapped))
	assert.False(t, IsTransport(wrapped))
}

func TestCategorize_PlainError(t *testing.T) {
	cat := Categorize(fmt.Errorf("boom"))
	assert.Equal(t, CategorySystem, cat.Category)
	assert.Equal(t, http.StatusInternalServerError, cat.StatusCode)
	assert.Nil(t, Categorize(nil))
	assert.Equal(t, ErrorCategory(""), CategoryOf(nil))
}

func TestNewBusinessFailure_Details(t *testing.T) {
	required := 150.0
	current := 20.5
	err := NewBusinessFailure("enable_automod", "not enough", BusinessDetails{
		RequiredAmount: &required,
		CurrentBalance: &current,
	})

	assert.Equal(t, 150.0, err.Detail("required_amount"))
	assert.Equal(t, 20.5, err.Detail("current_balance"))
	assert.Equal(t, "enable_automod", err.Detail("operation"))
	assert.Nil(t, err.Detail("missing"))
}

func TestNewResponseError_DefaultMessage(t *testing.T) {
	err := NewResponseError(http.MethodPost, "transfer_to_main/1", http.StatusBadRequest, []byte(`{}`), "")
	assert.Equal(t, "Bad Request", err.Message)
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatusCode(err))
	assert.True(t, IsResponse(err))
	assert.True(t, IsUserError(err))
}

func TestNewTransportError_Unwraps(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewTransportError(http.MethodGet, "balance/1", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, IsUserError(err))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewInvalidParameterError("amount", "must be positive"), IsValidation},
		{"unauthorized", NewUnauthorizedError("no session"), IsUnauthorized},
		{"transport", NewTransportError("GET", "x", nil), IsTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(nil))
		})
	}
}
