package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/signal-miniapp/internal/errors"
)

func TestMapServiceError_HidesBackendText(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "response",
			err:        apperrors.NewResponseError(http.MethodGet, "balance/1", http.StatusInternalServerError, []byte(`{"detail":"db password wrong"}`), "db password wrong"),
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeBackendError,
		},
		{
			name:       "business",
			err:        apperrors.NewBusinessFailure("join_signal", "db password wrong", apperrors.BusinessDetails{}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "BUSINESS_FAILURE",
		},
		{
			name:       "transport",
			err:        apperrors.NewTransportError(http.MethodGet, "balance/1", fmt.Errorf("db password wrong")),
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeBackendUnavailable,
		},
		{
			name:       "session expired upstream",
			err:        apperrors.NewResponseError(http.MethodGet, "user/1", http.StatusForbidden, nil, "db password wrong"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := mapServiceError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
			assert.NotContains(t, message, "db password")
			assert.NotEmpty(t, message)
		})
	}
}
