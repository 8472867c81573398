package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api/httpx"
	"github.com/planmoni/planmoni-backend/internal/services"
)

func TestServiceError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: amount must be positive", services.ErrValidation), http.StatusBadRequest, "validation_error"},
		{services.ErrInsufficientFunds, http.StatusBadRequest, "insufficient_funds"},
		{services.ErrPlanNotWithdrawable, http.StatusBadRequest, "withdrawal_disabled"},
		{fmt.Errorf("plan cancelled: %w", services.ErrInvalidPlanState), http.StatusBadRequest, "invalid_plan_state"},
		{services.ErrCardDeclined, http.StatusBadRequest, "card_declined"},
		{services.ErrNotFound, http.StatusNotFound, "not_found"},
		{services.ErrInFlight, http.StatusConflict, "in_flight"},
		{fmt.Errorf("%w: timeout", services.ErrUpstream), http.StatusBadGateway, "upstream_error"},
		{errors.New("pq: connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			serviceError(rec, zap.NewNop(), tc.err)
			assert.Equal(t, tc.status, rec.Code)

			var body httpx.APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.NotContains(t, body.Error, "pq:")
		})
	}
}
