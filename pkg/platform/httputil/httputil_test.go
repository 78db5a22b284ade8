package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "warden/pkg/domain-errors"
)

func TestWriteErrorStatusByKind(t *testing.T) {
	tests := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeUserNotAuthenticated, http.StatusUnauthorized},
		{dErrors.CodeSessionNotFound, http.StatusUnauthorized},
		{dErrors.CodeSessionExpired, http.StatusUnauthorized},
		{dErrors.CodeOtpVerificationNeeded, http.StatusUnauthorized},
		{dErrors.CodeUserDoesNotHaveRequiredRole, http.StatusForbidden},
		{dErrors.CodeTenantUserNotFound, http.StatusForbidden},
		{dErrors.CodeTenantUserNotActive, http.StatusForbidden},
		{dErrors.CodeTenantNotActive, http.StatusForbidden},
		{dErrors.CodeTenantUserSessionMismatch, http.StatusForbidden},
		{dErrors.CodeOtpNotNeeded, http.StatusBadRequest},
		{dErrors.CodeOtpExpired, http.StatusBadRequest},
		{dErrors.CodeInvalidOtp, http.StatusBadRequest},
		{dErrors.CodeOtpAlreadyEnabled, http.StatusBadRequest},
		{dErrors.CodeUserHasNoPhoneNumber, http.StatusBadRequest},
		{dErrors.CodeTenantNotFound, http.StatusNotFound},
		{dErrors.CodeUserNotFound, http.StatusNotFound},
		{dErrors.CodeAmbiguousTenantReference, http.StatusBadRequest},
		{dErrors.CodeBadRequest, http.StatusBadRequest},
		{dErrors.CodeConflict, http.StatusConflict},
		{dErrors.CodeInvalidCredentials, http.StatusUnauthorized},
		{dErrors.CodeUserNotActive, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(tt.code, "boom"))

			assert.Equal(t, tt.status, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "boom", body.ErrorDescription)
		})
	}
}

func TestWriteErrorBody(t *testing.T) {
	t.Run("Given a kinded code Then the code is the wire value", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeSessionExpired, "session expired"))

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "session_expired", body.Error)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})

	t.Run("Given a wrapped domain error Then the code survives", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := dErrors.Wrap(dErrors.New(dErrors.CodeTenantNotFound, "tenant not found"), dErrors.CodeInternal, "lookup failed")
		WriteError(w, err)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Given an internal error Then the message is hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "db down"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "internal_error", body.Error)
		assert.Empty(t, body.ErrorDescription)
	})

	t.Run("Given a plain error Then 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("unexpected"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
