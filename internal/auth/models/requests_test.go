package models

import (
	"strings"
	"testing"

	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequest_Validate(t *testing.T) {
	validRequest := func() *RegisterRequest {
		return &RegisterRequest{
			Email:    "  Alice@Example.com ",
			Password: "correct-horse",
			Phone:    "+15551234567",
		}
	}

	t.Run("valid request passes validation after normalize", func(t *testing.T) {
		req := validRequest()
		req.Normalize()
		assert.Equal(t, "alice@example.com", req.Email)
		assert.NoError(t, req.Validate())
	})

	t.Run("short password rejected", func(t *testing.T) {
		req := validRequest()
		req.Password = "short"
		req.Normalize()
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "password must be at least")
	})

	t.Run("password over bcrypt limit rejected", func(t *testing.T) {
		req := validRequest()
		req.Password = strings.Repeat("a", validation.MaxPasswordLength+1)
		req.Normalize()
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password exceeds max length")
	})

	t.Run("non E.164 phone rejected", func(t *testing.T) {
		req := validRequest()
		req.Phone = "555-1234"
		req.Normalize()
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "phone must be an E.164 phone number")
	})

	t.Run("email exceeds max length rejected", func(t *testing.T) {
		req := validRequest()
		req.Email = strings.Repeat("a", validation.MaxEmailLength+1) + "@example.com"
		req.Normalize()
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email exceeds max length")
	})
}

func TestLoginRequest_Validate(t *testing.T) {
	t.Run("missing password rejected", func(t *testing.T) {
		req := &LoginRequest{Email: "bob@example.com"}
		req.Normalize()
		err := req.Validate()
		require.Error(t, err)
		assert.Equal(t, "password is required", err.Error())
	})

	t.Run("email is lower-cased", func(t *testing.T) {
		req := &LoginRequest{Email: "BOB@EXAMPLE.COM", Password: "x", OTP: true}
		req.Normalize()
		require.NoError(t, req.Validate())
		assert.Equal(t, "bob@example.com", req.Email)
		assert.True(t, req.OTP)
	})
}

func TestSendOTPRequest_Validate(t *testing.T) {
	t.Run("method is case-insensitive", func(t *testing.T) {
		req := &SendOTPRequest{Method: " EMAIL "}
		req.Normalize()
		require.NoError(t, req.Validate())
		assert.Equal(t, DeliveryEmail, req.Method)
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		req := &SendOTPRequest{Method: "pigeon"}
		req.Normalize()
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "method must be one of")
	})
}

func TestVerifyOTPRequest_Validate(t *testing.T) {
	for _, code := range []string{"", "12345", "1234567", "abcdef"} {
		t.Run("rejects "+code, func(t *testing.T) {
			req := &VerifyOTPRequest{Code: code}
			req.Normalize()
			assert.Error(t, req.Validate())
		})
	}

	t.Run("accepts six digits", func(t *testing.T) {
		req := &VerifyOTPRequest{Code: " 123456 "}
		req.Normalize()
		assert.NoError(t, req.Validate())
	})
}

func TestOTPChangeRequest_Validate(t *testing.T) {
	t.Run("enabled must be present", func(t *testing.T) {
		err := (&OTPChangeRequest{}).Validate()
		require.Error(t, err)
		assert.Equal(t, "enabled is required", err.Error())
	})

	t.Run("false is an explicit value", func(t *testing.T) {
		disabled := false
		assert.NoError(t, (&OTPChangeRequest{Enabled: &disabled}).Validate())
	})
}

func TestExternalCallbackRequest_Identity(t *testing.T) {
	req := &ExternalCallbackRequest{
		Provider: " Google ",
		Subject:  " 1234 ",
		Email:    "Carol@Example.com",
		Name:     " Carol ",
	}
	req.Normalize()
	require.NoError(t, req.Validate())

	identity := req.Identity()
	assert.Equal(t, ExternalIdentity{
		Email:    "carol@example.com",
		Name:     "Carol",
		Subject:  "1234",
		Provider: "google",
	}, identity)
}
