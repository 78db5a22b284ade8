package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeRequestTooLarge    Code = "request_too_large"

	CodeInvalidCredentials Code = "invalid_credentials"
	CodeUserNotActive      Code = "user_not_active"
	CodeInvalidResetCode   Code = "invalid_reset_code"
)

// Authentication failures.
const (
	CodeUserNotAuthenticated  Code = "user_not_authenticated"
	CodeSessionNotFound       Code = "session_not_found"
	CodeSessionExpired        Code = "session_expired"
	CodeOtpVerificationNeeded Code = "otp_verification_needed"
)

// Authorization failures.
const (
	CodeUserDoesNotHaveRequiredRole Code = "user_does_not_have_required_role"
	CodeTenantUserNotFound          Code = "tenant_user_not_found"
	CodeTenantUserNotActive         Code = "tenant_user_not_active"
	CodeTenantNotActive             Code = "tenant_not_active"
	CodeTenantUserSessionMismatch   Code = "tenant_user_session_mismatch"
)

// OTP flow failures.
const (
	CodeOtpNotNeeded         Code = "otp_not_needed"
	CodeOtpExpired           Code = "otp_expired"
	CodeInvalidOtp           Code = "invalid_otp"
	CodeOtpAlreadyEnabled    Code = "otp_already_enabled"
	CodeOtpAlreadyDisabled   Code = "otp_already_disabled"
	CodeUserHasNoPhoneNumber Code = "user_has_no_phone_number"
	CodeUserHasNoEmail       Code = "user_has_no_email"
)

// Reference failures.
const (
	CodeTenantNotFound           Code = "tenant_not_found"
	CodeAmbiguousTenantReference Code = "ambiguous_tenant_reference"
	CodeUserNotFound             Code = "user_not_found"
)

// Kind groups codes into the families the request layer reacts to.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindOtpFlow        Kind = "otp_flow"
	KindReference      Kind = "reference"
	KindOther          Kind = "other"
)

var codeKinds = map[Code]Kind{
	CodeUserNotAuthenticated:  KindAuthentication,
	CodeSessionNotFound:       KindAuthentication,
	CodeSessionExpired:        KindAuthentication,
	CodeOtpVerificationNeeded: KindAuthentication,

	CodeUserDoesNotHaveRequiredRole: KindAuthorization,
	CodeTenantUserNotFound:          KindAuthorization,
	CodeTenantUserNotActive:         KindAuthorization,
	CodeTenantNotActive:             KindAuthorization,
	CodeTenantUserSessionMismatch:   KindAuthorization,

	CodeOtpNotNeeded:         KindOtpFlow,
	CodeOtpExpired:           KindOtpFlow,
	CodeInvalidOtp:           KindOtpFlow,
	CodeOtpAlreadyEnabled:    KindOtpFlow,
	CodeOtpAlreadyDisabled:   KindOtpFlow,
	CodeUserHasNoPhoneNumber: KindOtpFlow,
	CodeUserHasNoEmail:       KindOtpFlow,

	CodeTenantNotFound:           KindReference,
	CodeAmbiguousTenantReference: KindReference,
	CodeUserNotFound:             KindReference,
}

// KindOf reports the family a code belongs to.
func KindOf(code Code) Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindOther
}

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal for non-domain errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
