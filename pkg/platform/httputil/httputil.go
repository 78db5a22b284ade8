package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "warden/pkg/domain-errors"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already sent; an encode failure can only truncate the body.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError maps err onto its HTTP status and wire code. Anything that is
// not a domain error, and CodeInternal itself, becomes a bare 500 so
// internal messages never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code == dErrors.CodeInternal {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: internalError})
		return
	}
	WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
		Error:            DomainCodeToHTTPCode(domainErr.Code),
		ErrorDescription: domainErr.Message,
	})
}

const internalError = "internal_error"

type wireCode struct {
	status int
	name   string
}

var kindStatus = map[dErrors.Kind]int{
	dErrors.KindAuthentication: http.StatusUnauthorized,
	dErrors.KindAuthorization:  http.StatusForbidden,
	dErrors.KindOtpFlow:        http.StatusBadRequest,
	dErrors.KindReference:      http.StatusNotFound,
}

// Codes outside every Kind. A name equal to the code itself is the code
// passed through unchanged.
var plainCodes = map[dErrors.Code]wireCode{
	dErrors.CodeNotFound:           {http.StatusNotFound, "not_found"},
	dErrors.CodeBadRequest:         {http.StatusBadRequest, "bad_request"},
	dErrors.CodeInvalidInput:       {http.StatusBadRequest, "bad_request"},
	dErrors.CodeValidation:         {http.StatusBadRequest, "validation_error"},
	dErrors.CodeInvariantViolation: {http.StatusBadRequest, "validation_error"},
	dErrors.CodeConflict:           {http.StatusConflict, "conflict"},
	dErrors.CodeUnauthorized:       {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeInvalidCredentials: {http.StatusUnauthorized, string(dErrors.CodeInvalidCredentials)},
	dErrors.CodeForbidden:          {http.StatusForbidden, "forbidden"},
	dErrors.CodeUserNotActive:      {http.StatusForbidden, string(dErrors.CodeUserNotActive)},
	dErrors.CodeInvalidResetCode:   {http.StatusBadRequest, string(dErrors.CodeInvalidResetCode)},
	dErrors.CodeTimeout:            {http.StatusGatewayTimeout, "timeout"},
	dErrors.CodeRequestTooLarge:    {http.StatusRequestEntityTooLarge, string(dErrors.CodeRequestTooLarge)},
}

// DomainCodeToHTTPStatus maps kinded codes by family and the rest through
// plainCodes. An ambiguous tenant reference is a client mistake, not a miss.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	if code == dErrors.CodeAmbiguousTenantReference {
		return http.StatusBadRequest
	}
	if status, ok := kindStatus[dErrors.KindOf(code)]; ok {
		return status
	}
	if wc, ok := plainCodes[code]; ok {
		return wc.status
	}
	return http.StatusInternalServerError
}

// DomainCodeToHTTPCode returns the "error" field for code. Kinded codes are
// already stable wire values.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	if dErrors.KindOf(code) != dErrors.KindOther {
		return string(code)
	}
	if wc, ok := plainCodes[code]; ok {
		return wc.name
	}
	return internalError
}
