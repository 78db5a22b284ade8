package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "warden/pkg/domain-errors"
)

// Request bodies may implement any of these hooks; PrepareRequest runs
// them in declaration order.
type (
	Sanitizable  interface{ Sanitize() }
	Normalizable interface{ Normalize() }
	Validatable  interface{ Validate() error }
)

// DecodeJSON reads the body into a fresh T. When it returns false the
// error response has already been written.
//
//	req, ok := httputil.DecodeJSON[models.LoginRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	err := json.NewDecoder(r.Body).Decode(req)
	if err == nil {
		return req, true
	}
	logger.WarnContext(ctx, "failed to decode request body", "error", err, "request_id", requestID)
	WriteError(w, classifyDecode(err))
	return nil, false
}

func classifyDecode(err error) error {
	if tooLarge := (*http.MaxBytesError)(nil); errors.As(err, &tooLarge) {
		return dErrors.New(dErrors.CodeRequestTooLarge, "request body too large")
	}
	if errors.Is(err, io.EOF) {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
}

func PrepareRequest(req any) error {
	if h, ok := req.(Sanitizable); ok {
		h.Sanitize()
	}
	if h, ok := req.(Normalizable); ok {
		h.Normalize()
	}
	h, ok := req.(Validatable)
	if !ok {
		return nil
	}
	return h.Validate()
}

// DecodeAndPrepare decodes then prepares. A Validate error that is not a
// domain error is reported as validation_error.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger, ctx, requestID)
	if !ok {
		return nil, false
	}
	err := PrepareRequest(req)
	if err == nil {
		return req, true
	}
	logger.WarnContext(ctx, "invalid request", "error", err, "request_id", requestID)
	if domainErr := (*dErrors.Error)(nil); !errors.As(err, &domainErr) {
		err = dErrors.New(dErrors.CodeValidation, err.Error())
	}
	WriteError(w, err)
	return nil, false
}
