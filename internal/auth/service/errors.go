package service

import (
	"errors"

	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/sentinel"
)

// storeErrorMapping defines how a sentinel error maps to a domain error.
type storeErrorMapping struct {
	sentinel error
	code     dErrors.Code
	message  string
}

// First match wins. Not-found is entity specific and handled by the caller.
var storeErrorMappings = []storeErrorMapping{
	{sentinel.ErrAlreadyUsed, dErrors.CodeConflict, "already exists"},
	{sentinel.ErrConflict, dErrors.CodeConflict, "concurrent update, retry"},
	{sentinel.ErrUnavailable, dErrors.CodeInternal, "store unavailable"},
}

// translate converts a store error into a domain error exactly once. Domain
// errors raised inside Execute validate callbacks pass through untouched.
func translate(err error, notFound dErrors.Code, action string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, notFound, string(notFound))
	}
	for _, m := range storeErrorMappings {
		if errors.Is(err, m.sentinel) {
			return dErrors.Wrap(err, m.code, m.message)
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}
