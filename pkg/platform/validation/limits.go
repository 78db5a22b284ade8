// Package validation holds the size limits enforced at the HTTP boundary.
package validation

import (
	"fmt"

	dErrors "warden/pkg/domain-errors"
)

// MaxBodySize caps every request body at 64 KiB.
const MaxBodySize = 64 << 10

// Field limits, in bytes.
const (
	MaxEmailLength       = 255
	MinPasswordLength    = 8
	MaxPasswordLength    = 72 // bcrypt ignores anything longer
	MaxPhoneLength       = 16 // E.164 with the leading plus
	MaxNameLength        = 200
	MaxDomainLength      = 253
	MaxDescriptionLength = 2000
	MaxURLLength         = 2048
	MaxCodeLength        = 16

	MaxExternalSubjectLength = 255
)

// CheckStringLength fails with validation_error when value is longer than max.
func CheckStringLength(field, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", field, max))
	}
	return nil
}

// CheckMinLength fails with validation_error when value is shorter than min.
func CheckMinLength(field, value string, min int) error {
	if len(value) < min {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be at least %d characters", field, min))
	}
	return nil
}
