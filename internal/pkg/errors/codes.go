package errors

import "net/http"

// Error code constants.
// Errors carry code + params; backend logs are always in English.

// Semester routing error codes.
const (
	CodeNoCurrentSemester = "NO_CURRENT_SEMESTER"
	CodeUnknownAlias      = "UNKNOWN_ALIAS"
	CodeProvisioningFail  = "PROVISIONING_FAILED"
	CodeCannotDropCurrent = "CANNOT_DROP_CURRENT"
	CodeRegistryUnready   = "REGISTRY_NOT_READY"
)

// Versioning error codes.
const (
	CodeVersionConflict = "VERSION_CONFLICT"
)

// Allocation error codes.
const (
	CodeAllocationClash  = "ALLOCATION_CLASH"
	CodeAllocationExists = "ALLOCATION_ALREADY_EXISTS"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeTutorNotFound    = "TUTOR_NOT_FOUND"
)

// EOI error codes.
const (
	CodeEOINotFound    = "EOI_NOT_FOUND"
	CodeUnitNotFound   = "UNIT_NOT_FOUND"
	CodeImportNotFound = "IMPORT_NOT_FOUND"
	CodeImportEmpty    = "IMPORT_EMPTY"
)

// Auth error codes.
const (
	CodeAuthFailed   = "AUTH_FAILED"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)

// Validation error codes.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
)

// Convenience constructors using predefined codes.

// ErrNoCurrentSemesterf reports that no semester is flagged current.
// Semester-scoped writes must fail with this rather than falling back to
// the default database.
func ErrNoCurrentSemesterf() *AppError {
	return &AppError{
		Code:       CodeNoCurrentSemester,
		Message:    "no semester is marked as current",
		HTTPStatus: http.StatusConflict,
	}
}

// ErrUnknownAliasf reports a semester alias missing from the registry.
func ErrUnknownAliasf(alias string) *AppError {
	return (&AppError{
		Code:       CodeUnknownAlias,
		Message:    "semester alias is not registered",
		HTTPStatus: http.StatusNotFound,
	}).WithParams(map[string]interface{}{"alias": alias})
}

// ErrCannotDropCurrentf reports an attempt to drop the active semester.
func ErrCannotDropCurrentf(alias string) *AppError {
	return (&AppError{
		Code:       CodeCannotDropCurrent,
		Message:    "cannot drop the current semester database",
		HTTPStatus: http.StatusBadRequest,
	}).WithParams(map[string]interface{}{"alias": alias})
}

// ErrRegistryUnreadyf reports that the runtime registry has no live
// connection for the current semester, typically because hydration failed
// at boot and the lazy retry has not succeeded yet.
func ErrRegistryUnreadyf() *AppError {
	return &AppError{
		Code:       CodeRegistryUnready,
		Message:    "semester registry is not hydrated",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// ErrVersionConflictf wraps a unique violation that survived the retry of a
// versioned submit: two writers raced twice on the same business key.
func ErrVersionConflictf(err error) *AppError {
	return Wrap(err, CodeVersionConflict, "concurrent submission for this record, try again", http.StatusConflict)
}

// ErrProvisioningf wraps a physical database creation or migration failure.
func ErrProvisioningf(err error, message string) *AppError {
	return Wrap(err, CodeProvisioningFail, message, http.StatusBadRequest)
}
