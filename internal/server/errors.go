package server

import (
	"errors"

	"github.com/facttools/factmemory/internal/errortypes"
)

// Error codes attached to tool responses so clients can branch on failure
// class without parsing messages.
const (
	StatusCodeValidationError = "VALIDATION_ERROR"
	StatusCodeSecurityError   = "SECURITY_ERROR"
	StatusCodeDatabaseError   = "DATABASE_ERROR"
	StatusCodeCacheError      = "CACHE_ERROR"
	StatusCodeNetworkError    = "NETWORK_ERROR"
	StatusCodeInternalError   = "INTERNAL_ERROR"
	StatusCodeConfigError     = "CONFIG_ERROR"
	StatusCodeExternalError   = "EXTERNAL_ERROR"
	StatusCodeUnknownError    = "UNKNOWN_ERROR"
)

// ErrorCode maps an error to a response status code string.
func ErrorCode(err error) string {
	var appErr *errortypes.AppError
	if !errors.As(err, &appErr) {
		return StatusCodeUnknownError
	}

	switch appErr.Type {
	case errortypes.ErrorTypeValidation:
		return StatusCodeValidationError
	case errortypes.ErrorTypeSecurity, errortypes.ErrorTypePermission:
		return StatusCodeSecurityError
	case errortypes.ErrorTypeDatabase:
		return StatusCodeDatabaseError
	case errortypes.ErrorTypeCache:
		return StatusCodeCacheError
	case errortypes.ErrorTypeNetwork:
		return StatusCodeNetworkError
	case errortypes.ErrorTypeConfig:
		return StatusCodeConfigError
	case errortypes.ErrorTypeAPI, errortypes.ErrorTypeExternal:
		return StatusCodeExternalError
	case errortypes.ErrorTypeInternal:
		return StatusCodeInternalError
	default:
		return StatusCodeUnknownError
	}
}
