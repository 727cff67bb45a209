package server

import (
	"errors"
	"testing"

	"github.com/facttools/factmemory/internal/errortypes"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", errortypes.ValidationError(errors.New("bad"), "bad input"), StatusCodeValidationError},
		{"security", errortypes.SecurityError(errors.New("write"), "write rejected"), StatusCodeSecurityError},
		{"database", errortypes.DatabaseError(errors.New("io"), "query failed"), StatusCodeDatabaseError},
		{"cache", errortypes.CacheError(errors.New("full"), "store failed"), StatusCodeCacheError},
		{"config", errortypes.ConfigError(errors.New("missing"), "bad config"), StatusCodeConfigError},
		{"plain error", errors.New("anything"), StatusCodeUnknownError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("ErrorCode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorCodeUnwrapsWrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), errortypes.SecurityError(errors.New("inner"), "rejected"))
	if got := ErrorCode(wrapped); got != StatusCodeSecurityError {
		t.Errorf("ErrorCode() = %s, want %s", got, StatusCodeSecurityError)
	}
}
