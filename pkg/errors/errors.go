package errors

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrStoreNotFound   = errors.New("credential store not found")
	ErrCookieInvalid   = errors.New("cookie missing session token")
	ErrSessionRejected = errors.New("session rejected by platform")
	ErrPlatformStatus  = errors.New("platform returned non-200 status")
	ErrLocationUnknown = errors.New("location could not be determined")
)

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

type RetryableError struct {
	Err     error
	Message string
}

func (e RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %s - %s", e.Message, e.Err.Error())
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error, message string) error {
	return RetryableError{
		Err:     err,
		Message: message,
	}
}

// IsRetryable reports whether err or anything it wraps is a RetryableError.
func IsRetryable(err error) bool {
	var re RetryableError
	return errors.As(err, &re)
}
