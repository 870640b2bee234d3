package fetch

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidURL            = errors.New("invalid url")
	ErrInvalidMethod         = errors.New("invalid method")
	ErrForbiddenMethod       = errors.New("forbidden method")
	ErrInvalidOption         = errors.New("invalid request option")
	ErrBodyNotAllowed        = errors.New("body is not allowed")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidStatusText     = errors.New("invalid status text")
	ErrInvalidRedirectStatus = errors.New("invalid redirect status")
	ErrTooManyRedirects      = errors.New("too many redirects")
	ErrRedirectNotAllowed    = errors.New("redirect is not allowed")

	// ErrNetwork matches every *NetworkError with errors.Is.
	ErrNetwork = errors.New("network failure")
)

// NetworkError rejects a fetch that did not complete an exchange.
type NetworkError struct {
	cause error
}

func newNetworkError(err error) *NetworkError {
	return &NetworkError{cause: err}
}

func (e *NetworkError) Error() string {
	if e.cause == nil {
		return ErrNetwork.Error()
	}
	return ErrNetwork.Error() + ": " + e.cause.Error()
}

func (e *NetworkError) Cause() error  { return e.cause }
func (e *NetworkError) Unwrap() error { return e.cause }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }
