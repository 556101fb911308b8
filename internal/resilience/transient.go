package resilience

import (
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
)

// TransientError marks a failure the service is expected to recover from,
// such as a 429 or 503 from the contact directory.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a TransientError or a network failure
// between us and the service: timeouts, refused or reset connections, DNS
// errors and responses cut short.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// ClassifyStatus wraps err as a TransientError when statusCode is transient.
// Other errors are returned unchanged.
func ClassifyStatus(err error, statusCode int) error {
	if err == nil || !TransientStatus(statusCode) {
		return err
	}
	return &TransientError{Err: err, StatusCode: statusCode}
}

// TransientStatus reports whether an HTTP status signals a temporary
// server-side condition.
func TransientStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
