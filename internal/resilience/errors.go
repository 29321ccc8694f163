package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// TransientError marks a failure that may succeed when tried again.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. statusCode is the HTTP status, if any.
func Transient(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"i/o timeout",
	"no such host",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"421 ", // ftp: service not available
	"425 ", // ftp: can't open data connection
	"426 ", // ftp: connection closed
}

// IsTransient reports whether err is marked transient, is a network timeout
// or a refused/reset connection, or carries a known transient message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// TransientStatus reports whether an HTTP status is worth retrying.
func TransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
