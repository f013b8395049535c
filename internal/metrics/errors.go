package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

type statusError interface {
	HTTPStatus() int
}

// ErrorLabel returns a short human-friendly category for a failed request,
// such as "HTTP 503", "Timeout" or "Connection refused".
func ErrorLabel(err error) string {
	if err == nil {
		return ""
	}

	var status statusError
	if errors.As(err, &status) {
		return fmt.Sprintf("HTTP %d", status.HTTPStatus())
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "Connection reset"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "DNS lookup failed"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "Request error"
	}
	return "Unknown error"
}
