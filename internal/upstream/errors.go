package upstream

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Class buckets upstream failures the way the console surfaces them.
type Class string

const (
	// ClassClientError covers 4xx responses other than 429.
	ClassClientError Class = "client_error"
	// ClassServerError covers 5xx responses and 429.
	ClassServerError Class = "server_error"
	// ClassNetwork covers failures where no response was received.
	ClassNetwork Class = "network_error"
	// ClassTimeout covers deadline and dial/read timeouts.
	ClassTimeout Class = "timeout"
)

// Error is the terminal error returned by the client once retries are
// exhausted. Message is safe to show to an operator; Err keeps the cause.
type Error struct {
	Class    Class
	Message  string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ClassifyStatus buckets an HTTP status code received from the upstream.
func ClassifyStatus(status int) Class {
	switch {
	case status >= 500 || status == 429:
		return ClassServerError
	default:
		return ClassClientError
	}
}

// classifyNetErr distinguishes timeouts from other transport failures.
func classifyNetErr(err error) Class {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ClassTimeout
	}
	return ClassNetwork
}

// FriendlyMessage maps transport errors to the dismissible-alert wording the
// console shows instead of raw errno strings.
func FriendlyMessage(err error) string {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "upstream refused the connection"
	case errors.Is(err, syscall.ECONNRESET):
		return "upstream reset the connection"
	case errors.Is(err, context.DeadlineExceeded):
		return "upstream request timed out"
	case errors.Is(err, context.Canceled):
		return "request was canceled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "upstream host could not be resolved"
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "upstream request timed out"
	}

	return "upstream request failed"
}
