package portal

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/muurk/wifiprov/internal/provision"
)

// ErrorType is the category of a client-side failure.
type ErrorType int

const (
	// ErrTypeNetwork covers connection-level failures.
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the portal did not answer in time.
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening.
	ErrTypeConnectionRefused
	// ErrTypeHTTP indicates an unexpected status code.
	ErrTypeHTTP
	// ErrTypeParse indicates a response that could not be decoded.
	ErrTypeParse
	// ErrTypeRejected indicates the portal refused the submitted credentials.
	ErrTypeRejected
)

// String returns a human-readable name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// ClientError is returned by Client for every failed call.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// classifyNetworkError turns a transport error into a ClientError.
func classifyNetworkError(message string, err error) *ClientError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}

	ce := &ClientError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}

	var opErr *net.OpError
	switch {
	case os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded):
		ce.Type = ErrTypeTimeout
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED):
		ce.Type = ErrTypeConnectionRefused
	case errors.Is(err, syscall.ECONNREFUSED):
		ce.Type = ErrTypeConnectionRefused
	}
	return ce
}

func newHTTPError(status int, body string) *ClientError {
	msg := fmt.Sprintf("unexpected status code: %d", status)
	if body = strings.TrimSpace(body); body != "" {
		msg += ": " + body
	}
	return &ClientError{
		Type:       ErrTypeHTTP,
		Message:    msg,
		StatusCode: status,
		Retryable:  status >= 500,
	}
}

func newParseError(message string, err error) *ClientError {
	return &ClientError{Type: ErrTypeParse, Message: message, Err: err}
}

// newRejectedError wraps provision.ErrInvalidCredentials so callers can use
// errors.Is on either side of the wire.
func newRejectedError(status int, reason string) *ClientError {
	return &ClientError{
		Type:       ErrTypeRejected,
		Message:    strings.TrimSpace(reason),
		StatusCode: status,
		Err:        provision.ErrInvalidCredentials,
	}
}

// IsRetryable reports whether a call that failed with err may be retried.
func IsRetryable(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// TroubleshootingHint returns operator advice for err.
func TroubleshootingHint(err error) string {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return "An unexpected error occurred. Please try again."
	}

	switch ce.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The device did not respond in time.",
			"Troubleshooting:",
			"  • Check that the device is powered on",
			"  • Verify you are joined to the device's setup network",
			"  • Move closer to the device",
		}, "\n")
	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The device refused the connection.",
			"Troubleshooting:",
			"  • The setup page may be on a different port (see 'wifiprov scan')",
			"  • The daemon may be restarting to apply new credentials",
		}, "\n")
	case ErrTypeRejected:
		return "The network name and secret must each be 1-32 bytes."
	case ErrTypeHTTP:
		if ce.StatusCode == http.StatusNotFound {
			return "The address does not serve a setup page. Check the URL."
		}
		return fmt.Sprintf("The device returned HTTP error %d.", ce.StatusCode)
	case ErrTypeParse:
		return "The device sent a response this tool does not understand. Check both versions."
	default:
		return strings.Join([]string{
			"Network communication failed.",
			"Troubleshooting:",
			"  • Join the device's setup network (default SSID: SetupNetwork)",
			"  • Verify the device address",
		}, "\n")
	}
}
