// Package client is the typed convenience layer applications import
// directly: a pooled Client talking to a remote server over TCP, or an
// embedded Client calling a storage engine in the same process.
package client

import (
	stderrors "errors"
	"fmt"

	"github.com/agilira/go-errors"

	"spacekv/internal/wire"
)

// Error codes for client-side failures. Server-side failures arrive
// pre-classified as a wire.ServerError and are wrapped under ErrCodeServer
// rather than given their own code per variant.
const (
	ErrCodeIO                 errors.ErrorCode = "SPACEKV_CLIENT_IO"
	ErrCodeProtocol           errors.ErrorCode = "SPACEKV_CLIENT_PROTOCOL"
	ErrCodeServer             errors.ErrorCode = "SPACEKV_CLIENT_SERVER"
	ErrCodeUnexpectedResponse errors.ErrorCode = "SPACEKV_CLIENT_UNEXPECTED_RESPONSE"
	ErrCodeConfig             errors.ErrorCode = "SPACEKV_CLIENT_CONFIG"
)

func newIOError(cause error) error {
	return errors.Wrap(cause, ErrCodeIO, "connection error")
}

func newProtocolError(format string, args ...interface{}) error {
	return errors.NewWithField(ErrCodeProtocol, "protocol error", "detail", fmt.Sprintf(format, args...))
}

func newServerError(se wire.ServerError) error {
	return errors.Wrap(se, ErrCodeServer, "server error")
}

func newUnexpectedResponseError() error {
	return errors.New(ErrCodeUnexpectedResponse, "unexpected response from server")
}

func newConfigError(format string, args ...interface{}) error {
	return errors.NewWithField(ErrCodeConfig, "configuration error", "detail", fmt.Sprintf(format, args...))
}

// AsServerError reports whether err is (or wraps) a server-side failure,
// and returns the underlying wire.ServerError if so.
func AsServerError(err error) (wire.ServerError, bool) {
	var se wire.ServerError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsRetryable reports whether a client error is safe to retry.
func IsRetryable(err error) bool {
	var retryable errors.Retryable
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}
