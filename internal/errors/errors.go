// Package errors provides the error taxonomy of the docchat client.
package errors

import (
	"errors"
	"fmt"

	"github.com/diogo/docchat/internal/models"
)

// Sentinel errors for common cases
var (
	ErrTransport       = errors.New("transport failed")
	ErrStream          = errors.New("stream reported an error")
	ErrInvalidResponse = errors.New("invalid response format")
)

// TransportError represents a non-success HTTP status or a network failure.
// The user only ever sees a generic message, whatever the body said.
type TransportError struct {
	StatusCode int
	Endpoint   string
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport error [%d] at %s", e.StatusCode, e.Endpoint)
	}
	if e.Cause != nil {
		return fmt.Sprintf("transport error at %s: %v", e.Endpoint, e.Cause)
	}
	return fmt.Sprintf("transport error at %s", e.Endpoint)
}

// Unwrap exposes the network cause, if any
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is allows comparison with sentinel errors
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*TransportError)
	return ok
}

// UserMessage returns the generic text shown to the user
func (e *TransportError) UserMessage() string {
	return models.GenericErrorMessage
}

// NewTransportError creates a TransportError for a non-success status
func NewTransportError(statusCode int, endpoint string) *TransportError {
	return &TransportError{StatusCode: statusCode, Endpoint: endpoint}
}

// NewNetworkError creates a TransportError for a failed round trip
func NewNetworkError(endpoint string, cause error) *TransportError {
	return &TransportError{Endpoint: endpoint, Cause: cause}
}

// StreamError represents an explicit error frame inside a successful stream
type StreamError struct {
	Message string
	// Partial is the text received before the error frame
	Partial string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *StreamError) Is(target error) bool {
	if target == ErrStream {
		return true
	}
	_, ok := target.(*StreamError)
	return ok
}

// NewStreamError creates a new StreamError
func NewStreamError(message, partial string) *StreamError {
	return &StreamError{Message: message, Partial: partial}
}

// ParseError represents a response body that does not have the expected shape
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error: %s (at %s)", e.Message, e.Path)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// IsTransportError reports whether err is or wraps a TransportError
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsStreamError reports whether err is or wraps a StreamError
func IsStreamError(err error) bool {
	return errors.Is(err, ErrStream)
}

// IsParseError reports whether err is or wraps a ParseError
func IsParseError(err error) bool {
	return errors.Is(err, ErrInvalidResponse)
}

// GetHTTPStatus returns the HTTP status carried by err, or 0
func GetHTTPStatus(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// GetEndpoint returns the endpoint or path an error relates to, or ""
func GetEndpoint(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Endpoint
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Path
	}
	return ""
}

// PartialText returns the text received before a stream failure, if any
func PartialText(err error) string {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Partial
	}
	return ""
}

// UserMessage maps any error to the text displayed in place of a reply
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var se *StreamError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}

	return models.GenericErrorMessage
}
