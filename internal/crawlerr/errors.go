// Package crawlerr defines typed errors raised while interacting with
// registry pages. Each carries the request and response context needed to
// replay the failure by hand.
package crawlerr

import (
	"errors"
	"fmt"
)

// ErrResponse is matched by every error in this package.
var ErrResponse = errors.New("response error")

// RequestContext describes the outbound request.
type RequestContext struct {
	Method  string
	URL     string
	Headers map[string]string
}

// ResponseContext describes what came back.
type ResponseContext struct {
	Status  int
	URL     string
	Headers map[string]string
	Body    string
}

// ResponseTimeoutError reports an expected response that never arrived.
type ResponseTimeoutError struct {
	Message string
	Request RequestContext
}

func (e *ResponseTimeoutError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Message, e.Request.Method, e.Request.URL)
}

// Name implements the exception naming used on navigation rows.
func (e *ResponseTimeoutError) Name() string { return "ResponseTimeoutError" }

// Is matches ErrResponse.
func (e *ResponseTimeoutError) Is(target error) bool { return target == ErrResponse }

// ResponseStatusError reports a response with an unexpected status.
type ResponseStatusError struct {
	Message  string
	Request  RequestContext
	Response ResponseContext
}

func (e *ResponseStatusError) Error() string {
	return fmt.Sprintf("%s: %s %s returned %d", e.Message, e.Request.Method, e.Request.URL, e.Response.Status)
}

// Name implements the exception naming used on navigation rows.
func (e *ResponseStatusError) Name() string { return "ResponseStatusError" }

// Is matches ErrResponse.
func (e *ResponseStatusError) Is(target error) bool { return target == ErrResponse }

// ResponseBodyError reports a response whose body did not have the
// expected shape.
type ResponseBodyError struct {
	Message  string
	Request  RequestContext
	Response ResponseContext
}

func (e *ResponseBodyError) Error() string {
	return fmt.Sprintf("%s: %s %s (%d bytes)", e.Message, e.Request.Method, e.Response.URL, len(e.Response.Body))
}

// Name implements the exception naming used on navigation rows.
func (e *ResponseBodyError) Name() string { return "ResponseBodyError" }

// Is matches ErrResponse.
func (e *ResponseBodyError) Is(target error) bool { return target == ErrResponse }

// MissingFieldError reports required request context that was absent.
type MissingFieldError struct {
	Field string
	Scope string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing %q on %s", e.Field, e.Scope)
}

// Name implements the exception naming used on navigation rows.
func (e *MissingFieldError) Name() string { return "MissingFieldError" }
