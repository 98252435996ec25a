package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FailureKind classifies why an adapter invocation failed. The executor's
// retry policy keys off this classification.
type FailureKind string

const (
	FailureAuth        FailureKind = "auth"
	FailureNotFound    FailureKind = "not_found"
	FailureRateLimited FailureKind = "rate_limited"
	FailureTimeout     FailureKind = "timeout"
	FailureTransient   FailureKind = "transient"
	FailureUnknown     FailureKind = "unknown"

	// FailureDeadline marks an adapter that was still pending when the
	// overall query deadline expired. Assigned by the executor, never by
	// an adapter itself.
	FailureDeadline FailureKind = "deadline_exceeded"
)

// Failure is a classified adapter error.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Retryable reports whether the executor may retry the call once.
// Permanent failures (auth, not-found) and timeouts are never retried.
func (f *Failure) Retryable() bool {
	return f.Kind == FailureTransient || f.Kind == FailureRateLimited
}

// NewFailure builds a Failure with a formatted message.
func NewFailure(kind FailureKind, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ClassifyStatus maps an HTTP response status to a failure kind.
func ClassifyStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailureAuth
	case status == http.StatusNotFound:
		return FailureNotFound
	case status == http.StatusTooManyRequests:
		return FailureRateLimited
	case status == http.StatusGatewayTimeout:
		return FailureTimeout
	case status >= 500:
		return FailureTransient
	default:
		return FailureUnknown
	}
}

// ClassifyErr wraps an arbitrary transport error as a Failure. Context
// deadlines become timeouts, network errors become transient.
func ClassifyErr(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: FailureTimeout, Message: err.Error()}
	}
	if errors.Is(err, context.Canceled) {
		return &Failure{Kind: FailureDeadline, Message: err.Error()}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &Failure{Kind: FailureTimeout, Message: err.Error()}
		}
		return &Failure{Kind: FailureTransient, Message: err.Error()}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Failure{Kind: FailureTransient, Message: err.Error()}
	}

	return &Failure{Kind: FailureUnknown, Message: err.Error()}
}
