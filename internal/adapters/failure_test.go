package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   FailureKind
	}{
		{401, FailureAuth},
		{403, FailureAuth},
		{404, FailureNotFound},
		{429, FailureRateLimited},
		{504, FailureTimeout},
		{500, FailureTransient},
		{502, FailureTransient},
		{400, FailureUnknown},
	}
	for _, c := range cases {
		if got := ClassifyStatus(c.status); got != c.want {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", c.status, got, c.want)
		}
	}
}

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "net says no" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return false }

func TestClassifyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"deadline", context.DeadlineExceeded, FailureTimeout},
		{"canceled", context.Canceled, FailureDeadline},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), FailureTimeout},
		{"net timeout", timeoutErr{timeout: true}, FailureTimeout},
		{"net non-timeout", timeoutErr{}, FailureTransient},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, FailureTransient},
		{"plain", errors.New("something odd"), FailureUnknown},
	}
	for _, c := range cases {
		if got := ClassifyErr(c.err); got.Kind != c.want {
			t.Errorf("%s: kind = %s, want %s", c.name, got.Kind, c.want)
		}
	}
}

func TestClassifyErrPassesFailuresThrough(t *testing.T) {
	orig := NewFailure(FailureRateLimited, "slow down")
	wrapped := fmt.Errorf("adapter: %w", orig)

	got := ClassifyErr(wrapped)
	if got != orig {
		t.Fatalf("got %+v, want the original failure", got)
	}
}

func TestRetryable(t *testing.T) {
	retryable := []FailureKind{FailureTransient, FailureRateLimited}
	for _, k := range retryable {
		if !(&Failure{Kind: k}).Retryable() {
			t.Errorf("%s should be retryable", k)
		}
	}
	permanent := []FailureKind{FailureAuth, FailureNotFound, FailureTimeout, FailureUnknown, FailureDeadline}
	for _, k := range permanent {
		if (&Failure{Kind: k}).Retryable() {
			t.Errorf("%s should not be retryable", k)
		}
	}
}

func TestResultOK(t *testing.T) {
	ok := Result{SystemID: "jira", Items: []ResultItem{{Title: "x"}}}
	if !ok.OK() {
		t.Error("result without error should be OK")
	}
	bad := Result{SystemID: "jira", Err: NewFailure(FailureAuth, "401")}
	if bad.OK() {
		t.Error("result with error should not be OK")
	}
}

func TestClassifyErrRealDialTimeout(t *testing.T) {
	d := net.Dialer{Timeout: time.Nanosecond}
	_, err := d.Dial("tcp", "10.255.255.1:81")
	if err == nil {
		t.Skip("dial unexpectedly succeeded")
	}

	got := ClassifyErr(err)
	if got.Kind != FailureTimeout && got.Kind != FailureTransient {
		t.Errorf("kind = %s, want timeout or transient", got.Kind)
	}
}
