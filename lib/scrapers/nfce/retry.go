package nfce

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"nfce-backend/lib/telemetry"
	"slices"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

type RetryPolicy struct {
	// Total is the overall number of retries a single call may make.
	Total int
	// Connect and Read are sub-budgets for connection establishment
	// failures and read timeouts, both also count against Total.
	Connect int
	Read    int
	// the wait before retry n is Backoff * n
	Backoff  time.Duration
	Statuses []int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Total:   5,
		Connect: 5,
		Read:    3,
		Backoff: time.Millisecond * 1500,
		Statuses: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

func (p RetryPolicy) isZero() bool {
	return p.Total == 0 &&
		p.Connect == 0 &&
		p.Read == 0 &&
		p.Backoff == 0 &&
		len(p.Statuses) == 0
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.isZero() {
		return DefaultRetryPolicy()
	}
	return p
}

func (p RetryPolicy) wait(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.Backoff * time.Duration(attempt)
}

type failure int

const (
	failureNone failure = iota
	failureStatus
	failureConnect
	failureRead
	// dns failures, connection resets, tls errors and everything else that
	// will not get better by trying again
	failureFatal
)

func (f failure) String() string {
	switch f {
	case failureNone:
		return "none"
	case failureStatus:
		return "status"
	case failureConnect:
		return "connect"
	case failureRead:
		return "read"
	default:
		return "fatal"
	}
}

func classifyFailure(res *resty.Response, err error, statuses []int) failure {
	if err == nil {
		if res != nil && slices.Contains(statuses, res.StatusCode()) {
			return failureStatus
		}
		return failureNone
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return failureFatal
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return failureFatal
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return failureConnect
	}
	if errors.Is(err, errReadTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return failureRead
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureRead
	}
	return failureFatal
}

// retryBudget tracks the retries of one logical call across its attempts.
type retryBudget struct {
	policy  RetryPolicy
	tel     telemetry.API
	total   int
	connect int
	read    int
}

func newRetryBudget(policy RetryPolicy, tel telemetry.API) *retryBudget {
	return &retryBudget{policy: policy, tel: tel}
}

func (b *retryBudget) shouldRetry(res *resty.Response, err error) bool {
	kind := classifyFailure(res, err, b.policy.Statuses)
	switch kind {
	case failureNone, failureFatal:
		return false
	case failureConnect:
		if b.connect >= b.policy.Connect {
			return false
		}
		b.connect++
	case failureRead:
		if b.read >= b.policy.Read {
			return false
		}
		b.read++
	}
	if b.total >= b.policy.Total {
		return false
	}
	b.total++

	b.tel.ReportDebug("retrying request", describeAttempt(res, err), kind.String(), b.total)
	return true
}

func describeAttempt(res *resty.Response, err error) string {
	if res == nil || res.Request == nil {
		return fmt.Sprintf("<no request>: %v", err)
	}
	if err != nil {
		return fmt.Sprintf("%s %s: %v", res.Request.Method, res.Request.URL, err)
	}
	return fmt.Sprintf("%s %s: %s", res.Request.Method, res.Request.URL, res.Status())
}
