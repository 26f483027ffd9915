package nfce

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"nfce-backend/lib/telemetry"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func statusResponse(code int) *resty.Response {
	return &resty.Response{RawResponse: &http.Response{StatusCode: code}}
}

func urlError(err error) error {
	return &url.Error{Op: "Get", URL: "https://nfe.sefaz.ba.gov.br", Err: err}
}

func TestClassifyFailure(t *testing.T) {
	statuses := DefaultRetryPolicy().Statuses

	testCases := []struct {
		name     string
		res      *resty.Response
		err      error
		expected failure
	}{
		{
			name:     "ok",
			res:      statusResponse(http.StatusOK),
			expected: failureNone,
		},
		{
			name:     "not found is final",
			res:      statusResponse(http.StatusNotFound),
			expected: failureNone,
		},
		{
			name:     "service unavailable",
			res:      statusResponse(http.StatusServiceUnavailable),
			expected: failureStatus,
		},
		{
			name:     "too many requests",
			res:      statusResponse(http.StatusTooManyRequests),
			expected: failureStatus,
		},
		{
			name: "dns",
			err: urlError(&net.OpError{
				Op:  "dial",
				Err: &net.DNSError{Err: "no such host", Name: "nfe.sefaz.ba.gov.br", IsNotFound: true},
			}),
			expected: failureFatal,
		},
		{
			name: "connection reset",
			err: urlError(&net.OpError{
				Op:  "read",
				Err: os.NewSyscallError("read", syscall.ECONNRESET),
			}),
			expected: failureFatal,
		},
		{
			name: "connection refused",
			err: urlError(&net.OpError{
				Op:  "dial",
				Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
			}),
			expected: failureConnect,
		},
		{
			name:     "read deadline",
			err:      urlError(context.DeadlineExceeded),
			expected: failureRead,
		},
		{
			name:     "read timeout cause",
			err:      fmt.Errorf("read body: %w", errReadTimeout),
			expected: failureRead,
		},
		{
			name:     "tls",
			err:      urlError(errors.New("tls: failed to verify certificate")),
			expected: failureFatal,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, classifyFailure(test.res, test.err, statuses))
		})
	}
}

func TestRetryBudget(t *testing.T) {
	policy := RetryPolicy{
		Total:    4,
		Connect:  2,
		Read:     1,
		Backoff:  time.Millisecond,
		Statuses: []int{http.StatusServiceUnavailable},
	}
	refused := urlError(&net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)})
	timeout := urlError(context.DeadlineExceeded)
	unavailable := statusResponse(http.StatusServiceUnavailable)

	t.Run("connect sub budget", func(t *testing.T) {
		budget := newRetryBudget(policy, telemetry.SlogAPI{})
		require.True(t, budget.shouldRetry(nil, refused))
		require.True(t, budget.shouldRetry(nil, refused))
		require.False(t, budget.shouldRetry(nil, refused))
		// other failures still have room in the total budget
		require.True(t, budget.shouldRetry(unavailable, nil))
	})

	t.Run("read sub budget", func(t *testing.T) {
		budget := newRetryBudget(policy, telemetry.SlogAPI{})
		require.True(t, budget.shouldRetry(nil, timeout))
		require.False(t, budget.shouldRetry(nil, timeout))
	})

	t.Run("total budget", func(t *testing.T) {
		budget := newRetryBudget(policy, telemetry.SlogAPI{})
		require.True(t, budget.shouldRetry(nil, refused))
		require.True(t, budget.shouldRetry(nil, timeout))
		require.True(t, budget.shouldRetry(unavailable, nil))
		require.True(t, budget.shouldRetry(unavailable, nil))
		require.False(t, budget.shouldRetry(unavailable, nil))
		require.False(t, budget.shouldRetry(nil, refused))
	})

	t.Run("never retried", func(t *testing.T) {
		budget := newRetryBudget(policy, telemetry.SlogAPI{})
		require.False(t, budget.shouldRetry(statusResponse(http.StatusOK), nil))
		require.False(t, budget.shouldRetry(nil, urlError(&net.DNSError{Err: "no such host"})))
		require.Equal(t, 0, budget.total)
	})
}

func TestRetryPolicyWait(t *testing.T) {
	policy := DefaultRetryPolicy()
	require.Equal(t, time.Millisecond*1500, policy.wait(0))
	require.Equal(t, time.Millisecond*1500, policy.wait(1))
	require.Equal(t, time.Second*3, policy.wait(2))
	require.Equal(t, time.Millisecond*4500, policy.wait(3))
	require.Equal(t, time.Second*6, policy.wait(4))
}

func TestRetryPolicyDefaults(t *testing.T) {
	require.Equal(t, DefaultRetryPolicy(), RetryPolicy{}.withDefaults())

	custom := RetryPolicy{Total: 1, Backoff: time.Millisecond}
	require.Equal(t, custom, custom.withDefaults())
}
