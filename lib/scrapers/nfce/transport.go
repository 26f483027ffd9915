package nfce

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

var errReadTimeout = errors.New("read timeout exceeded")

type readTimeoutCtxKeyType int

var readTimeoutCtxKey readTimeoutCtxKeyType

func withReadTimeout(ctx context.Context, timeout time.Duration) context.Context {
	return context.WithValue(ctx, readTimeoutCtxKey, timeout)
}

// attemptTimeoutTransport bounds every single attempt (response headers and
// body) by the read timeout carried in the request context, so that retries
// each get a fresh budget instead of sharing one deadline.
type attemptTimeoutTransport struct {
	inner http.RoundTripper
}

func (t attemptTimeoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	timeout, ok := req.Context().Value(readTimeoutCtxKey).(time.Duration)
	if !ok || timeout <= 0 {
		return t.inner.RoundTrip(req)
	}

	ctx, cancel := context.WithTimeoutCause(req.Context(), timeout, errReadTimeout)
	res, err := t.inner.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	res.Body = cancelOnClose{ReadCloser: res.Body, cancel: cancel}
	return res, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
