package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

type attemptCtxKeyType int

var attemptCtxKey attemptCtxKeyType

// attempt remembers the span of the current try so that a retry started by
// resty closes it instead of nesting under it.
type attempt struct {
	parent context.Context
	span   trace.Span
}

// InstrumentResty creates a span for every attempt a resty client makes.
func InstrumentResty(client *resty.Client, tracerName string) {
	tracer := Tracer(tracerName)

	client.OnBeforeRequest(onBeforeRequest(tracer))
	client.OnAfterResponse(onAfterResponse)
	client.OnError(onError)
}

func onBeforeRequest(tracer trace.Tracer) resty.RequestMiddleware {
	return func(_ *resty.Client, req *resty.Request) error {
		parent := req.Context()
		if previous, ok := parent.Value(attemptCtxKey).(attempt); ok {
			previous.span.End()
			parent = previous.parent
		}

		ctx, span := tracer.Start(parent, fmt.Sprintf("http %s", req.Method))
		span.SetAttributes(attribute.Int("http.attempt", req.Attempt))
		req.SetContext(context.WithValue(ctx, attemptCtxKey, attempt{
			parent: parent,
			span:   span,
		}))
		return nil
	}
}

func instrumentHeaders(out *[]attribute.KeyValue, prefix string, headers http.Header) {
	for header, values := range headers {
		if len(values) == 1 {
			*out = append(*out, attribute.String(
				fmt.Sprintf("%s/header: %s", prefix, header),
				values[0],
			))
			continue
		}
		for i, v := range values {
			*out = append(*out, attribute.String(
				fmt.Sprintf("%s/header: %s (%d)", prefix, header, i),
				v,
			))
		}
	}
}

func onAfterResponse(_ *resty.Client, res *resty.Response) error {
	span := trace.SpanFromContext(res.Request.Context())
	defer span.End()

	// setting request attributes here since res.Request.RawRequest is nil in onBeforeRequest
	span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)

	var attrs []attribute.KeyValue
	instrumentHeaders(&attrs, "request", res.Request.Header)
	instrumentHeaders(&attrs, "response", res.Header())
	attrs = append(attrs, attribute.Int("response/body_size", len(res.Body())))
	span.SetAttributes(attrs...)

	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}
	return nil
}

func onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var attrs []attribute.KeyValue
	instrumentHeaders(&attrs, "request", req.Header)
	span.SetAttributes(attrs...)

	if req.RawRequest == nil {
		return
	}
	span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
}

// RestyLogger forwards resty's internal logging to slog.
type RestyLogger struct{}

func (RestyLogger) Errorf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...), "source", "resty")
}

func (RestyLogger) Warnf(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...), "source", "resty")
}

func (RestyLogger) Debugf(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), "source", "resty")
}
