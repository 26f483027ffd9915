package nfce

import (
	"context"
	"errors"
	"fmt"
	"nfce-backend/lib/restyutil"
	"nfce-backend/lib/telemetry"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scrapers/nfce")
var meter = otel.Meter("scrapers/nfce")
var extractionCounter, _ = meter.Int64Counter(
	"nfce.extractions",
	metric.WithDescription("receipt extractions by outcome"),
)

const (
	report_extract       = "extract"
	report_extract_panic = "extract-panic"
)

func withStage(stage Stage) trace.EventOption {
	return trace.WithAttributes(attribute.String("stage", string(stage)))
}

// Status tells apart the outcomes that all produce an empty product list.
type Status string

const (
	StatusFound Status = "found"
	// the receipt was reached but listed no usable products
	StatusEmpty Status = "empty"
	// the viewer did not render the expected postback forms
	StatusShapeChanged Status = "shape_changed"
	// network failure, timeout, tls or dns error, or a non 2xx answer
	StatusTransportFailure Status = "transport_failure"
	// a bug in the scraper itself, the portal may be fine
	StatusInternalError Status = "internal_error"
)

type Result struct {
	Status   Status
	Products []Product
	// Err is the cause of a StatusShapeChanged or StatusTransportFailure.
	Err error
}

type Options struct {
	Session   SessionOptions
	Endpoints Endpoints
	Telemetry telemetry.API
	// DumpDir, if set, receives a text dump of every http exchange.
	DumpDir string
}

func classifyResult(products []Product, err error) Result {
	if err == nil {
		if len(products) == 0 {
			return Result{Status: StatusEmpty, Products: products}
		}
		return Result{Status: StatusFound, Products: products}
	}
	if errors.Is(err, ErrMissingFormState) {
		return Result{Status: StatusShapeChanged, Products: []Product{}, Err: err}
	}
	return Result{Status: StatusTransportFailure, Products: []Product{}, Err: err}
}

// Extract scrapes the products of the receipt behind qrUrl. It never fails:
// every error ends up as a Result with no products, a non-found status and
// the cause, and is reported through the telemetry API.
func Extract(ctx context.Context, qrUrl string, opts Options) (result Result) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	tel = telemetry.NewScopedAPI("nfce_scraper", tel)

	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Status:   StatusInternalError,
				Products: []Product{},
				Err:      fmt.Errorf("panic while scraping: %v", r),
			}
			tel.ReportBroken(report_extract_panic, result.Err, string(debug.Stack()), qrUrl)
		} else if result.Err != nil {
			tel.ReportBroken(report_extract, result.Err, string(result.Status), qrUrl)
		}
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, string(result.Status))
		}
		span.SetAttributes(
			attribute.String("status", string(result.Status)),
			attribute.Int("products", len(result.Products)),
		)
		extractionCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(result.Status)),
		))
	}()

	sessionOpts := opts.Session
	if sessionOpts.Telemetry == nil {
		sessionOpts.Telemetry = tel
	}
	if opts.DumpDir != "" && sessionOpts.DumpOutput == nil {
		output, err := restyutil.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			tel.ReportWarning(report_extract, fmt.Errorf("dump dir: %w", err))
		} else {
			sessionOpts.DumpOutput = output
		}
	}

	session, err := NewSession(sessionOpts)
	if err != nil {
		return classifyResult(nil, fmt.Errorf("create session: %w", err))
	}
	defer session.Close()

	normalized := NormalizeUrl(qrUrl)
	tel.ReportDebug("extract", normalized)

	doc, err := session.Navigate(ctx, opts.Endpoints, normalized)
	if err != nil {
		return classifyResult(nil, err)
	}

	products := ParseProducts(doc)
	result = classifyResult(products, nil)
	tel.ReportDebug("extracted products", len(products))
	return result
}

// ExtractProducts is Extract without the outcome, callers can not tell an
// empty receipt from a failed scrape.
func ExtractProducts(ctx context.Context, qrUrl string, opts Options) []Product {
	return Extract(ctx, qrUrl, opts).Products
}
