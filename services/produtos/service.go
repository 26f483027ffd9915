package produtos

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"nfce-backend/lib/scrapers/nfce"
	"nfce-backend/lib/telemetry"
	"path/filepath"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	report_decode  = "decode"
	report_encode  = "encode"
	report_extract = "extract"
)

const (
	headerExtractionStatus = "X-Extraction-Status"
	missingQrUrlMessage    = "qr_url é obrigatório"
)

// Extractor scrapes the receipt behind a QR code url.
type Extractor interface {
	Extract(ctx context.Context, qrUrl string) nfce.Result
}

// ScraperExtractor extracts receipts from the SEFAZ portal.
type ScraperExtractor struct {
	Options nfce.Options
}

func (e ScraperExtractor) Extract(ctx context.Context, qrUrl string) nfce.Result {
	return nfce.Extract(ctx, qrUrl, e.Options)
}

type Options struct {
	// StaticDir holds the index.html served on GET /, empty disables it.
	StaticDir string
	Telemetry telemetry.API
}

type Service struct {
	extractor Extractor
	staticDir string
	tel       telemetry.API
}

func NewService(extractor Extractor, opts Options) Service {
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return Service{
		extractor: extractor,
		staticDir: opts.StaticDir,
		tel:       telemetry.NewScopedAPI("produtos", tel),
	}
}

type produtosRequest struct {
	QrUrl string `json:"qr_url"`
}

type errorResponse struct {
	Erro string `json:"erro"`
}

func writeJson(w http.ResponseWriter, tel telemetry.API, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		tel.ReportWarning(report_encode, err)
	}
}

func (s Service) produtos(w http.ResponseWriter, r *http.Request) {
	var req produtosRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		s.tel.ReportDebug("invalid request body", err)
	}
	qrUrl := req.QrUrl
	if err != nil || qrUrl == "" {
		writeJson(w, s.tel, http.StatusBadRequest, errorResponse{Erro: missingQrUrlMessage})
		return
	}

	result := s.extractor.Extract(r.Context(), qrUrl)
	products := result.Products
	if products == nil {
		products = []nfce.Product{}
	}
	if result.Err != nil {
		s.tel.ReportWarning(report_extract, result.Status, result.Err)
	}
	slog.Info(
		"extracted receipt",
		"status", result.Status,
		"products", len(products),
	)

	w.Header().Set(headerExtractionStatus, string(result.Status))
	writeJson(w, s.tel, http.StatusOK, products)
}

func (s Service) index(w http.ResponseWriter, r *http.Request) {
	if s.staticDir == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.staticDir, "index.html"))
}

// Handler returns the http surface of the service with permissive CORS
// and tracing applied to every route.
func (s Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /produtos", s.produtos)
	mux.HandleFunc("GET /{$}", s.index)

	return otelhttp.NewHandler(
		withRequestId(withCors(mux)),
		"produtos",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
