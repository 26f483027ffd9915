package nfce

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html/charset"
)

const (
	DefaultDanfeUrl = "https://nfe.sefaz.ba.gov.br/servicos/nfce/Modulos/Geral/NFCEC_consulta_danfe.aspx"
	DefaultAbasUrl  = "https://nfe.sefaz.ba.gov.br/servicos/nfce/Modulos/Geral/NFCEC_consulta_abas.aspx"
)

// Endpoints are the two postback targets of the receipt viewer.
type Endpoints struct {
	// Danfe receives the "Visualizar em Abas" click.
	Danfe string
	// Abas receives the click on the products tab.
	Abas string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Danfe: DefaultDanfeUrl,
		Abas:  DefaultAbasUrl,
	}
}

func (e Endpoints) withDefaults() Endpoints {
	if e.Danfe == "" {
		e.Danfe = DefaultDanfeUrl
	}
	if e.Abas == "" {
		e.Abas = DefaultAbasUrl
	}
	return e
}

type Stage string

const (
	StageLanding  Stage = "landing"
	StageTabs     Stage = "tabs"
	StageProducts Stage = "products"
)

// ErrMissingFormState is returned when a page that should be posted back
// does not carry its WebForms tokens.
var ErrMissingFormState = errors.New("page does not carry __VIEWSTATE and __EVENTVALIDATION")

// StageError locates a failure within the navigation sequence.
type StageError struct {
	Stage Stage
	// Status is the final http status, 0 if no response was received.
	Status int
	Err    error
}

func (e *StageError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("nfce %s: status %d: %v", e.Stage, e.Status, e.Err)
	}
	return fmt.Sprintf("nfce %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

var errBadStatus = errors.New("unexpected http status")

var (
	tabsTrigger = url.Values{
		"btn_visualizar_abas": {"Visualizar em Abas"},
	}
	// emulates a click on the image button, the handler requires the
	// coordinates but ignores their value
	productsTrigger = url.Values{
		"btn_aba_produtos.x": {"10"},
		"btn_aba_produtos.y": {"10"},
	}
)

func parseDocument(res *resty.Response) (*goquery.Document, error) {
	reader, err := charset.NewReader(
		bytes.NewReader(res.Body()),
		res.Header().Get("Content-Type"),
	)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(reader)
}

func (s *Session) document(stage Stage, res *resty.Response, err error) (*goquery.Document, error) {
	if err != nil {
		status := 0
		if res != nil && res.RawResponse != nil {
			status = res.StatusCode()
		}
		return nil, &StageError{Stage: stage, Status: status, Err: fmt.Errorf("fetch: %w", err)}
	}
	if !res.IsSuccess() {
		return nil, &StageError{Stage: stage, Status: res.StatusCode(), Err: errBadStatus}
	}
	doc, err := parseDocument(res)
	if err != nil {
		return nil, &StageError{Stage: stage, Status: res.StatusCode(), Err: fmt.Errorf("parse: %w", err)}
	}
	return doc, nil
}

func (s *Session) formState(stage Stage, doc *goquery.Document) (FormState, error) {
	state, ok := ExtractFormState(doc)
	if !ok {
		return FormState{}, &StageError{Stage: stage, Err: ErrMissingFormState}
	}
	return state, nil
}

// Navigate walks the receipt viewer from the QR code landing page to the
// products tab and returns the products tab document. Every stage posts the
// tokens of the page before it, so all requests go through the same session.
func (s *Session) Navigate(ctx context.Context, endpoints Endpoints, qrUrl string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "session:Navigate")
	defer span.End()

	endpoints = endpoints.withDefaults()

	fail := func(err error) (*goquery.Document, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.AddEvent("stage", withStage(StageLanding))
	res, err := s.Get(ctx, qrUrl)
	landing, err := s.document(StageLanding, res, err)
	if err != nil {
		return fail(err)
	}
	state, err := s.formState(StageLanding, landing)
	if err != nil {
		return fail(err)
	}

	span.AddEvent("stage", withStage(StageTabs))
	res, err = s.PostForm(ctx, endpoints.Danfe, state.Values(tabsTrigger))
	tabs, err := s.document(StageTabs, res, err)
	if err != nil {
		return fail(err)
	}
	state, err = s.formState(StageTabs, tabs)
	if err != nil {
		return fail(err)
	}

	span.AddEvent("stage", withStage(StageProducts))
	res, err = s.PostForm(ctx, endpoints.Abas, state.Values(productsTrigger))
	products, err := s.document(StageProducts, res, err)
	if err != nil {
		return fail(err)
	}
	return products, nil
}
