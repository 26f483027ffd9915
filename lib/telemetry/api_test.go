package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedReport struct {
	kind   string
	id     string
	params []any
}

type recordingAPI struct {
	reports []recordedReport
}

func (r *recordingAPI) ReportBroken(id string, params ...any) {
	r.reports = append(r.reports, recordedReport{kind: "broken", id: id, params: params})
}

func (r *recordingAPI) ReportWarning(id string, params ...any) {
	r.reports = append(r.reports, recordedReport{kind: "warning", id: id, params: params})
}

func (r *recordingAPI) ReportDebug(msg string, params ...any) {
	r.reports = append(r.reports, recordedReport{kind: "debug", id: msg, params: params})
}

func TestScopedAPI(t *testing.T) {
	inner := &recordingAPI{}
	scoped := NewScopedAPI("nfce_scraper", inner)

	scoped.ReportBroken("extract.landing", "boom")
	scoped.ReportWarning("extract.tabs")
	scoped.ReportDebug("stage done", 1, 2)

	require.Len(t, inner.reports, 3)
	require.Equal(t, "broken", inner.reports[0].kind)
	require.Equal(t, "nfce_scraper: extract.landing", inner.reports[0].id)
	require.Equal(t, []any{"boom"}, inner.reports[0].params)
	require.Equal(t, "nfce_scraper: extract.tabs", inner.reports[1].id)
	require.Equal(t, "nfce_scraper: stage done", inner.reports[2].id)
	require.Equal(t, []any{1, 2}, inner.reports[2].params)
}

func TestSlogAPIFormatParams(t *testing.T) {
	out := []any{"id", "x"}
	SlogAPI{}.formatParams(&out, []any{"a", 2})
	require.Equal(t, []any{"id", "x", "params.0", "a", "params.1", 2}, out)
}
