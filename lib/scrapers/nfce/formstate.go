package nfce

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

const (
	fieldViewState       = "__VIEWSTATE"
	fieldEventValidation = "__EVENTVALIDATION"
)

// FormState holds the hidden WebForms tokens a page must be posted back with.
type FormState struct {
	ViewState       string
	EventValidation string
}

func hiddenValue(doc *goquery.Document, name string) string {
	return doc.Find(fmt.Sprintf(`input[name="%s"]`, name)).First().AttrOr("value", "")
}

// ExtractFormState reads the view-state and event-validation tokens of doc.
// It reports false unless both are present and non-empty, a page without
// them simply did not render the postback form.
func ExtractFormState(doc *goquery.Document) (FormState, bool) {
	state := FormState{
		ViewState:       hiddenValue(doc, fieldViewState),
		EventValidation: hiddenValue(doc, fieldEventValidation),
	}
	if state.ViewState == "" || state.EventValidation == "" {
		return FormState{}, false
	}
	return state, true
}

// Values renders the tokens as form fields, extra carries the fields of the
// control that triggers the postback.
func (s FormState) Values(extra url.Values) url.Values {
	values := url.Values{
		fieldViewState:       {s.ViewState},
		fieldEventValidation: {s.EventValidation},
	}
	for k, v := range extra {
		values[k] = v
	}
	return values
}
