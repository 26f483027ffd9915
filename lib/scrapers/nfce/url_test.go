package nfce

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeUrl(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "http upgraded",
			input:    "http://nfe.sefaz.ba.gov.br/x?y=1",
			expected: "https://nfe.sefaz.ba.gov.br/x?y=1",
		},
		{
			name:     "https left alone",
			input:    "https://nfe.sefaz.ba.gov.br/x?y=1",
			expected: "https://nfe.sefaz.ba.gov.br/x?y=1",
		},
		{
			name:     "other host",
			input:    "http://other.example.com/x",
			expected: "http://other.example.com/x",
		},
		{
			name:     "host case",
			input:    "http://NFE.Sefaz.BA.gov.br/servicos/nfce/qrcode.aspx?p=29240612345678000190650010000123451234567890|2|1|1|ABCDEF",
			expected: "https://NFE.Sefaz.BA.gov.br/servicos/nfce/qrcode.aspx?p=29240612345678000190650010000123451234567890|2|1|1|ABCDEF",
		},
		{
			name:     "uppercase scheme",
			input:    "HTTP://nfe.sefaz.ba.gov.br/x#frag",
			expected: "https://nfe.sefaz.ba.gov.br/x#frag",
		},
		{
			name:     "scheme relative",
			input:    "//nfe.sefaz.ba.gov.br/x?y=1",
			expected: "https://nfe.sefaz.ba.gov.br/x?y=1",
		},
		{
			name:     "explicit port is another host",
			input:    "http://nfe.sefaz.ba.gov.br:8080/x",
			expected: "http://nfe.sefaz.ba.gov.br:8080/x",
		},
		{
			name:     "query escapes preserved",
			input:    "http://nfe.sefaz.ba.gov.br/x?p=a%7Cb%20c",
			expected: "https://nfe.sefaz.ba.gov.br/x?p=a%7Cb%20c",
		},
		{
			name:     "malformed escape",
			input:    "http://nfe.sefaz.ba.gov.br/%zz",
			expected: "http://nfe.sefaz.ba.gov.br/%zz",
		},
		{
			name:     "missing scheme",
			input:    "://broken",
			expected: "://broken",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, NormalizeUrl(test.input))
		})
	}
}
