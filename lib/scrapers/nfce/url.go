package nfce

import (
	"net/url"
	"strings"
)

const sefazHost = "nfe.sefaz.ba.gov.br"

// NormalizeUrl upgrades QR code urls pointing at the SEFAZ-BA portal to
// https, the portal does not answer on plain http. Everything after the
// scheme is kept byte for byte. Urls that fail to parse are returned as-is
// so that the http layer rejects them.
func NormalizeUrl(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !strings.EqualFold(parsed.Host, sefazHost) || parsed.Scheme == "https" {
		return raw
	}
	if parsed.Scheme == "" {
		// scheme-relative, "//host/path"
		return "https:" + raw
	}
	return "https" + raw[len(parsed.Scheme):]
}
