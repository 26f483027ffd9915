package nfce

import (
	"nfce-backend/lib/htmlutil"
	"nfce-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

type Product struct {
	Name string `json:"nome"`
	Ean  string `json:"ean"`
}

const (
	selectorProductHeader = "table.toggle"
	selectorProductDetail = "table.toggable"
	selectorDetailRow     = "tr"
	selectorDetailLabel   = "label"
	selectorDetailValue   = "span.linha"

	eanLabel = "código ean comercial"
)

// a header whose description cell lacks the multiline span has no name
const selectorProductName = "td.fixo-prod-serv-descricao span.multiline"

// detailTable finds the detail block of a product header. The viewer links
// the two only by position: the detail is the nearest following sibling
// table marked toggable.
func detailTable(header *goquery.Selection) *goquery.Selection {
	return htmlutil.NextSiblingMatching(header, selectorProductDetail)
}

func productName(header *goquery.Selection) string {
	return htmlutil.CleanText(htmlutil.FirstMatch(header, selectorProductName))
}

// productEan pairs labels with values row by row, by position. Rows with
// more labels than values (or the opposite) only pair up the shorter list.
func productEan(detail *goquery.Selection) string {
	ean := ""
	detail.Find(selectorDetailRow).Each(func(_ int, row *goquery.Selection) {
		labels := row.Find(selectorDetailLabel)
		values := row.Find(selectorDetailValue)
		n := min(labels.Length(), values.Length())
		for i := 0; i < n; i++ {
			if !textutil.ContainsFold(htmlutil.CleanText(labels.Eq(i)), eanLabel) {
				continue
			}
			ean = htmlutil.CleanText(values.Eq(i))
		}
	})
	return ean
}

// ParseProducts lists the products of the products tab in document order.
// Headers missing either a name or an EAN are skipped entirely. The result
// is never nil.
func ParseProducts(doc *goquery.Document) []Product {
	products := []Product{}
	doc.Find(selectorProductHeader).Each(func(_ int, header *goquery.Selection) {
		name := productName(header)
		if name == "" {
			return
		}
		ean := productEan(detailTable(header))
		if ean == "" {
			return
		}
		products = append(products, Product{Name: name, Ean: ean})
	})
	return products
}
