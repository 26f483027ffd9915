package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, contents string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	require.NoError(t, err)
	return doc
}

func TestGetText(t *testing.T) {
	doc := parse(t, `<div id="a">Arroz <b>5kg</b><!-- c --></div>`)
	require.Equal(t, "Arroz 5kg", GetText(doc.Find("#a").Get(0)))
	require.Equal(t, "", GetText(nil))
}

func TestCleanText(t *testing.T) {
	doc := parse(t, "<span class=\"x\">\n\t Feijão 1kg  </span><span class=\"x\">other</span>")
	require.Equal(t, "Feijão 1kg", CleanText(doc.Find("span.x")))
	require.Equal(t, "", CleanText(doc.Find("span.missing")))
}

func TestFirstMatch(t *testing.T) {
	doc := parse(t, `<table><tr><td class="b">second</td><td class="c">third</td></tr></table>`)

	found := FirstMatch(doc.Selection, "td.a", "td.b", "td.c")
	require.Equal(t, 1, found.Length())
	require.Equal(t, "second", found.Text())

	missing := FirstMatch(doc.Selection, "td.x", "td.y")
	require.Equal(t, 0, missing.Length())
}

func TestNextSiblingMatching(t *testing.T) {
	doc := parse(t, `<div>
		<p id="start">s</p>
		<span>skip</span>
		<p class="hit">first</p>
		<p class="hit">second</p>
	</div>`)

	found := NextSiblingMatching(doc.Find("#start"), "p.hit")
	require.Equal(t, "first", found.Text())

	none := NextSiblingMatching(doc.Find("p.hit").Last(), "p.hit")
	require.Equal(t, 0, none.Length())
}
