package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText returns the whitespace-collapsed text content of an HTML fragment.
// Fragments that fail to parse yield an empty string.
func PlainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}
