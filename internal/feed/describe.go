package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DescriptionText extracts a plain-text rendering of a row's HTML description,
// for clients that want a summary without parsing markup themselves. Returns ""
// when the row carries no description or the markup cannot be parsed.
func DescriptionText(r Row) string {
	html := str(r["description_html"])
	if html == "" {
		html = str(r["description"])
	}
	if html == "" || !strings.Contains(html, "<") {
		return cleanText(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return cleanText(html)
	}
	return cleanText(doc.Text())
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
