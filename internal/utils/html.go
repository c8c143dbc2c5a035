package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockElements = "p, div, tr, li, table, h1, h2, h3, h4, h5, h6, blockquote, pre"

// HTMLToPlainText renders an html mail body as text. Links keep only their label,
// images, scripts and styles are dropped and every block element ends a line.
func HTMLToPlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("head, script, style, img").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).Each(func(_ int, el *goquery.Selection) {
		el.AppendHtml("\n")
	})

	lines := strings.Split(doc.Find("body").Text(), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n"), nil
}
