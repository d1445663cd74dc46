package scrape

import (
	"github.com/PuerkitoBio/goquery"
)

// itemCandidates are common "repeated record" markup conventions, tried in
// priority order. The first selector matching more than one element wins:
// a single match is assumed to be a wrapper rather than a record list.
var itemCandidates = []string{
	`div[class*="item"]`,
	`div[class*="product"]`,
	`div[class*="card"]`,
	`div[class*="post"]`,
	`article`,
	`li`,
	`.item`,
	`.product`,
	`.card`,
	`.post`,
}

// fallbackDivLimit caps the fallback selection when no candidate matches.
const fallbackDivLimit = 10

// LocateItems finds the most plausible record containers in a document when
// no explicit items selector is supplied.
//
// If no candidate selector matches more than one element, it falls back to
// all div elements in document order, truncated to the first ten.
func LocateItems(doc *goquery.Document) *goquery.Selection {
	for _, selector := range itemCandidates {
		if sel := doc.Find(selector); sel.Length() > 1 {
			return sel
		}
	}

	divs := doc.Find("div")
	if divs.Length() > fallbackDivLimit {
		return divs.Slice(0, fallbackDivLimit)
	}
	return divs
}
