package scrape

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	// headingSelector matches any heading level; the first match in document
	// order becomes the heuristic title.
	headingSelector = "h1,h2,h3,h4,h5,h6"

	// Heuristic text is kept only when longer than minTextLen runes and is
	// truncated to maxTextLen runes with a trailing ellipsis.
	minTextLen = 10
	maxTextLen = 200
)

// ExtractWithRules extracts one record from item using the rule set's field
// selectors, evaluated relative to item.
//
// For each field, the first descendant matching the selector contributes its
// trimmed text. When that element carries a non-empty href attribute, a
// companion "<name>_link" field follows immediately, holding the href
// resolved against base. Fields with no match produce no entry at all.
func ExtractWithRules(item *goquery.Selection, rules *RuleSet, base *url.URL) *Record {
	rec := NewRecord()

	for _, f := range rules.Fields {
		sel := item.Find(f.Selector).First()
		if sel.Length() == 0 {
			continue
		}
		rec.Set(f.Name, strings.TrimSpace(sel.Text()))

		if href, ok := sel.Attr("href"); ok && href != "" {
			rec.Set(f.Name+"_link", ResolveHref(base, href))
		}
	}
	return rec
}

// ExtractHeuristic extracts a best-effort record from item without rules:
// the first heading as title, every anchor href as links, every image src as
// images, and the item's trimmed text when it is long enough to be
// meaningful. An item yielding none of these produces an empty record, which
// the caller drops.
func ExtractHeuristic(item *goquery.Selection) *Record {
	rec := NewRecord()

	if h := item.Find(headingSelector).First(); h.Length() > 0 {
		rec.Set("title", strings.TrimSpace(h.Text()))
	}

	var links []string
	item.Find("a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})
	if len(links) > 0 {
		rec.Set("links", links)
	}

	var images []string
	item.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && src != "" {
			images = append(images, src)
		}
	})
	if len(images) > 0 {
		rec.Set("images", images)
	}

	if text := strings.TrimSpace(item.Text()); utf8.RuneCountInString(text) > minTextLen {
		rec.Set("text", truncateText(text, maxTextLen))
	}

	return rec
}

// truncateText shortens s to max runes, appending an ellipsis marker when
// anything was cut. Rune counting keeps multi-byte text intact.
func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// ResolveHref resolves href against base, returning an absolute URL string.
// If href is invalid or base is nil, href is returned unchanged.
func ResolveHref(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
