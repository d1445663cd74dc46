package scrape

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// TestLocateItems_CandidateOrder verifies the first candidate selector with
// more than one match wins, even when a later candidate matches more
// elements.
func TestLocateItems_CandidateOrder(t *testing.T) {
	t.Parallel()

	html := `
		<div class="product">P1</div>
		<div class="product">P2</div>
		<div class="product">P3</div>
		<article>A1</article>
		<article>A2</article>
		<article>A3</article>
		<article>A4</article>
		<article>A5</article>
	`
	items := LocateItems(parseDoc(t, html))
	if items.Length() != 3 {
		t.Fatalf("expected 3 product divs, got %d", items.Length())
	}
	items.Each(func(_ int, s *goquery.Selection) {
		if !s.HasClass("product") {
			t.Fatalf("expected product class, got %q", s.AttrOr("class", ""))
		}
	})
}

// TestLocateItems_SingleMatchSkipped verifies a candidate with exactly one
// match is treated as a wrapper and skipped in favor of a later candidate.
func TestLocateItems_SingleMatchSkipped(t *testing.T) {
	t.Parallel()

	html := `
		<div class="item-wrapper">
			<li>one</li>
			<li>two</li>
			<li>three</li>
		</div>
	`
	items := LocateItems(parseDoc(t, html))
	if items.Length() != 3 {
		t.Fatalf("expected 3 li elements, got %d", items.Length())
	}
	if goquery.NodeName(items.First()) != "li" {
		t.Fatalf("expected li, got %s", goquery.NodeName(items.First()))
	}
}

// TestLocateItems_DivFallback verifies that with no plausible candidate the
// locator returns all divs truncated to ten.
func TestLocateItems_DivFallback(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteString("<div>d</div>")
	}
	items := LocateItems(parseDoc(t, sb.String()))
	if items.Length() != 10 {
		t.Fatalf("expected fallback of 10 divs, got %d", items.Length())
	}

	// Fewer than ten divs are returned as-is.
	items = LocateItems(parseDoc(t, `<div class="item">only</div>`))
	if items.Length() != 1 {
		t.Fatalf("expected 1 div, got %d", items.Length())
	}
}
