package scrape

import (
	"net/url"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

// TestExtractWithRules verifies per-field extraction, link companions for
// href-bearing matches, and field order with companions interleaved.
func TestExtractWithRules(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `
		<div class="row">
			<a class="title" href="/a/b">Hello</a>
			<span class="price">10</span>
		</div>
	`)
	item := doc.Find(".row")

	rules := &RuleSet{Fields: []FieldRule{
		{Name: "title", Selector: ".title"},
		{Name: "missing", Selector: ".nope"},
		{Name: "price", Selector: ".price"},
	}}

	rec := ExtractWithRules(item, rules, mustParseURL(t, "https://x.com/"))

	wantKeys := []string{"title", "title_link", "price"}
	if got := rec.Keys(); !reflect.DeepEqual(got, wantKeys) {
		t.Fatalf("keys: want %v got %v", wantKeys, got)
	}

	if v, _ := rec.Get("title"); v != "Hello" {
		t.Fatalf("title: got %#v", v)
	}
	if v, _ := rec.Get("title_link"); v != "https://x.com/a/b" {
		t.Fatalf("title_link: got %#v", v)
	}
	if v, _ := rec.Get("price"); v != "10" {
		t.Fatalf("price: got %#v", v)
	}
	if _, ok := rec.Get("missing"); ok {
		t.Fatal("missing field should produce no entry")
	}
}

// TestExtractWithRules_NoHref verifies fields matched on elements without an
// href never gain a link companion, and empty matched text still counts as a
// field.
func TestExtractWithRules_NoHref(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<div class="row"><span class="price"></span></div>`)
	item := doc.Find(".row")

	rec := ExtractWithRules(item, &RuleSet{Fields: []FieldRule{
		{Name: "price", Selector: ".price"},
	}}, nil)

	if _, ok := rec.Get("price_link"); ok {
		t.Fatal("unexpected price_link without href")
	}
	if v, ok := rec.Get("price"); !ok || v != "" {
		t.Fatalf("price: want empty string entry, got %#v ok=%v", v, ok)
	}
}

func TestExtractHeuristic(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `
		<div class="item">
			<h3>First heading</h3>
			<h2>Second heading</h2>
			<a href="/one">1</a>
			<a>no href</a>
			<a href="/two">2</a>
			<img src="/i.png">
			<img>
		</div>
	`)
	rec := ExtractHeuristic(doc.Find(".item"))

	if v, _ := rec.Get("title"); v != "First heading" {
		t.Fatalf("title: got %#v", v)
	}
	if v, _ := rec.Get("links"); !reflect.DeepEqual(v, []string{"/one", "/two"}) {
		t.Fatalf("links: got %#v", v)
	}
	if v, _ := rec.Get("images"); !reflect.DeepEqual(v, []string{"/i.png"}) {
		t.Fatalf("images: got %#v", v)
	}
	if _, ok := rec.Get("text"); !ok {
		t.Fatal("expected text field")
	}
}

// TestExtractHeuristic_TextLength verifies the rune-based length gate and
// truncation: over 200 runes is cut with an ellipsis, 11..200 runes is kept
// verbatim, and 10 runes or fewer yields no text field.
func TestExtractHeuristic_TextLength(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		text     string
		wantLen  int // runes in the extracted value, 0 means field absent
		ellipsis bool
	}{
		{"long", strings.Repeat("я", 250), 203, true},
		{"medium", strings.Repeat("z", 150), 150, false},
		{"short", "abcde", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			doc := parseDoc(t, `<div class="item"><p>`+tc.text+`</p></div>`)
			rec := ExtractHeuristic(doc.Find(".item"))

			v, ok := rec.Get("text")
			if tc.wantLen == 0 {
				if ok {
					t.Fatalf("expected no text field, got %#v", v)
				}
				return
			}
			if !ok {
				t.Fatal("expected text field")
			}
			got := v.(string)
			if n := utf8.RuneCountInString(got); n != tc.wantLen {
				t.Fatalf("text length: want %d runes got %d", tc.wantLen, n)
			}
			if tc.ellipsis != strings.HasSuffix(got, "...") {
				t.Fatalf("ellipsis: want %v in %q", tc.ellipsis, got)
			}
		})
	}
}

// TestExtractHeuristic_Empty verifies an item with nothing extractable yields
// an empty record.
func TestExtractHeuristic_Empty(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<div class="item"><span>hi</span></div>`)
	rec := ExtractHeuristic(doc.Find(".item"))
	if rec.Len() != 0 {
		t.Fatalf("expected empty record, got keys %v", rec.Keys())
	}
}

func TestResolveHref(t *testing.T) {
	t.Parallel()

	base := mustParseURL(t, "https://x.com/list/page")

	cases := []struct{ href, want string }{
		{"/a/b", "https://x.com/a/b"},
		{"item?id=3", "https://x.com/list/item?id=3"},
		{"https://other.example/z", "https://other.example/z"},
	}
	for _, tc := range cases {
		if got := ResolveHref(base, tc.href); got != tc.want {
			t.Fatalf("resolve %q: want %q got %q", tc.href, tc.want, got)
		}
	}

	if got := ResolveHref(nil, "/a"); got != "/a" {
		t.Fatalf("nil base: got %q", got)
	}
}
