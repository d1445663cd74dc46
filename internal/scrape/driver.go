package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fetcher retrieves the HTML of one page. Implementations must surface
// transport errors and non-2xx statuses as a non-nil error.
type Fetcher interface {
	Get(ctx context.Context, url string) (string, error)
}

// Job describes one extraction run.
type Job struct {
	// URL is the first page; later pages derive from it via PageURL.
	URL string

	// Rules, when nil, switches the run to heuristic extraction.
	Rules *RuleSet

	// MaxPages caps the number of pages fetched. Values below 1 mean 1.
	MaxPages int

	// Delay is the minimum interval between page fetches. Zero disables
	// pacing.
	Delay time.Duration
}

// Driver runs the paginated fetch-and-extract loop.
//
// Pages are processed strictly in sequence; the only suspension point is the
// inter-page pacing wait. A failed fetch aborts the run and whatever records
// were already gathered are returned alongside the error.
type Driver struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewDriver creates a Driver. A nil logger is replaced with a no-op one.
func NewDriver(fetcher Fetcher, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{fetcher: fetcher, logger: logger}
}

// Run fetches up to job.MaxPages pages and extracts records from each.
//
// Extraction mode follows job.Rules: with rules, containers come from the
// rule set's items selector and fields from its selectors; without rules,
// containers come from LocateItems and fields from ExtractHeuristic. Records
// that end up empty are dropped.
//
// On a fetch or parse failure the run stops and the partial result set is
// returned together with the error; earlier pages are never discarded.
func (d *Driver) Run(ctx context.Context, job Job) (ResultSet, error) {
	if job.MaxPages < 1 {
		job.MaxPages = 1
	}

	// Burst 1 lets the first page through immediately; every later page
	// waits out the configured delay.
	limiter := rate.NewLimiter(rate.Every(job.Delay), 1)

	// Hrefs resolve against the run's base URL, not the current page URL.
	base, err := url.Parse(job.URL)
	if err != nil {
		base = nil
	}

	var results ResultSet

	for page := 1; page <= job.MaxPages; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("wait before page %d: %w", page, err)
		}

		pageURL := PageURL(job.URL, page)
		d.logger.Info("fetching page",
			zap.Int("page", page),
			zap.String("url", pageURL),
		)

		html, err := d.fetcher.Get(ctx, pageURL)
		if err != nil {
			d.logger.Error("fetch failed, keeping partial results",
				zap.Int("page", page),
				zap.String("url", pageURL),
				zap.Int("records", len(results)),
				zap.Error(err),
			)
			return results, fmt.Errorf("fetch page %d: %w", page, err)
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			d.logger.Error("parse failed, keeping partial results",
				zap.Int("page", page),
				zap.String("url", pageURL),
				zap.Error(err),
			)
			return results, fmt.Errorf("parse page %d: %w", page, err)
		}

		before := len(results)
		results = append(results, extractPage(doc, job.Rules, base)...)

		d.logger.Info("page extracted",
			zap.Int("page", page),
			zap.Int("page_records", len(results)-before),
			zap.Int("total_records", len(results)),
		)
	}

	return results, nil
}

// extractPage locates record containers in doc and extracts one record per
// container, skipping containers that yield no fields.
func extractPage(doc *goquery.Document, rules *RuleSet, base *url.URL) ResultSet {
	var items *goquery.Selection
	if rules == nil {
		items = LocateItems(doc)
	} else {
		items = doc.Find(rules.ContainerSelector())
	}

	var records ResultSet
	items.Each(func(_ int, item *goquery.Selection) {
		var rec *Record
		if rules == nil {
			rec = ExtractHeuristic(item)
		} else {
			rec = ExtractWithRules(item, rules, base)
		}
		if rec.Len() == 0 {
			return
		}
		records = append(records, rec)
	})
	return records
}

// PageURL returns the URL for a 1-based page number. Page 1 is the base URL
// unchanged; later pages append a page query parameter, using "&" when the
// base already carries a query string.
//
// Known limitation: a page parameter already present in the base URL is not
// deduplicated, so such input yields two page parameters on pages after the
// first.
func PageURL(baseURL string, page int) string {
	if page <= 1 {
		return baseURL
	}
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", baseURL, sep, page)
}
