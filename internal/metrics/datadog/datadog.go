// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// The backend buffers measurements in memory, submits them on a periodic
// ticker, and flushes once more on Close. Short scrape runs therefore still
// get a final tail flush, while long multi-page runs show up as a time
// series instead of a single spike at exit.
//
// Concurrency model:
//   - pipeline goroutines call RecordHTTP/RecordExport at any time
//   - Flush snapshots and resets buffers under a mutex, then submits
//     out-of-lock
//   - the flush loop calls Flush periodically; Close stops the loop
//
// If the process is killed with SIGKILL/OOM, Close won't run; no backend can
// fix that.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric.
	// If empty, defaults to "webextract".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets these; unit tests
	// use them to avoid real network submission and nondeterministic
	// clocks/tickers.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal interface needed to submit metrics.
//
// The Datadog SDK exposes a concrete *datadogV2.MetricsApi, which cannot be
// stubbed without real HTTP. Depending on this tiny private interface keeps
// the backend testable with a fake submitter.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	// HTTP fetch metrics, keyed by status code ("0" = no response).
	httpReqCounts map[string]float64
	httpErrCounts map[string]float64
	httpDur       map[string][]float64
	httpBytes     map[string][]float64

	// Export metrics, keyed by format.
	exportCounts    map[string]float64
	exportErrCounts map[string]float64
	exportRecords   map[string]float64
}

// NewBackend constructs a Datadog backend using the official client.
//
// Credentials come from the standard DD_API_KEY/DD_APP_KEY environment as
// handled by dd.NewDefaultContext. Network errors surface from Flush, not
// from construction.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "webextract"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		submitter = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),

		baseTags: baseTags,

		now:       nowFn,
		newTicker: newTicker,

		httpReqCounts: make(map[string]float64),
		httpErrCounts: make(map[string]float64),
		httpDur:       make(map[string][]float64),
		httpBytes:     make(map[string][]float64),

		exportCounts:    make(map[string]float64),
		exportErrCounts: make(map[string]float64),
		exportRecords:   make(map[string]float64),
	}

	go b.loop()
	return b, nil
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush.
// Close must be called at most once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// RecordHTTP implements metrics.Backend.
func (b *Backend) RecordHTTP(status int, err error, duration time.Duration, sizeBytes int64) {
	key := strconv.Itoa(status)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.httpReqCounts[key]++
	if err != nil {
		b.httpErrCounts[key]++
	}
	if duration >= 0 {
		b.httpDur[key] = append(b.httpDur[key], duration.Seconds())
	}
	if sizeBytes >= 0 {
		b.httpBytes[key] = append(b.httpBytes[key], float64(sizeBytes))
	}
}

// RecordExport implements metrics.Backend.
func (b *Backend) RecordExport(format string, records int, err error) {
	if format == "" {
		format = "unknown"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.exportCounts[format]++
	if err != nil {
		b.exportErrCounts[format]++
	}
	if records > 0 {
		b.exportRecords[format] += float64(records)
	}
}

// snapshot is the detached buffered state used to build one flush payload.
// Flush must reset buffers under a lock but submit out-of-lock; snapshot
// separates collect+reset from payload building+submission.
type snapshot struct {
	httpReqCounts map[string]float64
	httpErrCounts map[string]float64
	httpDur       map[string][]float64
	httpBytes     map[string][]float64

	exportCounts    map[string]float64
	exportErrCounts map[string]float64
	exportRecords   map[string]float64
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		httpReqCounts: b.httpReqCounts,
		httpErrCounts: b.httpErrCounts,
		httpDur:       b.httpDur,
		httpBytes:     b.httpBytes,

		exportCounts:    b.exportCounts,
		exportErrCounts: b.exportErrCounts,
		exportRecords:   b.exportRecords,
	}

	b.httpReqCounts = make(map[string]float64)
	b.httpErrCounts = make(map[string]float64)
	b.httpDur = make(map[string][]float64)
	b.httpBytes = make(map[string][]float64)

	b.exportCounts = make(map[string]float64)
	b.exportErrCounts = make(map[string]float64)
	b.exportRecords = make(map[string]float64)

	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.httpReqCounts) == 0 &&
		len(s.httpErrCounts) == 0 &&
		len(s.httpDur) == 0 &&
		len(s.httpBytes) == 0 &&
		len(s.exportCounts) == 0 &&
		len(s.exportErrCounts) == 0 &&
		len(s.exportRecords) == 0
}

// Flush submits buffered metrics to Datadog and resets local buffers.
//
// Buffers are reset even when submission fails, so a slow or unreachable
// intake never blocks the scrape loop. Returns nil when there is nothing to
// submit.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	series := b.buildSeries(snap, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries constructs Datadog series for a snapshot at a fixed timestamp.
// It is pure (no locks, no network, no clocks), which keeps the naming and
// tagging contract unit-testable.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, 16)

	for status, v := range s.httpReqCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "status:"+status)
		series = append(series, countSeries("webextract.http.requests.total", v, tags, nowUnix))
	}
	for status, v := range s.httpErrCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "status:"+status)
		series = append(series, countSeries("webextract.http.errors.total", v, tags, nowUnix))
	}

	for status, samples := range s.httpDur {
		tags := withTags(b.baseTags, "status:"+status)
		addPercentiles(&series, "webextract.http.request_duration_seconds", samples, tags, nowUnix)
	}
	for status, samples := range s.httpBytes {
		tags := withTags(b.baseTags, "status:"+status)
		addPercentiles(&series, "webextract.http.download_bytes", samples, tags, nowUnix)
	}

	for format, v := range s.exportCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "format:"+format)
		series = append(series, countSeries("webextract.export.total", v, tags, nowUnix))
	}
	for format, v := range s.exportErrCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "format:"+format)
		series = append(series, countSeries("webextract.export.errors.total", v, tags, nowUnix))
	}
	for format, v := range s.exportRecords {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "format:"+format)
		series = append(series, countSeries("webextract.export.records.total", v, tags, nowUnix))
	}

	return series
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

// addPercentiles appends percentile gauges for a sample set. It sorts a copy
// of samples and does nothing when the set is empty.
func addPercentiles(series *[]datadogV2.MetricSeries, metricPrefix string, samples []float64, tags []string, nowUnix int64) {
	if len(samples) == 0 {
		return
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	*series = append(*series, gaugeSeries(metricPrefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".max", cp[len(cp)-1], tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".samples", float64(len(cp)), tags, nowUnix))
}

// percentileNearestRank returns the nearest-rank percentile of a sorted
// sample set.
func percentileNearestRank(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted)) + 0.5)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// ParseTagsCSV splits a comma-separated tag list, trimming whitespace and
// dropping empty entries.
func ParseTagsCSV(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(csv, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func withTags(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out
}
