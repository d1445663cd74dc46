// Command webextract fetches one or more pages of a website, extracts
// structured records from repeated elements, and saves them in several
// formats.
//
// Rule-driven extraction:
//
//	webextract -rules rules.json -pages 3 -delay 2s "https://example.com/products"
//
// Heuristic extraction (no rules):
//
//	webextract "https://news.ycombinator.com/"
//
// Persist records to a database alongside the file exports:
//
//	webextract -db-kind sqlite -db-dsn records.db "https://example.com/list"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"webextract/internal/export"
	_ "webextract/internal/export/xlsx"
	"webextract/internal/fetch"
	"webextract/internal/logging"
	"webextract/internal/metrics"
	"webextract/internal/metrics/datadog"
	"webextract/internal/scrape"
	"webextract/internal/storage"
	_ "webextract/internal/storage/mssql"
	_ "webextract/internal/storage/postgres"
	_ "webextract/internal/storage/sqlite"
)

// backendCloser is the minimal interface this command needs to manage a
// metrics backend.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are external seams for testability: unit tests inject fake writers
// and a fake metrics backend factory instead of spawning a process.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer

	BackendFactory func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error)
}

// runConfig holds the parsed flags and derived values for a run.
type runConfig struct {
	URL       string
	RulesPath string
	Pages     int
	Delay     time.Duration
	Timeout   time.Duration
	Formats   []string
	OutDir    string
	Name      string

	DBKind string
	DBDSN  string

	Datadog    bool
	DDTagsCSV  string
	FlushEvery time.Duration

	LogFile string
	Verbose bool
}

// main is intentionally small: it wires real dependencies and exits with a code.
func main() {
	code := run(context.Background(), os.Args[1:], deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		BackendFactory: func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error) {
			return datadog.NewBackend(ctx, datadog.Options{
				JobName:    jobName,
				Tags:       tags,
				FlushEvery: flushEvery,
			})
		},
	})
	os.Exit(code)
}

// run executes the extraction command and returns an exit code.
//
// Exit codes:
//   - 0: success, including a run that found nothing to save.
//   - 1: the run aborted with no records, or no requested export succeeded.
//   - 2: configuration/usage error.
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	logger := logging.New(logging.Options{
		Verbose:  cfg.Verbose,
		FilePath: cfg.LogFile,
	})
	defer logger.Sync()

	if cfg.Datadog {
		if d.BackendFactory == nil {
			fmt.Fprintln(d.Stderr, "internal error: BackendFactory is nil")
			return 2
		}
		tags := datadog.ParseTagsCSV(cfg.DDTagsCSV)
		backend, err := d.BackendFactory(ctx, "webextract", tags, cfg.FlushEvery)
		if err != nil {
			fmt.Fprintf(d.Stderr, "datadog backend init failed: %v\n", err)
			return 2
		}
		metrics.SetBackend(backend)
		defer func() {
			_ = backend.Close()
		}()
	}

	var rules *scrape.RuleSet
	if cfg.RulesPath != "" {
		rules, err = scrape.LoadRuleFile(cfg.RulesPath)
		if err != nil {
			fmt.Fprintf(d.Stderr, "load rules: %v\n", err)
			return 2
		}
	}

	driver := scrape.NewDriver(fetch.New(cfg.Timeout), logger)
	records, runErr := driver.Run(ctx, scrape.Job{
		URL:      cfg.URL,
		Rules:    rules,
		MaxPages: cfg.Pages,
		Delay:    cfg.Delay,
	})
	// A failed fetch has already been logged by the driver; whatever was
	// gathered before the failure is still exported below.

	if len(records) == 0 {
		fmt.Fprintln(d.Stdout, "no records found; nothing to save")
		if runErr != nil {
			return 1
		}
		return 0
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		fmt.Fprintf(d.Stderr, "create output directory: %v\n", err)
		return 2
	}

	exported := exportAll(cfg, records, logger, d.Stdout)

	if cfg.DBKind != "" {
		persistRecords(ctx, cfg, records, logger)
	}

	fmt.Fprintf(d.Stdout, "extracted %d records\n", len(records))

	if exported == 0 {
		return 1
	}
	return 0
}

// exportAll writes records in every requested format, skipping formats that
// are unavailable or fail; it returns how many formats succeeded.
func exportAll(cfg runConfig, records scrape.ResultSet, logger *zap.Logger, stdout io.Writer) int {
	exported := 0
	for _, format := range cfg.Formats {
		if !export.Available(format) {
			logger.Warn("export format unavailable, skipping",
				zap.String("format", format),
				zap.Strings("available", export.Formats()),
			)
			metrics.RecordExport(format, 0, fmt.Errorf("format unavailable"))
			continue
		}

		path := filepath.Join(cfg.OutDir, cfg.Name+"."+format)
		err := export.WriteFile(path, format, records)
		metrics.RecordExport(format, len(records), err)
		if err != nil {
			logger.Error("export failed, skipping format",
				zap.String("format", format),
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}

		logger.Info("export written",
			zap.String("format", format),
			zap.String("path", path),
			zap.Int("records", len(records)),
		)
		fmt.Fprintf(stdout, "saved %s\n", path)
		exported++
	}
	return exported
}

// persistRecords writes records to the configured database sink. Sink
// failures are logged and never abort the run; file exports have already
// happened by the time this runs.
func persistRecords(ctx context.Context, cfg runConfig, records scrape.ResultSet, logger *zap.Logger) {
	sink, err := storage.New(ctx, storage.Config{Kind: cfg.DBKind, DSN: cfg.DBDSN})
	if err != nil {
		logger.Error("storage sink init failed", zap.String("kind", cfg.DBKind), zap.Error(err))
		return
	}
	defer sink.Close()

	if err := sink.EnsureSchema(ctx); err != nil {
		logger.Error("storage schema setup failed", zap.String("kind", cfg.DBKind), zap.Error(err))
		return
	}

	fetchedAt := time.Now()
	rows := make([]storage.PageRecord, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			logger.Warn("skipping unencodable record", zap.Error(err))
			continue
		}
		rows = append(rows, storage.PageRecord{
			SourceURL: cfg.URL,
			FetchedAt: fetchedAt,
			Data:      string(data),
		})
	}

	n, err := sink.InsertRecords(ctx, rows)
	if err != nil {
		logger.Error("storage insert failed",
			zap.String("kind", cfg.DBKind),
			zap.Int64("inserted", n),
			zap.Error(err),
		)
		return
	}
	logger.Info("records persisted", zap.String("kind", cfg.DBKind), zap.Int64("rows", n))
}

// parseFlags parses command arguments into a validated runConfig.
//
// It returns an error for invalid or missing input and never exits the
// process; the caller decides the exit code.
func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("webextract", flag.ContinueOnError)

	// Capture help/usage text instead of writing to stderr directly.
	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)
	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage: %s [flags] <url>\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	var formatsCSV string
	fs.StringVar(&cfg.RulesPath, "rules", "", "Path to a JSON rule file; omit for heuristic extraction")
	fs.IntVar(&cfg.Pages, "pages", 1, "Number of pages to fetch")
	fs.DurationVar(&cfg.Delay, "delay", time.Second, "Minimum interval between page fetches")
	fs.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP timeout per request")
	fs.StringVar(&formatsCSV, "formats", "json,csv,xlsx", "Comma-separated export formats")
	fs.StringVar(&cfg.OutDir, "out", ".", "Directory for export files")
	fs.StringVar(&cfg.Name, "name", "parsed_data", "Base name for export files")
	fs.StringVar(&cfg.DBKind, "db-kind", "", "Optional database sink kind (sqlite, postgres, mssql)")
	fs.StringVar(&cfg.DBDSN, "db-dsn", "", "DSN for the database sink")
	fs.BoolVar(&cfg.Datadog, "dd", false, "Enable Datadog metrics")
	fs.StringVar(&cfg.DDTagsCSV, "dd-tags", "", "Extra Datadog tags CSV (e.g. env:prod,team:data)")
	fs.DurationVar(&cfg.FlushEvery, "metrics-flush", time.Minute, "Datadog flush interval")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Optional rotating log file path")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose (debug) logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if fs.NArg() < 1 {
		return runConfig{}, errors.New("missing required <url> argument")
	}
	if fs.NArg() > 1 {
		return runConfig{}, fmt.Errorf("unexpected extra arguments: %v", fs.Args()[1:])
	}
	cfg.URL = fs.Arg(0)

	if cfg.Pages < 1 {
		return runConfig{}, errors.New("-pages must be >= 1")
	}
	if cfg.Delay < 0 {
		return runConfig{}, errors.New("-delay must be >= 0")
	}
	if cfg.DBKind != "" && cfg.DBDSN == "" {
		return runConfig{}, errors.New("-db-kind requires -db-dsn")
	}

	for _, f := range strings.Split(formatsCSV, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			cfg.Formats = append(cfg.Formats, f)
		}
	}
	if len(cfg.Formats) == 0 {
		return runConfig{}, errors.New("-formats lists no formats")
	}

	return cfg, nil
}
