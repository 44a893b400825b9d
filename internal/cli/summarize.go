package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marcelocantos/auditsum/internal/config"
	"github.com/marcelocantos/auditsum/internal/filter"
	"github.com/marcelocantos/auditsum/internal/input"
	"github.com/marcelocantos/auditsum/internal/report"
	"github.com/marcelocantos/auditsum/internal/runlog"
	"github.com/marcelocantos/auditsum/internal/stats"
	"github.com/marcelocantos/auditsum/internal/summary"
)

// summarizeFlags holds the command-line settings. Only flags that were
// actually given override the config file.
type summarizeFlags struct {
	fs          *flag.FlagSet
	format      string
	strict      bool
	inputFormat string
	filter      string
	workers     int
	configPath  string
	logLevel    string
}

func newSummarizeFlags(stderr io.Writer) *summarizeFlags {
	f := &summarizeFlags{fs: flag.NewFlagSet("auditsum", flag.ContinueOnError)}
	f.fs.SetOutput(stderr)
	f.fs.Usage = func() { printUsage(stderr) }
	f.fs.StringVar(&f.format, "format", "", "report format: yaml or json")
	f.fs.StringVar(&f.format, "f", "", "shorthand for -format")
	f.fs.BoolVar(&f.strict, "strict", false, "fail on tokens without '='")
	f.fs.StringVar(&f.inputFormat, "input-format", "", "input format: raw, journal or auto")
	f.fs.StringVar(&f.filter, "filter", "", "Starlark expression selecting records")
	f.fs.IntVar(&f.workers, "workers", 0, "parse workers")
	f.fs.StringVar(&f.configPath, "config", "", "config file")
	f.fs.StringVar(&f.logLevel, "log-level", "", "log level")
	return f
}

// apply copies explicitly set flags onto cfg.
func (f *summarizeFlags) apply(cfg *config.Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "format", "f":
			cfg.Format = f.format
		case "strict":
			cfg.Strict = f.strict
		case "input-format":
			cfg.Input.Format = f.inputFormat
		case "filter":
			cfg.Filter = f.filter
		case "workers":
			cfg.Workers = f.workers
		case "log-level":
			cfg.Log.Level = f.logLevel
		}
	})
}

// RunSummarize handles the default command: summarize audit input from the
// given files (or stdin) and write the frequency table to stdout.
func RunSummarize(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := newSummarizeFlags(stderr)
	if err := flags.fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "auditsum: %v\n", err)
		return 1
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "auditsum: %v\n", err)
		return 1
	}

	log, err := newLogger(stderr, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "auditsum: %v\n", err)
		return 1
	}
	defer log.Sync()

	paths := flags.fs.Args()
	if len(paths) == 0 {
		paths = []string{input.Stdin}
	}

	start := time.Now()
	entry := runlog.Entry{
		Source: strings.Join(paths, ","),
		Format: cfg.Format,
		Strict: cfg.Strict,
		Filter: cfg.Filter,
	}
	table, err := summarize(ctx, cfg, paths, stdin, log, &entry)
	if err == nil {
		entry.Subjects = table.Len()
		err = writeReport(stdout, table, cfg.Format)
	}

	exitCode := 0
	if err != nil {
		fmt.Fprintf(stderr, "auditsum: %v\n", err)
		exitCode = 1
		entry.Error = err.Error()
	}
	entry.ExitCode = exitCode
	logRun(openHistory(cfg, log), log, entry, time.Since(start))
	return exitCode
}

// summarize loads and folds each input in order into one table.
func summarize(ctx context.Context, cfg *config.Config, paths []string, stdin io.Reader, log *zap.SugaredLogger, entry *runlog.Entry) (*stats.Table, error) {
	inFormat, err := input.ParseFormat(cfg.Input.Format)
	if err != nil {
		return nil, err
	}
	entry.InputFormat = inFormat.String()

	opts := summary.Options{Strict: cfg.Strict, Workers: cfg.Workers, Logger: log}
	if cfg.Filter != "" {
		if opts.Filter, err = filter.Compile(cfg.Filter); err != nil {
			return nil, err
		}
	}

	// Every input is read before any parsing starts.
	docs := make([]*input.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := input.Load(ctx, path, stdin, inFormat)
		if err != nil {
			return nil, err
		}
		if doc.Dropped > 0 {
			log.Warnw("dropped journal lines without MESSAGE", "source", doc.Source, "lines", doc.Dropped)
		}
		docs = append(docs, doc)
	}
	if len(docs) == 1 {
		entry.InputFormat = docs[0].Format.String()
	}

	table := stats.NewTable()
	for _, doc := range docs {
		t, res, err := summary.Summarize(ctx, doc.Lines, opts)
		entry.Lines += res.Lines
		entry.Records += res.Records
		entry.Filtered += res.Filtered
		entry.SkippedTokens += res.SkippedTokens
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sourceName(doc.Source), err)
		}
		log.Debugw("summarized input", "source", doc.Source, "format", doc.Format.String(), "lines", res.Lines, "records", res.Records)
		table.Merge(t)
	}
	return table, nil
}

func writeReport(w io.Writer, t *stats.Table, format string) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	return report.Write(w, t, f)
}

func sourceName(path string) string {
	if path == input.Stdin {
		return "stdin"
	}
	return path
}

func logRun(history *runlog.Logger, log *zap.SugaredLogger, e runlog.Entry, d time.Duration) {
	if history == nil {
		return
	}
	if _, err := history.Log(e, d); err != nil {
		log.Warnw("run history write failed", "error", err)
	}
}
