// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package summary

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/marcelocantos/auditsum/internal/filter"
	"github.com/marcelocantos/auditsum/internal/logging"
	"github.com/marcelocantos/auditsum/internal/parse"
	"github.com/marcelocantos/auditsum/internal/stats"
)

// Options controls a summary run.
type Options struct {
	// Strict aborts the run on a token without '='.
	Strict bool
	// Workers > 1 parses lines in parallel. Aggregation stays sequential.
	Workers int
	// Filter, when set, drops records it does not match.
	Filter *filter.Filter
	Logger *zap.SugaredLogger
}

// Result describes what a run saw.
type Result struct {
	Lines         int
	Records       int // records folded into the table
	Filtered      int // records dropped by the filter
	SkippedTokens int
}

// LineError reports the line a parse or filter failure happened on.
type LineError struct {
	Line int // 1-based
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

type parsed struct {
	rec     *parse.Record
	skipped int
	keep    bool
	err     error
}

// Summarize parses every line and folds the records into a new table in
// input order. On error no table is returned.
func Summarize(ctx context.Context, lines []string, opts Options) (*stats.Table, Result, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	res := Result{Lines: len(lines)}

	results := make([]parsed, len(lines))
	p := parse.Parser{Strict: opts.Strict}
	work := func(i int) {
		results[i] = parseOne(p, opts.Filter, lines[i])
	}

	if opts.Workers > 1 && len(lines) > 1 {
		if err := parallel(ctx, len(lines), opts.Workers, work); err != nil {
			return nil, res, err
		}
	} else {
		for i := range lines {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, res, err
				}
			}
			work(i)
			// Sequential runs stop at the first failure.
			if results[i].err != nil {
				break
			}
		}
	}

	table := stats.NewTable()
	for i, r := range results {
		if r.err != nil {
			return nil, res, &LineError{Line: i + 1, Err: r.err}
		}
		if r.skipped > 0 {
			log.Debugw("skipped tokens without '='", "line", i+1, "count", r.skipped)
			res.SkippedTokens += r.skipped
		}
		if !r.keep {
			res.Filtered++
			continue
		}
		table.Add(r.rec)
		res.Records++
	}
	if res.SkippedTokens > 0 {
		log.Warnw("skipped malformed tokens", "tokens", res.SkippedTokens)
	}
	return table, res, nil
}

func parseOne(p parse.Parser, f *filter.Filter, line string) parsed {
	rec, skipped, err := p.Parse(line)
	if err != nil {
		return parsed{skipped: skipped, err: err}
	}
	keep := true
	if f != nil {
		if keep, err = f.Match(rec); err != nil {
			return parsed{skipped: skipped, err: err}
		}
	}
	return parsed{rec: rec, skipped: skipped, keep: keep}
}

// parallel runs work over [0, n) in contiguous chunks, one goroutine per
// chunk. Each index is written by exactly one goroutine.
func parallel(ctx context.Context, n, workers int, work func(int)) error {
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if (i-start)%1024 == 0 && ctx.Err() != nil {
					return
				}
				work(i)
			}
		}(start, end)
	}
	wg.Wait()
	return ctx.Err()
}
