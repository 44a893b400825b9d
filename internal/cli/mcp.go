package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/marcelocantos/auditsum/internal/mcpserver"
	"github.com/marcelocantos/auditsum/internal/report"
)

// RunMCP handles auditsum --mcp: serve the summarizer tool over stdio until
// the client disconnects or ctx is cancelled. Config settings become the
// tool's argument defaults.
func RunMCP(ctx context.Context, version string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("auditsum --mcp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file")
	logLevel := fs.String("log-level", "", "log level")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "auditsum: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	log, err := newLogger(stderr, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "auditsum: %v\n", err)
		return 1
	}
	defer log.Sync()

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		fmt.Fprintf(stderr, "auditsum: %v\n", err)
		return 1
	}

	srv := mcpserver.New(mcpserver.Defaults{
		Format:  format,
		Strict:  cfg.Strict,
		Filter:  cfg.Filter,
		Workers: cfg.Workers,
	}, log, openHistory(cfg, log))

	log.Infow("serving MCP on stdio", "tool", mcpserver.ToolName)
	if err := srv.Serve(ctx, version, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "auditsum: mcp: %v\n", err)
		return 1
	}
	return 0
}
