package cli

import (
	"fmt"
	"io"

	"github.com/marcelocantos/auditsum/internal/config"
)

// RunHelp shows general usage.
func RunHelp(w io.Writer) int {
	printUsage(w)
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "auditsum: summarize Linux audit logs into per-subject frequency tables")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  auditsum [flags] [FILE|- ...]       summarize files (default stdin)")
	fmt.Fprintln(w, "  auditsum --history <verify|show [N]> run history operations")
	fmt.Fprintln(w, "  auditsum --mcp                       serve the summarizer as an MCP tool on stdio")
	fmt.Fprintln(w, "  auditsum --help                      show help")
	fmt.Fprintln(w, "  auditsum --version                   show version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	fmt.Fprintln(w, "  -f, --format yaml|json               report format (default yaml)")
	fmt.Fprintln(w, "  --strict                             fail on tokens without '='")
	fmt.Fprintln(w, "  --input-format raw|journal|auto      input format (default raw)")
	fmt.Fprintln(w, "  --filter EXPR                        Starlark expression selecting records")
	fmt.Fprintln(w, "  --workers N                          parse with N workers")
	fmt.Fprintln(w, "  --config PATH                        config file")
	fmt.Fprintln(w, "  --log-level LEVEL                    debug, info, warn or error (default warn)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "records are grouped by file, exe, comm or hash (first present), else UNKNOWN.")
	fmt.Fprintln(w, "gzip and zstd input is decompressed automatically.")
	fmt.Fprintf(w, "config: %s\n", config.ConfigPath())
}
