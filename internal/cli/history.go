package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/marcelocantos/auditsum/internal/runlog"
)

// RunHistory handles auditsum --history.
func RunHistory(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("auditsum --history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	args = fs.Args()
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: auditsum --history <verify|show [N]>")
		return 1
	}
	switch args[0] {
	case "verify", "show", "tail":
	default:
		fmt.Fprintf(stderr, "auditsum --history: unknown subcommand %q\n", args[0])
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "auditsum: %v\n", err)
		return 1
	}
	path := cfg.History.Path
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(stdout, "no recorded runs")
		return 0
	}

	switch args[0] {
	case "verify":
		if err := runlog.Verify(path); err != nil {
			fmt.Fprintf(stderr, "history verification FAILED: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "run history integrity verified")
		return 0

	case "show", "tail":
		n := 20
		if len(args) > 1 {
			if n, err = strconv.Atoi(args[1]); err != nil || n <= 0 {
				fmt.Fprintf(stderr, "auditsum --history: bad count %q\n", args[1])
				return 1
			}
		}
		entries, err := runlog.Tail(path, n)
		if err != nil {
			fmt.Fprintf(stderr, "auditsum --history: %v\n", err)
			return 1
		}
		if len(entries) == 0 {
			fmt.Fprintln(stdout, "no recorded runs")
			return 0
		}
		for _, e := range entries {
			data, _ := json.MarshalIndent(e, "", "  ")
			fmt.Fprintf(stdout, "%s\n", data)
		}
	}
	return 0
}
