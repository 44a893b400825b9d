package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/marcelocantos/auditsum/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Set up context with cancellation on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := os.Args[1:]
	if len(args) == 0 {
		return cli.RunSummarize(ctx, nil, os.Stdin, os.Stdout, os.Stderr)
	}

	switch args[0] {
	case "--mcp":
		return cli.RunMCP(ctx, version, args[1:], os.Stdin, os.Stdout, os.Stderr)
	case "--history":
		return cli.RunHistory(args[1:], os.Stdout, os.Stderr)
	case "--help", "-h":
		return cli.RunHelp(os.Stdout)
	case "--version":
		fmt.Printf("auditsum %s\n", version)
		return 0
	default:
		// Everything else is a summary run.
		return cli.RunSummarize(ctx, args, os.Stdin, os.Stdout, os.Stderr)
	}
}
