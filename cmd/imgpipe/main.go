package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/marcelocantos/imgpipe/internal/audit"
	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/cli"
	"github.com/marcelocantos/imgpipe/internal/config"
	"github.com/marcelocantos/imgpipe/internal/pipeline"
	"github.com/marcelocantos/imgpipe/internal/workspace"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		cli.RunHelp(nil, os.Stderr, nil)
		return 1
	}

	// Load config.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgpipe: config: %v\n", err)
		return 1
	}

	logger := cfg.NewLogger()
	pipeline.SetGlobalLogger(logger)

	// Set up the workspace every subcommand edits.
	ws := workspace.New(catalog.Default(), cfg.NewClient(logger))
	ws.SetLogger(logger)
	err = ws.Edit(func(b *pipeline.Builder) error {
		return cfg.ApplyDefaults(b.State())
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgpipe: %v\n", err)
		return 1
	}

	if cfg.Audit.Enabled {
		a, err := audit.NewLogger(cfg.Audit.Path)
		if err != nil {
			// Continue without audit logging.
			logger.WithError(err).Warn("Audit log unavailable")
		} else {
			ws.SetAudit(a)
		}
	}

	// Set up context with cancellation on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch os.Args[1] {
	case "--list":
		categoryFilter := ""
		args := os.Args[2:]
		for i := 0; i < len(args); i++ {
			if args[i] == "--category" && i+1 < len(args) {
				categoryFilter = args[i+1]
				i++
			}
		}
		return cli.RunList(ws.Catalog(), os.Stdout, categoryFilter)
	case "--run":
		opts, err := cli.ParseRunArgs(os.Args[2:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "imgpipe run: %v\n", err)
			return 1
		}
		opts.Workers = cfg.Engine.Workers()
		return cli.RunRecipe(ctx, ws, opts, os.Stdout, os.Stderr)
	case "--dot":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: imgpipe --dot <recipe>")
			return 1
		}
		return cli.RunDot(ws, os.Args[2], os.Stdout, os.Stderr)
	case "--mcp":
		return cli.RunMCP(ws, version, os.Stderr)
	case "--audit":
		return cli.RunAudit(os.Stdout, cfg.Audit.Path, os.Args[2:])
	case "--help":
		return cli.RunHelp(ws.Catalog(), os.Stdout, os.Args[2:])
	case "--version":
		fmt.Printf("imgpipe %s\n", version)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "imgpipe: unknown command %q\n", os.Args[1])
		cli.RunHelp(nil, os.Stderr, nil)
		return 1
	}
}
