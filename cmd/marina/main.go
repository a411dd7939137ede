package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/marina/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("marina", flag.ContinueOnError)
	configPath := fs.String("config", "", "override marina config path (optional)")
	prefsPath := fs.String("prefs", "", "override prefs path (optional)")
	refreshSeconds := fs.Int("refresh", 0, "auto refresh interval in seconds (optional, overrides refresh_seconds)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: marina [flags] [serve]\n\n")
		fmt.Fprintf(fs.Output(), "  (no command)  open the boat grid\n")
		fmt.Fprintf(fs.Output(), "  serve         serve the local catalog over HTTP\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath, PrefsPath: *prefsPath}
	if refresh := *refreshSeconds; refresh > 0 {
		opts.RefreshEvery = refresh
	}

	var err error
	switch cmd := fs.Arg(0); cmd {
	case "":
		err = app.Run(ctx, opts)
	case "serve":
		err = app.Serve(ctx, opts)
	default:
		fmt.Fprintf(os.Stderr, "marina: unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "marina: %v\n", err)
		return 1
	}
	return 0
}
