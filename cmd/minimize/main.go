// Package main is the entry point for the minimize CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leeovery/minimize/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := cli.NewApp(os.Stdin, os.Stdout, os.Stderr)
	code := app.RunContext(ctx, os.Args, cli.WorkDir())
	stop()
	os.Exit(code)
}
