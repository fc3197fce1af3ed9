package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/freqkflag/agentrunner/internal/cli"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, version, commit, date)
	stop()
	os.Exit(code)
}
