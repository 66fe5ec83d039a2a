package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/libpass-cli/cmd"
)

// main is the entry point for the libpass CLI.
func main() {
	// Set up a context that listens for interrupt signals (SIGINT, SIGTERM)
	// so an in-flight automation can shut the browser down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
