package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FirepowerKit/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatErrorLine(err))
		stop()
		os.Exit(cli.ExitCodeFor(err))
	}
}
