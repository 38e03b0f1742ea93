package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"splice/internal/services"
)

func main() {
	os.Exit(run())
}

// run executes the command tree and returns the process exit status.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return services.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "splice: %v\n", err)
	return services.ExitCode(err)
}
