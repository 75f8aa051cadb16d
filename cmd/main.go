package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/stride/internal/shared"
)

const version = "0.3.0"

func main() {
	if err := shared.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := runner.app().Run(ctx, os.Args)
	stop()

	if err != nil {
		logger.Fatal("application error", "error", err)
	}
}
