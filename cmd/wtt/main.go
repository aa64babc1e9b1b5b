package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	appLog "wtt/internal/log"
)

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := &commandLine{in: os.Stdin, out: os.Stdout}
	err := cli.run(ctx, os.Args)
	appLog.Sync()
	if err != nil {
		if !errors.Is(err, errHelp) {
			appLog.Error("wtt failed", err)
		}
		os.Exit(1)
	}
}
