package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"PortfolioMonitor/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := &cli.Runtime{}
	err := cli.NewRootCmd(version, rt).ExecuteContext(ctx)
	if err != nil && rt.Logger != nil {
		rt.Logger.Error("command failed", "error", err)
	}
	if closeErr := rt.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
