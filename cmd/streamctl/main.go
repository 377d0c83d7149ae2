package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"logstream-srv/internal/streamctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := streamctl.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "streamctl:", err)
		stop()
		os.Exit(1)
	}
}
