package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"transport_el/internal/pkg/pkgerror"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("command failed", "kind", pkgerror.KindOf(err).String(), "error", err)
		os.Exit(1)
	}
}
