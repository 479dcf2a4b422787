// harmonyctl is the operator CLI for the Harmony real-time gateway.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AdaptChat/harmony/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
